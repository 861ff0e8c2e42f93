package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/archiva-labs/doclib/internal/domain"
	"github.com/archiva-labs/doclib/internal/telemetry"
)

const (
	// MaxRetries is the maximum number of attempts for a failed ingest job
	MaxRetries = 3
)

// IngestJobRepository defines the interface for ingest job persistence
type IngestJobRepository interface {
	// ClaimPending retrieves and claims pending ingest jobs
	ClaimPending(ctx context.Context, limit int) ([]*domain.IngestJob, error)

	// UpdateStatus updates the status of an ingest job
	UpdateStatus(ctx context.Context, id string, status domain.IngestJobStatus, errMsg string) error

	// IncrementRetries increments the retry count for a job
	IncrementRetries(ctx context.Context, id string) error
}

// DocumentStore loads document records
type DocumentStore interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// FileStore loads raw uploaded files
type FileStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// TextExtractor turns raw file bytes into plain text
type TextExtractor interface {
	Extract(data []byte, contentType string) (string, error)
}

// Ingester indexes extracted document text
type Ingester interface {
	Ingest(ctx context.Context, documentID, text string) error
}

// IngestWorker processes ingest jobs: load, extract, chunk, embed, index
type IngestWorker struct {
	repo      IngestJobRepository
	documents DocumentStore
	files     FileStore
	extractor TextExtractor
	ingester  Ingester
	batchSize int
}

// NewIngestWorker creates a new IngestWorker instance
func NewIngestWorker(
	repo IngestJobRepository,
	documents DocumentStore,
	files FileStore,
	extractor TextExtractor,
	ingester Ingester,
) *IngestWorker {
	return &IngestWorker{
		repo:      repo,
		documents: documents,
		files:     files,
		extractor: extractor,
		ingester:  ingester,
		batchSize: 10,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IngestWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.ClaimPending(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending ingest jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *IngestWorker) processJob(ctx context.Context, job *domain.IngestJob) error {
	log.Printf("Processing job %s for document %s", job.ID, job.DocumentID)

	if err := w.ingestDocument(ctx, job.DocumentID); err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("Job %s completed successfully", job.ID)
	return nil
}

func (w *IngestWorker) ingestDocument(ctx context.Context, documentID string) error {
	doc, err := w.documents.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	data, err := w.files.Get(ctx, fmt.Sprintf("documents/%s", documentID))
	if err != nil {
		return fmt.Errorf("load file: %w", err)
	}

	text, err := w.extractor.Extract(data, doc.ContentType)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}

	return w.ingester.Ingest(ctx, documentID, text)
}

// handleJobFailure retries a failed job until MaxRetries, then marks it failed
func (w *IngestWorker) handleJobFailure(ctx context.Context, job *domain.IngestJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("Job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		telemetry.CaptureError(ctx, fmt.Errorf("ingest job %s exhausted retries: %w", job.ID, jobErr))
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}
	return nil
}
