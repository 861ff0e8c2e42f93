package domain

import (
	"fmt"
	"time"
)

// IngestJobStatus represents the status of a background ingestion job
type IngestJobStatus string

const (
	IngestJobStatusPending    IngestJobStatus = "pending"
	IngestJobStatusProcessing IngestJobStatus = "processing"
	IngestJobStatusCompleted  IngestJobStatus = "completed"
	IngestJobStatusFailed     IngestJobStatus = "failed"
)

// IngestJob represents a queued document-processing task.
// One job per upload attempt; retries are tracked on the job.
type IngestJob struct {
	ID          string
	DocumentID  string
	Status      IngestJobStatus
	Retries     int
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// ValidateIngestJob validates an IngestJob instance
func ValidateIngestJob(j *IngestJob) error {
	if j == nil {
		return fmt.Errorf("ingest job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("ingest job ID is required")
	}

	if j.DocumentID == "" {
		return fmt.Errorf("ingest job DocumentID is required")
	}

	if !isValidIngestJobStatus(j.Status) {
		return fmt.Errorf("ingest job Status is invalid: %s", j.Status)
	}

	return nil
}

func isValidIngestJobStatus(s IngestJobStatus) bool {
	switch s {
	case IngestJobStatusPending, IngestJobStatusProcessing, IngestJobStatusCompleted, IngestJobStatusFailed:
		return true
	}
	return false
}
