package service

import (
	"context"
	"fmt"
	"time"

	"github.com/archiva-labs/doclib/internal/domain"
	"github.com/archiva-labs/doclib/internal/telemetry"
	"github.com/google/uuid"
)

// DefaultMaxFileSize caps uploads at 10 MiB
const DefaultMaxFileSize = 10 << 20

// supportedContentTypes maps accepted upload content types
var supportedContentTypes = map[string]bool{
	"text/plain":      true,
	"text/csv":        true,
	"text/markdown":   true,
	"application/pdf": true,
}

// IngestJobRepositoryInterface defines the repository interface for ingest job persistence
type IngestJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.IngestJob) error
}

// ObjectStorage stores and retrieves raw uploaded files
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// DocumentService handles document lifecycle: upload, lookup, removal
type DocumentService struct {
	documentRepo DocumentRepositoryInterface
	jobRepo      IngestJobRepositoryInterface
	storage      ObjectStorage
	ingestion    *IngestionService
	maxFileSize  int64
	uuidGen      UUIDGenerator
}

// NewDocumentService creates a new DocumentService instance
func NewDocumentService(
	documentRepo DocumentRepositoryInterface,
	jobRepo IngestJobRepositoryInterface,
	storage ObjectStorage,
	ingestion *IngestionService,
	maxFileSize int64,
) *DocumentService {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &DocumentService{
		documentRepo: documentRepo,
		jobRepo:      jobRepo,
		storage:      storage,
		ingestion:    ingestion,
		maxFileSize:  maxFileSize,
		uuidGen:      &DefaultUUIDGenerator{},
	}
}

// NewDocumentServiceWithUUIDGen creates a new DocumentService with custom UUID generator (for testing)
func NewDocumentServiceWithUUIDGen(
	documentRepo DocumentRepositoryInterface,
	jobRepo IngestJobRepositoryInterface,
	storage ObjectStorage,
	ingestion *IngestionService,
	maxFileSize int64,
	uuidGen UUIDGenerator,
) *DocumentService {
	svc := NewDocumentService(documentRepo, jobRepo, storage, ingestion, maxFileSize)
	svc.uuidGen = uuidGen
	return svc
}

// Upload validates the file, stores the raw bytes, records the document,
// and enqueues an ingest job. Chunking and embedding happen asynchronously.
func (s *DocumentService) Upload(ctx context.Context, filename, contentType string, data []byte, meta domain.DocumentMetadata) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Upload", telemetry.SpanAttributes{
		Operation: "upload",
	})
	defer span.End()

	if !supportedContentTypes[contentType] {
		return nil, domain.ErrUnsupportedFileType
	}
	if int64(len(data)) > s.maxFileSize {
		return nil, domain.ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, domain.ErrEmptyDocument
	}
	if err := domain.ValidateMetadata(meta); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document metadata", err)
	}

	doc := domain.NewDocument(s.uuidGen.NewString(), filename, contentType, int64(len(data)), meta, time.Now())
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document", err)
	}

	if err := s.storage.Put(ctx, storageKey(doc.ID), data, contentType); err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "failed to store uploaded file", err)
	}

	if err := s.documentRepo.Create(ctx, doc); err != nil {
		span.SetError(err)
		return nil, err
	}

	job := &domain.IngestJob{
		ID:         s.uuidGen.NewString(),
		DocumentID: doc.ID,
		Status:     domain.IngestJobStatusPending,
		CreatedAt:  time.Now(),
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		span.SetError(err)
		return nil, err
	}

	return doc, nil
}

// Get returns a document by ID
func (s *DocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	return s.documentRepo.GetByID(ctx, id)
}

// List returns a page of documents and the total count
func (s *DocumentService) List(ctx context.Context, limit, offset int) ([]*domain.Document, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.documentRepo.List(ctx, limit, offset)
}

// Stats returns corpus-wide document analytics
func (s *DocumentService) Stats(ctx context.Context) (*domain.DocumentStats, error) {
	return s.documentRepo.Stats(ctx)
}

// Delete removes the document record, its stored file, its chunks, and its
// index entries
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Delete", telemetry.SpanAttributes{
		DocumentID: id,
		Operation:  "delete",
	})
	defer span.End()

	if _, err := s.documentRepo.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.ingestion.RemoveDocument(ctx, id); err != nil {
		span.SetError(err)
		return err
	}
	if err := s.storage.Delete(ctx, storageKey(id)); err != nil {
		span.SetError(err)
		return domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "failed to delete stored file", err)
	}
	if err := s.documentRepo.Delete(ctx, id); err != nil {
		span.SetError(err)
		return err
	}
	return nil
}

// storageKey is the object key for a document's raw upload
func storageKey(documentID string) string {
	return fmt.Sprintf("documents/%s", documentID)
}
