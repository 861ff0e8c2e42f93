package domain

import (
	"fmt"
	"strings"
	"time"
)

// DocumentStatus represents the processing state of an uploaded document
type DocumentStatus string

const (
	DocumentStatusUploading  DocumentStatus = "uploading"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusProcessed  DocumentStatus = "processed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// MaxTags bounds the free-form tag list on document metadata
const MaxTags = 16

// DocumentMetadata is the closed, validated metadata schema attached to a document
type DocumentMetadata struct {
	Title    string
	Author   string
	Category string
	Tags     []string
}

// Document represents an uploaded document and its processing state
type Document struct {
	ID          string
	Filename    string
	ContentType string
	FileSize    int64
	Status      DocumentStatus
	ChunkCount  int
	Error       string
	Metadata    DocumentMetadata
	UploadedAt  time.Time
	ProcessedAt *time.Time
}

// Chunk is a contiguous text segment of a document, the unit of retrieval
type Chunk struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Content    string
	StartChar  int
	EndChar    int
	Page       int
	Embedding  []float32
	// EmbeddingModel records which model produced Embedding, so index
	// rebuilds can detect vectors from a superseded model
	EmbeddingModel string
	CreatedAt      time.Time
}

// NewDocument creates a new Document in the uploading state
func NewDocument(id, filename, contentType string, fileSize int64, meta DocumentMetadata, uploadedAt time.Time) *Document {
	return &Document{
		ID:          id,
		Filename:    filename,
		ContentType: contentType,
		FileSize:    fileSize,
		Status:      DocumentStatusUploading,
		Metadata:    meta,
		UploadedAt:  uploadedAt,
	}
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.Filename == "" {
		return fmt.Errorf("document Filename is required")
	}

	if d.ContentType == "" {
		return fmt.Errorf("document ContentType is required")
	}

	if !isValidDocumentStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}

	return ValidateMetadata(d.Metadata)
}

// ValidateMetadata validates the closed metadata schema
func ValidateMetadata(m DocumentMetadata) error {
	if len(m.Tags) > MaxTags {
		return fmt.Errorf("too many tags: %d (max %d)", len(m.Tags), MaxTags)
	}
	for _, tag := range m.Tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("tags must not be blank")
		}
	}
	return nil
}

// CanTransition reports whether a document status transition is legal.
// Lifecycle: uploading -> processing -> {processed | failed}, with
// failed -> processing allowed so ingestion retries can run. processed is
// terminal until the document is re-uploaded. Writing the current status
// again is a no-op, not a violation.
func CanTransition(from, to DocumentStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case DocumentStatusUploading:
		return to == DocumentStatusProcessing || to == DocumentStatusFailed
	case DocumentStatusProcessing:
		return to == DocumentStatusProcessed || to == DocumentStatusFailed
	case DocumentStatusFailed:
		return to == DocumentStatusProcessing
	}
	return false
}

// ValidateChunk validates a Chunk instance
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("chunk ID is required")
	}

	if c.DocumentID == "" {
		return fmt.Errorf("chunk DocumentID is required")
	}

	if c.ChunkIndex < 0 {
		return fmt.Errorf("chunk ChunkIndex must not be negative")
	}

	if c.Content == "" {
		return fmt.Errorf("chunk Content is required")
	}

	return nil
}

// isValidDocumentStatus checks if a DocumentStatus is valid
func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusUploading, DocumentStatusProcessing, DocumentStatusProcessed, DocumentStatusFailed:
		return true
	}
	return false
}

// TagCount pairs a tag with how many documents carry it
type TagCount struct {
	Tag   string
	Count int
}

// DocumentStats holds aggregate analytics over the document corpus
type DocumentStats struct {
	TotalDocuments int
	TotalSizeBytes int64
	ByStatus       map[string]int
	ByContentType  map[string]int
	PopularTags    []TagCount
}
