package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/archiva-labs/doclib/internal/domain"
	"github.com/archiva-labs/doclib/internal/index"
	"github.com/archiva-labs/doclib/internal/telemetry"
)

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Document, int, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, chunkCount int, errMsg string) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*domain.DocumentStats, error)
}

// ChunkRepositoryInterface defines the repository interface for chunk persistence
type ChunkRepositoryInterface interface {
	ReplaceForDocument(ctx context.Context, documentID string, chunks []*domain.Chunk) error
	ListAll(ctx context.Context) ([]*domain.Chunk, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// IngestIndex defines the write side of the embedding index
type IngestIndex interface {
	Begin(documentID string) (*index.Batch, error)
	Remove(documentID string) error
	Persist(path string) error
	Dimension() int
	ModelVersion() string
}

// CacheInvalidator drops cached answers after the corpus changes
type CacheInvalidator interface {
	InvalidateAll()
}

// IngestionService turns extracted document text into committed, searchable
// chunks. Chunks are written to the database first so the index can always
// be rebuilt, then staged and committed into the index atomically.
type IngestionService struct {
	documentRepo DocumentRepositoryInterface
	chunkRepo    ChunkRepositoryInterface
	embedding    EmbeddingClient
	index        IngestIndex
	cache        CacheInvalidator
	chunkCfg     ChunkConfig
	snapshotPath string
	uuidGen      UUIDGenerator
}

// NewIngestionService creates a new IngestionService instance
func NewIngestionService(
	documentRepo DocumentRepositoryInterface,
	chunkRepo ChunkRepositoryInterface,
	embedding EmbeddingClient,
	ingestIndex IngestIndex,
	cache CacheInvalidator,
	chunkCfg ChunkConfig,
	snapshotPath string,
) *IngestionService {
	if chunkCfg.ChunkSize <= 0 {
		chunkCfg = DefaultChunkConfig()
	}
	return &IngestionService{
		documentRepo: documentRepo,
		chunkRepo:    chunkRepo,
		embedding:    embedding,
		index:        ingestIndex,
		cache:        cache,
		chunkCfg:     chunkCfg,
		snapshotPath: snapshotPath,
		uuidGen:      &DefaultUUIDGenerator{},
	}
}

// Ingest chunks, embeds, persists, and indexes the extracted text of a
// document. On any failure the document is marked failed and nothing from
// this attempt becomes visible to search.
func (s *IngestionService) Ingest(ctx context.Context, documentID, text string) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Ingest", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "ingest",
	})
	defer span.End()

	doc, err := s.documentRepo.GetByID(ctx, documentID)
	if err != nil {
		span.SetError(err)
		return err
	}

	if err := s.documentRepo.UpdateStatus(ctx, documentID, domain.DocumentStatusProcessing, 0, ""); err != nil {
		span.SetError(err)
		return err
	}

	chunks, err := s.buildChunks(ctx, doc, text)
	if err != nil {
		s.markFailed(ctx, documentID, err)
		span.SetError(err)
		return err
	}

	batch, err := s.index.Begin(documentID)
	if err != nil {
		s.markFailed(ctx, documentID, err)
		span.SetError(err)
		return err
	}
	defer batch.Discard()

	for _, c := range chunks {
		payload := index.Payload{
			DocumentID: documentID,
			ChunkIndex: c.ChunkIndex,
			Content:    c.Content,
			Page:       c.Page,
			Filename:   doc.Filename,
			Category:   doc.Metadata.Category,
			Tags:       doc.Metadata.Tags,
		}
		if err := batch.Add(c.ID, c.Embedding, payload); err != nil {
			s.markFailed(ctx, documentID, err)
			span.SetError(err)
			return err
		}
	}

	// Durable store first: the database copy is what index rebuilds read
	if err := s.chunkRepo.ReplaceForDocument(ctx, documentID, chunks); err != nil {
		s.markFailed(ctx, documentID, err)
		span.SetError(err)
		return err
	}

	batch.Commit()

	if err := s.documentRepo.UpdateStatus(ctx, documentID, domain.DocumentStatusProcessed, len(chunks), ""); err != nil {
		span.SetError(err)
		return err
	}

	s.cache.InvalidateAll()
	s.persistSnapshot()
	return nil
}

// buildChunks splits text into chunks and embeds each one
func (s *IngestionService) buildChunks(ctx context.Context, doc *domain.Document, text string) ([]*domain.Chunk, error) {
	segments, err := Chunk(text, s.chunkCfg)
	if err != nil {
		return nil, err
	}

	chunks := make([]*domain.Chunk, 0, len(segments))
	runes := []rune(text)
	for i, seg := range segments {
		embedding, err := s.embedding.GenerateEmbedding(ctx, strings.TrimSpace(seg.Text))
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, &domain.Chunk{
			ID:             s.uuidGen.NewString(),
			DocumentID:     doc.ID,
			ChunkIndex:     i,
			Content:        seg.Text,
			StartChar:      seg.Start,
			EndChar:        seg.End,
			Page:           pageAt(runes, seg.Start),
			Embedding:      embedding,
			EmbeddingModel: s.embedding.ModelVersion(),
			CreatedAt:      time.Now(),
		})
	}
	return chunks, nil
}

// RemoveDocument deletes a document's chunks from the database and the
// index, and drops cached answers that may have cited it
func (s *IngestionService) RemoveDocument(ctx context.Context, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.RemoveDocument", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "remove",
	})
	defer span.End()

	if err := s.chunkRepo.DeleteByDocument(ctx, documentID); err != nil {
		span.SetError(err)
		return err
	}
	if err := s.index.Remove(documentID); err != nil {
		span.SetError(err)
		return err
	}
	s.cache.InvalidateAll()
	s.persistSnapshot()
	return nil
}

// RebuildIndex repopulates the index from the chunks stored in the
// database. Used at startup when the snapshot is missing or corrupt, and
// on demand from the admin CLI. Chunks whose stored vectors came from a
// different embedding model are re-embedded with the current model and the
// refreshed vectors persisted, so the index never mixes model versions.
func (s *IngestionService) RebuildIndex(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.RebuildIndex", telemetry.SpanAttributes{
		Operation: "rebuild_index",
	})
	defer span.End()

	chunks, err := s.chunkRepo.ListAll(ctx)
	if err != nil {
		span.SetError(err)
		return 0, err
	}

	byDoc := make(map[string][]*domain.Chunk)
	for _, c := range chunks {
		byDoc[c.DocumentID] = append(byDoc[c.DocumentID], c)
	}

	indexed := 0
	for documentID, docChunks := range byDoc {
		doc, err := s.documentRepo.GetByID(ctx, documentID)
		if err != nil {
			span.SetError(err)
			return indexed, err
		}

		if err := s.refreshStaleEmbeddings(ctx, documentID, docChunks); err != nil {
			span.SetError(err)
			return indexed, err
		}

		batch, err := s.index.Begin(documentID)
		if err != nil {
			span.SetError(err)
			return indexed, err
		}
		for _, c := range docChunks {
			payload := index.Payload{
				DocumentID: documentID,
				ChunkIndex: c.ChunkIndex,
				Content:    c.Content,
				Page:       c.Page,
				Filename:   doc.Filename,
				Category:   doc.Metadata.Category,
				Tags:       doc.Metadata.Tags,
			}
			if err := batch.Add(c.ID, c.Embedding, payload); err != nil {
				batch.Discard()
				span.SetError(err)
				return indexed, fmt.Errorf("rebuild document %s: %w", documentID, err)
			}
		}
		batch.Commit()
		indexed += len(docChunks)
	}

	s.cache.InvalidateAll()
	s.persistSnapshot()
	return indexed, nil
}

// refreshStaleEmbeddings re-embeds any chunk whose stored vector was
// produced by a model other than the one the index is stamped with, and
// persists the refreshed rows. Chunks already on the current model are
// left untouched.
func (s *IngestionService) refreshStaleEmbeddings(ctx context.Context, documentID string, chunks []*domain.Chunk) error {
	current := s.index.ModelVersion()
	refreshed := 0
	for _, c := range chunks {
		if c.EmbeddingModel == current {
			continue
		}
		embedding, err := s.embedding.GenerateEmbedding(ctx, strings.TrimSpace(c.Content))
		if err != nil {
			return fmt.Errorf("re-embed chunk %d of document %s: %w", c.ChunkIndex, documentID, err)
		}
		c.Embedding = embedding
		c.EmbeddingModel = s.embedding.ModelVersion()
		refreshed++
	}
	if refreshed == 0 {
		return nil
	}
	if err := s.chunkRepo.ReplaceForDocument(ctx, documentID, chunks); err != nil {
		return err
	}
	log.Printf("re-embedded %d stale chunks for document %s", refreshed, documentID)
	return nil
}

// markFailed records a failure on the document without masking the original error
func (s *IngestionService) markFailed(ctx context.Context, documentID string, cause error) {
	if err := s.documentRepo.UpdateStatus(ctx, documentID, domain.DocumentStatusFailed, 0, cause.Error()); err != nil {
		log.Printf("failed to mark document %s as failed: %v", documentID, err)
	}
}

// persistSnapshot writes the index snapshot, logging rather than failing
// the ingestion: the database remains the source of truth either way
func (s *IngestionService) persistSnapshot() {
	if s.snapshotPath == "" {
		return
	}
	if err := s.index.Persist(s.snapshotPath); err != nil {
		log.Printf("failed to persist index snapshot: %v", err)
	}
}

// pageAt returns the 1-based page for a rune offset, counting form feed
// separators emitted by the PDF extractor. Plain text is all page 1.
func pageAt(runes []rune, offset int) int {
	page := 1
	if offset > len(runes) {
		offset = len(runes)
	}
	for _, r := range runes[:offset] {
		if r == '\f' {
			page++
		}
	}
	return page
}
