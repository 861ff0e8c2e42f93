//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archiva-labs/doclib/internal/domain"
	"github.com/archiva-labs/doclib/internal/testutil"
)

func newTestDocument() *domain.Document {
	meta := domain.DocumentMetadata{
		Title:    "Test Document",
		Author:   "Tester",
		Category: "science",
		Tags:     []string{"go", "rag"},
	}
	return domain.NewDocument(uuid.NewString(), "notes.txt", "text/plain", 128, meta, time.Now().UTC().Truncate(time.Microsecond))
}

func TestDocumentRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)
	doc := newTestDocument()
	require.NoError(t, repo.Create(ctx, doc))

	retrieved, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, retrieved.ID)
	assert.Equal(t, doc.Filename, retrieved.Filename)
	assert.Equal(t, doc.ContentType, retrieved.ContentType)
	assert.Equal(t, doc.FileSize, retrieved.FileSize)
	assert.Equal(t, domain.DocumentStatusUploading, retrieved.Status)
	assert.Equal(t, doc.Metadata.Title, retrieved.Metadata.Title)
	assert.Equal(t, doc.Metadata.Author, retrieved.Metadata.Author)
	assert.Equal(t, doc.Metadata.Category, retrieved.Metadata.Category)
	assert.Equal(t, doc.Metadata.Tags, retrieved.Metadata.Tags)
	assert.Nil(t, retrieved.ProcessedAt)
}

func TestDocumentRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)
	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestDocumentRepository_List(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)
	for i := 0; i < 3; i++ {
		doc := newTestDocument()
		doc.UploadedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Create(ctx, doc))
	}

	docs, total, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, docs, 2)
	assert.True(t, docs[0].UploadedAt.After(docs[1].UploadedAt), "newest first")

	docs, total, err = repo.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, docs, 1)
}

func TestDocumentRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)
	doc := newTestDocument()
	require.NoError(t, repo.Create(ctx, doc))

	require.NoError(t, repo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusProcessing, 0, ""))
	retrieved, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusProcessing, retrieved.Status)
	assert.Nil(t, retrieved.ProcessedAt)

	require.NoError(t, repo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusProcessed, 7, ""))
	retrieved, err = repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusProcessed, retrieved.Status)
	assert.Equal(t, 7, retrieved.ChunkCount)
	assert.NotNil(t, retrieved.ProcessedAt)

	err = repo.UpdateStatus(ctx, uuid.NewString(), domain.DocumentStatusFailed, 0, "boom")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestDocumentRepository_UpdateStatus_Failed(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)
	doc := newTestDocument()
	require.NoError(t, repo.Create(ctx, doc))

	require.NoError(t, repo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusFailed, 0, "extract text: bad pdf"))

	retrieved, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusFailed, retrieved.Status)
	assert.Equal(t, "extract text: bad pdf", retrieved.Error)
}

func TestDocumentRepository_UpdateStatus_RejectsIllegalTransition(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)
	doc := newTestDocument()
	require.NoError(t, repo.Create(ctx, doc))

	require.NoError(t, repo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusProcessing, 0, ""))
	require.NoError(t, repo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusProcessed, 2, ""))

	// A processed document cannot be dragged back into processing.
	err := repo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusProcessing, 0, "")
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeInvalidOperation, domainErr.Code)

	retrieved, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusProcessed, retrieved.Status)
	assert.Equal(t, 2, retrieved.ChunkCount)
}

func TestDocumentRepository_UpdateStatus_RetryAfterFailure(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)
	doc := newTestDocument()
	require.NoError(t, repo.Create(ctx, doc))

	require.NoError(t, repo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusProcessing, 0, ""))
	require.NoError(t, repo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusFailed, 0, "embedding service unavailable"))

	// Failed documents go back through processing when the job is retried.
	require.NoError(t, repo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusProcessing, 0, ""))
	require.NoError(t, repo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusProcessed, 1, ""))
}

func TestDocumentRepository_Delete(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)
	doc := newTestDocument()
	require.NoError(t, repo.Create(ctx, doc))

	require.NoError(t, repo.Delete(ctx, doc.ID))

	_, err := repo.GetByID(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, doc.ID), domain.ErrDocumentNotFound)
}

func TestDocumentRepository_Stats(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	t.Run("empty corpus", func(t *testing.T) {
		stats, err := repo.Stats(ctx)
		require.NoError(t, err)
		assert.Zero(t, stats.TotalDocuments)
		assert.Zero(t, stats.TotalSizeBytes)
		assert.Empty(t, stats.ByStatus)
		assert.Empty(t, stats.PopularTags)
	})

	t.Run("aggregates across documents", func(t *testing.T) {
		first := newTestDocument()
		first.Metadata.Tags = []string{"go", "rag"}
		require.NoError(t, repo.Create(ctx, first))
		require.NoError(t, repo.UpdateStatus(ctx, first.ID, domain.DocumentStatusProcessing, 0, ""))
		require.NoError(t, repo.UpdateStatus(ctx, first.ID, domain.DocumentStatusProcessed, 3, ""))

		second := domain.NewDocument(uuid.NewString(), "paper.pdf", "application/pdf", 512,
			domain.DocumentMetadata{Tags: []string{"go"}}, time.Now().UTC())
		require.NoError(t, repo.Create(ctx, second))

		stats, err := repo.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TotalDocuments)
		assert.Equal(t, int64(128+512), stats.TotalSizeBytes)
		assert.Equal(t, 1, stats.ByStatus["processed"])
		assert.Equal(t, 1, stats.ByStatus["uploading"])
		assert.Equal(t, 1, stats.ByContentType["application/pdf"])
		assert.Equal(t, 1, stats.ByContentType["text/plain"])
		require.NotEmpty(t, stats.PopularTags)
		assert.Equal(t, domain.TagCount{Tag: "go", Count: 2}, stats.PopularTags[0])
	})
}
