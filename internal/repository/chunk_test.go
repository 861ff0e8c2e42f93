//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archiva-labs/doclib/internal/domain"
	"github.com/archiva-labs/doclib/internal/testutil"
)

// testEmbedding fills a 1536-dim vector matching the chunks table schema.
func testEmbedding(seed float32) []float32 {
	v := make([]float32, 1536)
	v[0] = seed
	v[1] = 1
	return v
}

func newTestChunk(documentID string, idx int) *domain.Chunk {
	return &domain.Chunk{
		ID:             uuid.NewString(),
		DocumentID:     documentID,
		ChunkIndex:     idx,
		Content:        "chunk content",
		StartChar:      idx * 100,
		EndChar:        (idx + 1) * 100,
		Page:           1,
		Embedding:      testEmbedding(float32(idx)),
		EmbeddingModel: "text-embedding-3-small",
	}
}

func TestChunkRepository_ReplaceForDocument(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	doc := newTestDocument()
	require.NoError(t, docRepo.Create(ctx, doc))

	first := []*domain.Chunk{newTestChunk(doc.ID, 0), newTestChunk(doc.ID, 1)}
	require.NoError(t, chunkRepo.ReplaceForDocument(ctx, doc.ID, first))

	chunks, err := chunkRepo.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 1, chunks[1].ChunkIndex)
	assert.Len(t, chunks[0].Embedding, 1536)
	assert.Equal(t, first[0].Content, chunks[0].Content)
	assert.Equal(t, first[0].StartChar, chunks[0].StartChar)
	assert.Equal(t, first[0].EndChar, chunks[0].EndChar)
	assert.Equal(t, "text-embedding-3-small", chunks[0].EmbeddingModel)

	// Replace with a single chunk; the old rows must be gone.
	second := []*domain.Chunk{newTestChunk(doc.ID, 0)}
	require.NoError(t, chunkRepo.ReplaceForDocument(ctx, doc.ID, second))

	chunks, err = chunkRepo.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, second[0].ID, chunks[0].ID)
}

func TestChunkRepository_ListAll(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	docA := newTestDocument()
	docB := newTestDocument()
	require.NoError(t, docRepo.Create(ctx, docA))
	require.NoError(t, docRepo.Create(ctx, docB))

	require.NoError(t, chunkRepo.ReplaceForDocument(ctx, docA.ID, []*domain.Chunk{newTestChunk(docA.ID, 0), newTestChunk(docA.ID, 1)}))
	require.NoError(t, chunkRepo.ReplaceForDocument(ctx, docB.ID, []*domain.Chunk{newTestChunk(docB.ID, 0)}))

	all, err := chunkRepo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Ordered by document then chunk index.
	for i := 1; i < len(all); i++ {
		if all[i].DocumentID == all[i-1].DocumentID {
			assert.Greater(t, all[i].ChunkIndex, all[i-1].ChunkIndex)
		}
	}
}

func TestChunkRepository_DeleteByDocument(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	doc := newTestDocument()
	require.NoError(t, docRepo.Create(ctx, doc))
	require.NoError(t, chunkRepo.ReplaceForDocument(ctx, doc.ID, []*domain.Chunk{newTestChunk(doc.ID, 0)}))

	require.NoError(t, chunkRepo.DeleteByDocument(ctx, doc.ID))

	chunks, err := chunkRepo.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	assert.NoError(t, chunkRepo.DeleteByDocument(ctx, doc.ID), "deleting again is not an error")
}

func TestChunkRepository_CascadeOnDocumentDelete(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	doc := newTestDocument()
	require.NoError(t, docRepo.Create(ctx, doc))
	require.NoError(t, chunkRepo.ReplaceForDocument(ctx, doc.ID, []*domain.Chunk{newTestChunk(doc.ID, 0)}))

	require.NoError(t, docRepo.Delete(ctx, doc.ID))

	chunks, err := chunkRepo.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
