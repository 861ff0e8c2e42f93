package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archiva-labs/doclib/internal/domain"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.snapshot")

	src := NewMemory(3, "model-v1")
	addChunks(t, src, "doc-1", []float32{1, 0, 0}, []float32{0, 1, 0})
	addChunks(t, src, "doc-2", []float32{0, 0, 1})
	require.NoError(t, src.Persist(path))

	dst := NewMemory(3, "model-v1")
	require.NoError(t, dst.Load(path))

	assert.Equal(t, 3, dst.Len())
	assert.Equal(t, 2, dst.DocumentCount())

	results, err := dst.Search([]float32{0, 0, 1}, 1, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-2-chunk-0", results[0].ChunkID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
}

func TestSnapshot_PersistCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "index.snapshot")

	m := NewMemory(3, "model-v1")
	addChunks(t, m, "doc-1", []float32{1, 0, 0})

	require.NoError(t, m.Persist(path))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestSnapshot_LoadMissingFile(t *testing.T) {
	m := NewMemory(3, "model-v1")
	err := m.Load(filepath.Join(t.TempDir(), "missing.snapshot"))
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSnapshot_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.snapshot")
	require.NoError(t, os.WriteFile(path, []byte("not a gob stream"), 0o644))

	m := NewMemory(3, "model-v1")
	err := m.Load(path)
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeInternalError, domainErr.Code)
}

func TestSnapshot_LoadRejectsModelVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.snapshot")

	src := NewMemory(3, "model-v1")
	addChunks(t, src, "doc-1", []float32{1, 0, 0})
	require.NoError(t, src.Persist(path))

	dst := NewMemory(3, "model-v2")
	err := dst.Load(path)
	assert.ErrorIs(t, err, domain.ErrEmbeddingVersionMismatch)
}

func TestSnapshot_LoadRejectsDimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.snapshot")

	src := NewMemory(3, "model-v1")
	addChunks(t, src, "doc-1", []float32{1, 0, 0})
	require.NoError(t, src.Persist(path))

	dst := NewMemory(4, "model-v1")
	err := dst.Load(path)
	assert.ErrorIs(t, err, domain.ErrEmbeddingVersionMismatch)
}

func TestSnapshot_LoadReplacesExistingState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.snapshot")

	src := NewMemory(3, "model-v1")
	addChunks(t, src, "doc-1", []float32{1, 0, 0})
	require.NoError(t, src.Persist(path))

	dst := NewMemory(3, "model-v1")
	addChunks(t, dst, "stale-doc", []float32{0, 1, 0}, []float32{0, 0, 1})
	require.NoError(t, dst.Load(path))

	assert.Equal(t, 1, dst.Len())
	results, err := dst.Search([]float32{0, 1, 0}, 5, Filter{DocumentID: "stale-doc"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSnapshot_PersistEmptyIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.snapshot")

	src := NewMemory(3, "model-v1")
	require.NoError(t, src.Persist(path))

	dst := NewMemory(3, "model-v1")
	require.NoError(t, dst.Load(path))
	assert.Equal(t, 0, dst.Len())
}
