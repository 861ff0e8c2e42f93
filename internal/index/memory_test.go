package index

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archiva-labs/doclib/internal/domain"
)

func addChunks(t *testing.T, m *Memory, documentID string, vectors ...[]float32) {
	t.Helper()
	batch, err := m.Begin(documentID)
	require.NoError(t, err)
	for i, v := range vectors {
		require.NoError(t, batch.Add(fmt.Sprintf("%s-chunk-%d", documentID, i), v, Payload{
			ChunkIndex: i,
			Content:    fmt.Sprintf("content %d", i),
			Filename:   documentID + ".txt",
		}))
	}
	batch.Commit()
}

func TestMemory_StagedChunksInvisibleUntilCommit(t *testing.T) {
	m := NewMemory(3, "test-model")

	batch, err := m.Begin("doc-1")
	require.NoError(t, err)
	require.NoError(t, batch.Add("chunk-1", []float32{1, 0, 0}, Payload{Content: "hello"}))

	results, err := m.Search([]float32{1, 0, 0}, 5, Filter{})
	require.NoError(t, err)
	assert.Empty(t, results, "staged chunks must not be searchable")
	assert.Equal(t, 0, m.Len())

	batch.Commit()

	results, err = m.Search([]float32{1, 0, 0}, 5, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "chunk-1", results[0].ChunkID)
	assert.Equal(t, "doc-1", results[0].Payload.DocumentID)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, m.DocumentCount())
}

func TestMemory_DiscardLeavesCommittedStateUntouched(t *testing.T) {
	m := NewMemory(3, "test-model")
	addChunks(t, m, "doc-1", []float32{1, 0, 0})

	batch, err := m.Begin("doc-1")
	require.NoError(t, err)
	require.NoError(t, batch.Add("replacement", []float32{0, 1, 0}, Payload{}))
	batch.Discard()

	results, err := m.Search([]float32{1, 0, 0}, 5, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-1-chunk-0", results[0].ChunkID)
}

func TestMemory_CommitReplacesPreviousEntries(t *testing.T) {
	m := NewMemory(3, "test-model")
	addChunks(t, m, "doc-1", []float32{1, 0, 0}, []float32{0, 1, 0})
	require.Equal(t, 2, m.Len())

	addChunks(t, m, "doc-1", []float32{0, 0, 1})

	assert.Equal(t, 1, m.Len())
	results, err := m.Search([]float32{0, 0, 1}, 5, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-1-chunk-0", results[0].ChunkID)
}

func TestMemory_SecondBeginForSameDocumentFails(t *testing.T) {
	m := NewMemory(3, "test-model")

	batch, err := m.Begin("doc-1")
	require.NoError(t, err)

	_, err = m.Begin("doc-1")
	assert.ErrorIs(t, err, domain.ErrIngestionInFlight)

	_, err = m.Begin("doc-2")
	assert.NoError(t, err, "other documents are not blocked")

	batch.Commit()

	_, err = m.Begin("doc-1")
	assert.NoError(t, err, "lock is released on commit")
}

func TestMemory_RemoveWhileIngestionInFlightFails(t *testing.T) {
	m := NewMemory(3, "test-model")

	batch, err := m.Begin("doc-1")
	require.NoError(t, err)
	defer batch.Discard()

	err = m.Remove("doc-1")
	assert.ErrorIs(t, err, domain.ErrIngestionInFlight)
}

func TestMemory_BeginRequiresDocumentID(t *testing.T) {
	m := NewMemory(3, "test-model")
	_, err := m.Begin("")
	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
}

func TestMemory_Remove(t *testing.T) {
	m := NewMemory(3, "test-model")
	addChunks(t, m, "doc-1", []float32{1, 0, 0})
	addChunks(t, m, "doc-2", []float32{0, 1, 0})

	require.NoError(t, m.Remove("doc-1"))

	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, m.DocumentCount())
	results, err := m.Search([]float32{1, 0, 0}, 5, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-2", results[0].Payload.DocumentID)

	assert.NoError(t, m.Remove("doc-1"), "removing an absent document is not an error")
}

func TestBatch_DimensionMismatch(t *testing.T) {
	m := NewMemory(3, "test-model")

	batch, err := m.Begin("doc-1")
	require.NoError(t, err)
	defer batch.Discard()

	err = batch.Add("chunk-1", []float32{1, 0}, Payload{})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestBatch_AddAfterCommitFails(t *testing.T) {
	m := NewMemory(3, "test-model")

	batch, err := m.Begin("doc-1")
	require.NoError(t, err)
	batch.Commit()

	err = batch.Add("chunk-1", []float32{1, 0, 0}, Payload{})
	assert.ErrorIs(t, err, domain.ErrBatchClosed)
}

func TestBatch_AddAfterDiscardFails(t *testing.T) {
	m := NewMemory(3, "test-model")

	batch, err := m.Begin("doc-1")
	require.NoError(t, err)
	batch.Discard()

	err = batch.Add("chunk-1", []float32{1, 0, 0}, Payload{})
	assert.ErrorIs(t, err, domain.ErrBatchClosed)
}

func TestMemory_SearchDimensionMismatch(t *testing.T) {
	m := NewMemory(3, "test-model")
	_, err := m.Search([]float32{1, 0}, 5, Filter{})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestMemory_SearchOrdering(t *testing.T) {
	m := NewMemory(3, "test-model")
	// Vectors at decreasing similarity to the query (1, 0, 0).
	addChunks(t, m, "doc-a", []float32{1, 0, 0})
	addChunks(t, m, "doc-b", []float32{1, 1, 0})
	addChunks(t, m, "doc-c", []float32{0, 1, 0})

	results, err := m.Search([]float32{1, 0, 0}, 10, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "doc-a-chunk-0", results[0].ChunkID)
	assert.Equal(t, "doc-b-chunk-0", results[1].ChunkID)
	assert.Equal(t, "doc-c-chunk-0", results[2].ChunkID)

	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
	assert.InDelta(t, 0.7071, results[1].Score, 1e-3)
	assert.InDelta(t, 0.0, results[2].Score, 1e-5)
}

func TestMemory_SearchTiesBreakByChunkID(t *testing.T) {
	m := NewMemory(3, "test-model")
	// Identical vectors produce identical scores.
	addChunks(t, m, "doc-b", []float32{1, 0, 0})
	addChunks(t, m, "doc-a", []float32{1, 0, 0})

	results, err := m.Search([]float32{1, 0, 0}, 10, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "doc-a-chunk-0", results[0].ChunkID)
	assert.Equal(t, "doc-b-chunk-0", results[1].ChunkID)
}

func TestMemory_SearchTruncatesToK(t *testing.T) {
	m := NewMemory(3, "test-model")
	for i := 0; i < 8; i++ {
		addChunks(t, m, fmt.Sprintf("doc-%d", i), []float32{1, 0, 0})
	}

	results, err := m.Search([]float32{1, 0, 0}, 3, Filter{})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestMemory_SearchFilters(t *testing.T) {
	m := NewMemory(3, "test-model")

	batch, err := m.Begin("doc-1")
	require.NoError(t, err)
	require.NoError(t, batch.Add("c1", []float32{1, 0, 0}, Payload{Category: "Science", Tags: []string{"physics"}}))
	batch.Commit()

	batch, err = m.Begin("doc-2")
	require.NoError(t, err)
	require.NoError(t, batch.Add("c2", []float32{1, 0, 0}, Payload{Category: "history", Tags: []string{"rome"}}))
	batch.Commit()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "no filter", filter: Filter{}, want: []string{"c1", "c2"}},
		{name: "by document", filter: Filter{DocumentID: "doc-2"}, want: []string{"c2"}},
		{name: "by category case insensitive", filter: Filter{Category: "science"}, want: []string{"c1"}},
		{name: "by tag case insensitive", filter: Filter{Tag: "ROME"}, want: []string{"c2"}},
		{name: "no match", filter: Filter{Category: "cooking"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := m.Search([]float32{1, 0, 0}, 10, tt.filter)
			require.NoError(t, err)
			got := make([]string, 0, len(results))
			for _, r := range results {
				got = append(got, r.ChunkID)
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestFilter_Fingerprint(t *testing.T) {
	assert.Equal(t, "", Filter{}.Fingerprint())
	assert.Equal(t, "doc=d1", Filter{DocumentID: "d1"}.Fingerprint())
	assert.Equal(t, "category=science&tag=physics",
		Filter{Category: "Science", Tag: "Physics"}.Fingerprint())
	assert.Equal(t,
		Filter{DocumentID: "d1", Category: "a", Tag: "b"}.Fingerprint(),
		Filter{Tag: "b", Category: "a", DocumentID: "d1"}.Fingerprint())
}
