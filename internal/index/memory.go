package index

import (
	"math"
	"sort"
	"sync"

	"github.com/archiva-labs/doclib/internal/domain"
)

type entry struct {
	chunkID string
	vector  []float32 // L2-normalized at insert time
	payload Payload
}

// Memory is a brute-force cosine-similarity index. Reads are fully
// concurrent; mutations are serialized per document identity. Vectors for a
// document are invisible to Search until the document's batch commits.
type Memory struct {
	mu           sync.RWMutex
	dimension    int
	modelVersion string
	published    map[string][]entry // document ID -> committed entries, in chunk order

	docLocks sync.Map // document ID -> *sync.Mutex
}

// NewMemory creates an empty index. The dimension and embedding model
// version are fixed for the lifetime of the instance.
func NewMemory(dimension int, modelVersion string) *Memory {
	return &Memory{
		dimension:    dimension,
		modelVersion: modelVersion,
		published:    make(map[string][]entry),
	}
}

// Dimension returns the fixed vector dimension.
func (m *Memory) Dimension() int { return m.dimension }

// ModelVersion returns the embedding model identity the index was built with.
func (m *Memory) ModelVersion() string { return m.modelVersion }

// Len returns the number of committed vectors.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, entries := range m.published {
		n += len(entries)
	}
	return n
}

// DocumentCount returns the number of documents with committed chunks.
func (m *Memory) DocumentCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.published)
}

func (m *Memory) lockDocument(documentID string) (*sync.Mutex, error) {
	v, _ := m.docLocks.LoadOrStore(documentID, &sync.Mutex{})
	lock := v.(*sync.Mutex)
	if !lock.TryLock() {
		return nil, domain.ErrIngestionInFlight
	}
	return lock, nil
}

// Batch is an uncommitted set of chunks for one document. It holds the
// document's mutation lock from Begin until Commit or Discard.
type Batch struct {
	index      *Memory
	documentID string
	lock       *sync.Mutex
	staged     []entry
	done       bool
}

// Begin starts a staged mutation for the given document. At most one batch
// may be in flight per document identity; a second Begin for the same
// document fails with ErrIngestionInFlight.
func (m *Memory) Begin(documentID string) (*Batch, error) {
	if documentID == "" {
		return nil, domain.ErrMissingRequiredField
	}
	lock, err := m.lockDocument(documentID)
	if err != nil {
		return nil, err
	}
	return &Batch{index: m, documentID: documentID, lock: lock}, nil
}

// Add stages a chunk vector. Vectors are normalized on entry so Search can
// score by dot product. The chunk is not searchable until Commit. Adding to
// a batch after Commit or Discard fails with ErrBatchClosed.
func (b *Batch) Add(chunkID string, vector []float32, payload Payload) error {
	if b.done {
		return domain.ErrBatchClosed
	}
	if len(vector) != b.index.dimension {
		return domain.ErrDimensionMismatch
	}
	normalized := make([]float32, len(vector))
	copy(normalized, vector)
	normalize(normalized)
	payload.DocumentID = b.documentID
	b.staged = append(b.staged, entry{chunkID: chunkID, vector: normalized, payload: payload})
	return nil
}

// Commit atomically replaces the document's committed entries with the
// staged batch and releases the document lock.
func (b *Batch) Commit() {
	if b.done {
		return
	}
	b.done = true

	b.index.mu.Lock()
	if len(b.staged) == 0 {
		delete(b.index.published, b.documentID)
	} else {
		b.index.published[b.documentID] = b.staged
	}
	b.index.mu.Unlock()

	b.staged = nil
	b.lock.Unlock()
}

// Discard drops the staged batch without publishing anything and releases
// the document lock. Committed entries for the document are untouched.
func (b *Batch) Discard() {
	if b.done {
		return
	}
	b.done = true
	b.staged = nil
	b.lock.Unlock()
}

// Remove deletes all committed chunks for a document.
func (m *Memory) Remove(documentID string) error {
	lock, err := m.lockDocument(documentID)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	m.mu.Lock()
	delete(m.published, documentID)
	m.mu.Unlock()
	return nil
}

// Search returns the top k committed chunks by cosine similarity against the
// query vector, optionally restricted by a metadata filter. Results are
// ordered by descending score.
func (m *Memory) Search(query []float32, k int, filter Filter) ([]Result, error) {
	if len(query) != m.dimension {
		return nil, domain.ErrDimensionMismatch
	}
	if k <= 0 {
		k = 5
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalize(normalized)

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]Result, 0, k)
	for _, entries := range m.published {
		for _, e := range entries {
			if !filter.IsZero() && !filter.Matches(e.payload) {
				continue
			}
			results = append(results, Result{
				ChunkID: e.chunkID,
				Score:   dot(e.vector, normalized),
				Payload: e.payload,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
