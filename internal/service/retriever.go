package service

import (
	"context"
	"strings"

	"github.com/archiva-labs/doclib/internal/domain"
	"github.com/archiva-labs/doclib/internal/index"
	"github.com/archiva-labs/doclib/internal/telemetry"
)

const (
	// DefaultTopK is the number of chunks retrieved when the caller does not ask for more
	DefaultTopK = 5
	// MaxTopK bounds caller-supplied k
	MaxTopK = 20
	// DefaultSimilarityFloor excludes chunks whose cosine similarity is too
	// low to be useful context regardless of k
	DefaultSimilarityFloor = 0.25
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	ModelVersion() string
}

// SearchIndex defines the read side of the embedding index
type SearchIndex interface {
	Search(query []float32, k int, filter index.Filter) ([]index.Result, error)
}

// ScoredChunk is a retrieved chunk with its similarity score
type ScoredChunk struct {
	ChunkID    string
	DocumentID string
	ChunkIndex int
	Content    string
	Page       int
	Filename   string
	Score      float32
}

// RetrieverConfig tunes retrieval behavior
type RetrieverConfig struct {
	SimilarityFloor float32
}

// DefaultRetrieverConfig provides sane retrieval defaults
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{SimilarityFloor: DefaultSimilarityFloor}
}

// Retriever embeds questions and finds the most similar committed chunks.
// An empty result is a first-class outcome, not an error: it means the
// corpus has nothing relevant above the similarity floor.
type Retriever struct {
	embedding EmbeddingClient
	index     SearchIndex
	cfg       RetrieverConfig
}

// NewRetriever creates a new Retriever instance
func NewRetriever(embedding EmbeddingClient, searchIndex SearchIndex, cfg RetrieverConfig) *Retriever {
	if cfg.SimilarityFloor <= 0 {
		cfg.SimilarityFloor = DefaultSimilarityFloor
	}
	return &Retriever{
		embedding: embedding,
		index:     searchIndex,
		cfg:       cfg,
	}
}

// Retrieve returns up to k chunks relevant to the question, ordered by
// descending similarity, excluding anything below the similarity floor.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int, filter index.Filter) ([]ScoredChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "Retriever.Retrieve", telemetry.SpanAttributes{
		Operation: "retrieve",
	})
	defer span.End()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrMissingRequiredField
	}
	if k <= 0 {
		k = DefaultTopK
	}
	if k > MaxTopK {
		k = MaxTopK
	}

	embedding, err := r.embedding.GenerateEmbedding(ctx, question)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	results, err := r.index.Search(embedding, k, filter)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	chunks := make([]ScoredChunk, 0, len(results))
	for _, res := range results {
		if res.Score < r.cfg.SimilarityFloor {
			continue
		}
		chunks = append(chunks, ScoredChunk{
			ChunkID:    res.ChunkID,
			DocumentID: res.Payload.DocumentID,
			ChunkIndex: res.Payload.ChunkIndex,
			Content:    res.Payload.Content,
			Page:       res.Payload.Page,
			Filename:   res.Payload.Filename,
			Score:      res.Score,
		})
	}

	return chunks, nil
}
