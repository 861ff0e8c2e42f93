package service

import (
	"context"
	"strings"
	"time"

	"github.com/archiva-labs/doclib/internal/domain"
	"github.com/archiva-labs/doclib/internal/index"
	"github.com/archiva-labs/doclib/internal/telemetry"
)

// MaxQuestionLength bounds accepted questions
const MaxQuestionLength = 2000

// snippetLength is how much chunk content is kept on a source reference
const snippetLength = 200

// QueryRepositoryInterface defines the repository interface for query persistence
type QueryRepositoryInterface interface {
	Create(ctx context.Context, q *domain.Query) error
	GetByID(ctx context.Context, id string) (*domain.Query, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Query, int, error)
	Stats(ctx context.Context) (*domain.QueryStats, error)
}

// AskResult is the outcome of a question, noting whether it was served
// from cache
type AskResult struct {
	Query  *domain.Query
	Cached bool
}

// QueryService runs the question-to-answer pipeline: cache lookup,
// retrieval, synthesis, persistence
type QueryService struct {
	retriever   *Retriever
	synthesizer *Synthesizer
	cache       *QueryCache
	queryRepo   QueryRepositoryInterface
	uuidGen     UUIDGenerator
	now         func() time.Time
}

// NewQueryService creates a new QueryService instance
func NewQueryService(
	retriever *Retriever,
	synthesizer *Synthesizer,
	cache *QueryCache,
	queryRepo QueryRepositoryInterface,
) *QueryService {
	return &QueryService{
		retriever:   retriever,
		synthesizer: synthesizer,
		cache:       cache,
		queryRepo:   queryRepo,
		uuidGen:     &DefaultUUIDGenerator{},
		now:         time.Now,
	}
}

// Ask answers a question against the indexed corpus. Identical questions
// with identical filters are served from cache until the corpus changes or
// the entry expires.
func (s *QueryService) Ask(ctx context.Context, question string, topK int, filter index.Filter) (*AskResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.Ask", telemetry.SpanAttributes{
		Operation: "ask",
	})
	defer span.End()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "question is required")
	}
	if len(question) > MaxQuestionLength {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "question exceeds maximum length")
	}

	if cached := s.cache.Get(question, filter); cached != nil {
		return &AskResult{Query: cached, Cached: true}, nil
	}

	started := s.now()

	chunks, err := s.retriever.Retrieve(ctx, question, topK, filter)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	answer, err := s.synthesizer.Synthesize(ctx, question, chunks)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	query := &domain.Query{
		ID:             s.uuidGen.NewString(),
		Question:       question,
		Answer:         answer.Text,
		Confidence:     answer.Confidence,
		Sources:        toSources(answer.Sources),
		ModelUsed:      answer.ModelUsed,
		ProcessingTime: s.now().Sub(started).Seconds(),
		CreatedAt:      s.now(),
	}

	if err := s.queryRepo.Create(ctx, query); err != nil {
		span.SetError(err)
		return nil, err
	}

	// Degraded answers are persisted for history but never cached, so a
	// recovered generator gets a fresh attempt
	if !answer.Degraded {
		s.cache.Put(question, filter, query)
	}

	return &AskResult{Query: query}, nil
}

// GetByID returns a past query by ID
func (s *QueryService) GetByID(ctx context.Context, id string) (*domain.Query, error) {
	return s.queryRepo.GetByID(ctx, id)
}

// History returns a page of past queries, newest first, and the total count
func (s *QueryService) History(ctx context.Context, limit, offset int) ([]*domain.Query, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.queryRepo.List(ctx, limit, offset)
}

// Stats returns aggregate query analytics
func (s *QueryService) Stats(ctx context.Context) (*domain.QueryStats, error) {
	return s.queryRepo.Stats(ctx)
}

// toSources converts scored chunks to persisted source references
func toSources(chunks []ScoredChunk) []domain.Source {
	sources := make([]domain.Source, 0, len(chunks))
	for _, c := range chunks {
		sources = append(sources, domain.Source{
			ChunkID:        c.ChunkID,
			DocumentID:     c.DocumentID,
			ChunkIndex:     c.ChunkIndex,
			RelevanceScore: c.Score,
			Snippet:        snippet(c.Content),
		})
	}
	return sources
}

// snippet truncates content at a rune boundary for display
func snippet(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) <= snippetLength {
		return string(runes)
	}
	return string(runes[:snippetLength]) + "..."
}
