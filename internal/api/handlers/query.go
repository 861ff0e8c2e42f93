package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/archiva-labs/doclib/internal/api"
	"github.com/archiva-labs/doclib/internal/domain"
	"github.com/archiva-labs/doclib/internal/index"
	"github.com/archiva-labs/doclib/internal/service"
	"github.com/go-chi/chi/v5"
)

type QueryService interface {
	Ask(ctx context.Context, question string, topK int, filter index.Filter) (*service.AskResult, error)
	GetByID(ctx context.Context, id string) (*domain.Query, error)
	History(ctx context.Context, limit, offset int) ([]*domain.Query, int, error)
}

type QueryHandler struct {
	svc QueryService
}

func NewQueryHandler(svc QueryService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type AskRequest struct {
	Question   string `json:"question"`
	TopK       int    `json:"top_k"`
	DocumentID string `json:"document_id"`
	Category   string `json:"category"`
	Tag        string `json:"tag"`
}

type SourceResponse struct {
	ChunkID        string  `json:"chunk_id"`
	DocumentID     string  `json:"document_id"`
	ChunkIndex     int     `json:"chunk_index"`
	RelevanceScore float32 `json:"relevance_score"`
	Snippet        string  `json:"snippet"`
}

type QueryResponse struct {
	ID             string           `json:"id"`
	Question       string           `json:"question"`
	Answer         string           `json:"answer"`
	Confidence     float32          `json:"confidence"`
	Sources        []SourceResponse `json:"sources"`
	ModelUsed      string           `json:"model_used"`
	ProcessingTime float64          `json:"processing_time"`
	Cached         bool             `json:"cached"`
	CreatedAt      string           `json:"created_at"`
}

type QueryListResponse struct {
	Queries []*QueryResponse `json:"queries"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

func queryToResponse(q *domain.Query, cached bool) *QueryResponse {
	sources := make([]SourceResponse, 0, len(q.Sources))
	for _, s := range q.Sources {
		sources = append(sources, SourceResponse{
			ChunkID:        s.ChunkID,
			DocumentID:     s.DocumentID,
			ChunkIndex:     s.ChunkIndex,
			RelevanceScore: s.RelevanceScore,
			Snippet:        s.Snippet,
		})
	}
	return &QueryResponse{
		ID:             q.ID,
		Question:       q.Question,
		Answer:         q.Answer,
		Confidence:     q.Confidence,
		Sources:        sources,
		ModelUsed:      q.ModelUsed,
		ProcessingTime: q.ProcessingTime,
		Cached:         cached,
		CreatedAt:      q.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *QueryHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	filter := index.Filter{
		DocumentID: req.DocumentID,
		Category:   req.Category,
		Tag:        req.Tag,
	}

	result, err := h.svc.Ask(r.Context(), req.Question, req.TopK, filter)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, queryToResponse(result.Query, result.Cached))
}

func (h *QueryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	query, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, queryToResponse(query, false))
}

func (h *QueryHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	queries, total, err := h.svc.History(r.Context(), limit, offset)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := QueryListResponse{
		Queries: make([]*QueryResponse, 0, len(queries)),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}
	for _, q := range queries {
		resp.Queries = append(resp.Queries, queryToResponse(q, false))
	}

	api.Success(w, http.StatusOK, resp)
}
