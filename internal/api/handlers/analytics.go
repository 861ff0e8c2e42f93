package handlers

import (
	"context"
	"net/http"

	"github.com/archiva-labs/doclib/internal/api"
	"github.com/archiva-labs/doclib/internal/domain"
)

type AnalyticsService interface {
	Stats(ctx context.Context) (*domain.QueryStats, error)
}

type DocumentAnalyticsService interface {
	Stats(ctx context.Context) (*domain.DocumentStats, error)
}

type IndexStats interface {
	Len() int
	DocumentCount() int
}

type AnalyticsHandler struct {
	svc   AnalyticsService
	docs  DocumentAnalyticsService
	index IndexStats
}

func NewAnalyticsHandler(svc AnalyticsService, docs DocumentAnalyticsService, indexStats IndexStats) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, docs: docs, index: indexStats}
}

type AnalyticsResponse struct {
	TotalQueries      int     `json:"total_queries"`
	AvgConfidence     float64 `json:"avg_confidence"`
	AvgProcessingTime float64 `json:"avg_processing_time"`
	QueriesLast24h    int     `json:"queries_last_24h"`
	IndexedChunks     int     `json:"indexed_chunks"`
	IndexedDocuments  int     `json:"indexed_documents"`
}

func (h *AnalyticsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, AnalyticsResponse{
		TotalQueries:      stats.TotalQueries,
		AvgConfidence:     stats.AvgConfidence,
		AvgProcessingTime: stats.AvgProcessingTime,
		QueriesLast24h:    stats.QueriesLast24h,
		IndexedChunks:     h.index.Len(),
		IndexedDocuments:  h.index.DocumentCount(),
	})
}

type TagCountResponse struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type DocumentAnalyticsResponse struct {
	TotalDocuments int                `json:"total_documents"`
	TotalSizeBytes int64              `json:"total_size_bytes"`
	ByStatus       map[string]int     `json:"by_status"`
	ByContentType  map[string]int     `json:"by_content_type"`
	PopularTags    []TagCountResponse `json:"popular_tags"`
}

// Documents reports corpus-wide document aggregates.
func (h *AnalyticsHandler) Documents(w http.ResponseWriter, r *http.Request) {
	stats, err := h.docs.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := DocumentAnalyticsResponse{
		TotalDocuments: stats.TotalDocuments,
		TotalSizeBytes: stats.TotalSizeBytes,
		ByStatus:       stats.ByStatus,
		ByContentType:  stats.ByContentType,
		PopularTags:    make([]TagCountResponse, 0, len(stats.PopularTags)),
	}
	for _, tc := range stats.PopularTags {
		resp.PopularTags = append(resp.PopularTags, TagCountResponse{Tag: tc.Tag, Count: tc.Count})
	}

	api.Success(w, http.StatusOK, resp)
}

type QueryAnalyticsResponse struct {
	TotalQueries      int     `json:"total_queries"`
	AvgConfidence     float64 `json:"avg_confidence"`
	AvgProcessingTime float64 `json:"avg_processing_time"`
	QueriesLast24h    int     `json:"queries_last_24h"`
	SuccessRate       float64 `json:"success_rate"`
}

// Queries reports aggregates over the persisted query history.
func (h *AnalyticsHandler) Queries(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, QueryAnalyticsResponse{
		TotalQueries:      stats.TotalQueries,
		AvgConfidence:     stats.AvgConfidence,
		AvgProcessingTime: stats.AvgProcessingTime,
		QueriesLast24h:    stats.QueriesLast24h,
		SuccessRate:       stats.SuccessRate,
	})
}
