package domain

import (
	"fmt"
	"time"
)

// Source is one cited chunk that contributed to a synthesized answer
type Source struct {
	ChunkID        string
	DocumentID     string
	ChunkIndex     int
	RelevanceScore float32
	Snippet        string
}

// Query represents an answered question. Immutable once created;
// persisted for history and analytics.
type Query struct {
	ID             string
	Question       string
	Answer         string
	Confidence     float32
	Sources        []Source
	ModelUsed      string
	ProcessingTime float64
	CreatedAt      time.Time
}

// QueryStats holds aggregate analytics over all persisted queries
type QueryStats struct {
	TotalQueries      int
	AvgConfidence     float64
	AvgProcessingTime float64
	QueriesLast24h    int
	// SuccessRate is the share of queries answered with confidence above 0.5
	SuccessRate float64
}

// ValidateQuery validates a Query instance
func ValidateQuery(q *Query) error {
	if q == nil {
		return fmt.Errorf("query cannot be nil")
	}

	if q.ID == "" {
		return fmt.Errorf("query ID is required")
	}

	if q.Question == "" {
		return fmt.Errorf("query Question is required")
	}

	if q.Confidence < 0 || q.Confidence > 1 {
		return fmt.Errorf("query Confidence must be in [0,1], got %f", q.Confidence)
	}

	return nil
}
