package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/archiva-labs/doclib/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QueryRepository persists answered queries for history and analytics.
// Sources are stored as a JSONB document alongside the row.
type QueryRepository struct {
	db dbtx
}

func NewQueryRepository(pool *pgxpool.Pool) *QueryRepository {
	return &QueryRepository{db: pool}
}

func NewQueryRepositoryWithTx(tx pgx.Tx) *QueryRepository {
	return &QueryRepository{db: tx}
}

func (r *QueryRepository) Create(ctx context.Context, q *domain.Query) error {
	sources, err := json.Marshal(q.Sources)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO queries (id, question, answer, confidence, sources, model_used, processing_time, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		q.ID, q.Question, q.Answer, q.Confidence, sources, q.ModelUsed, q.ProcessingTime, q.CreatedAt,
	)
	return err
}

func (r *QueryRepository) GetByID(ctx context.Context, id string) (*domain.Query, error) {
	var q domain.Query
	var sources []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, question, answer, confidence, sources, model_used, processing_time, created_at
		 FROM queries WHERE id = $1`,
		id,
	).Scan(&q.ID, &q.Question, &q.Answer, &q.Confidence, &sources, &q.ModelUsed, &q.ProcessingTime, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrQueryNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(sources, &q.Sources); err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QueryRepository) List(ctx context.Context, limit, offset int) ([]*domain.Query, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM queries`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, question, answer, confidence, sources, model_used, processing_time, created_at
		 FROM queries ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var queries []*domain.Query
	for rows.Next() {
		var q domain.Query
		var sources []byte
		if err := rows.Scan(&q.ID, &q.Question, &q.Answer, &q.Confidence, &sources, &q.ModelUsed, &q.ProcessingTime, &q.CreatedAt); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(sources, &q.Sources); err != nil {
			return nil, 0, err
		}
		queries = append(queries, &q)
	}
	return queries, total, rows.Err()
}

func (r *QueryRepository) Stats(ctx context.Context) (*domain.QueryStats, error) {
	var stats domain.QueryStats
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(AVG(confidence), 0),
		        COALESCE(AVG(processing_time), 0),
		        COUNT(*) FILTER (WHERE created_at > now() - interval '24 hours'),
		        COALESCE(AVG((confidence > 0.5)::int), 0)
		 FROM queries`,
	).Scan(&stats.TotalQueries, &stats.AvgConfidence, &stats.AvgProcessingTime, &stats.QueriesLast24h, &stats.SuccessRate)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
