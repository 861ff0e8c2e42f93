package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/archiva-labs/doclib/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents
			(id, filename, content_type, file_size, status, chunk_count, error, title, author, category, tags, uploaded_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		doc.ID, doc.Filename, doc.ContentType, doc.FileSize, doc.Status, doc.ChunkCount,
		nullableString(doc.Error), nullableString(doc.Metadata.Title), nullableString(doc.Metadata.Author),
		nullableString(doc.Metadata.Category), doc.Metadata.Tags, doc.UploadedAt, doc.ProcessedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := scanDocument(r.db.QueryRow(ctx,
		`SELECT id, filename, content_type, file_size, status, chunk_count, error, title, author, category, tags, uploaded_at, processed_at
		 FROM documents WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepository) List(ctx context.Context, limit, offset int) ([]*domain.Document, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, filename, content_type, file_size, status, chunk_count, error, title, author, category, tags, uploaded_at, processed_at
		 FROM documents ORDER BY uploaded_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, doc)
	}
	return docs, total, rows.Err()
}

// UpdateStatus writes a document's lifecycle status. The transition is
// checked against the current row, so callers cannot move a document
// backwards through the lifecycle (for example processed to processing).
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, chunkCount int, errMsg string) error {
	var current domain.DocumentStatus
	if err := r.db.QueryRow(ctx, `SELECT status FROM documents WHERE id = $1`, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrDocumentNotFound
		}
		return err
	}
	if !domain.CanTransition(current, status) {
		return domain.NewDomainError(domain.ErrCodeInvalidOperation,
			fmt.Sprintf("document %s cannot transition from %s to %s", id, current, status))
	}

	var processedAt *time.Time
	if status == domain.DocumentStatusProcessed || status == domain.DocumentStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, chunk_count = $2, error = $3, processed_at = $4 WHERE id = $5`,
		status, chunkCount, nullableString(errMsg), processedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// Stats aggregates corpus-wide document analytics: totals, status and
// content-type breakdowns, and the ten most used tags.
func (r *DocumentRepository) Stats(ctx context.Context) (*domain.DocumentStats, error) {
	stats := &domain.DocumentStats{
		ByStatus:      make(map[string]int),
		ByContentType: make(map[string]int),
	}

	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(file_size), 0) FROM documents`,
	).Scan(&stats.TotalDocuments, &stats.TotalSizeBytes)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM documents GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Query(ctx, `SELECT content_type, COUNT(*) FROM documents GROUP BY content_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var contentType string
		var count int
		if err := rows.Scan(&contentType, &count); err != nil {
			return nil, err
		}
		stats.ByContentType[contentType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.db.Query(ctx,
		`SELECT t, COUNT(*) FROM documents, unnest(tags) AS t
		 GROUP BY t ORDER BY COUNT(*) DESC, t ASC LIMIT 10`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var tc domain.TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, err
		}
		stats.PopularTags = append(stats.PopularTags, tc)
	}
	return stats, rows.Err()
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var doc domain.Document
	var errMsg, title, author, category pgtype.Text
	err := row.Scan(&doc.ID, &doc.Filename, &doc.ContentType, &doc.FileSize, &doc.Status, &doc.ChunkCount,
		&errMsg, &title, &author, &category, &doc.Metadata.Tags, &doc.UploadedAt, &doc.ProcessedAt)
	if err != nil {
		return nil, err
	}
	if errMsg.Valid {
		doc.Error = errMsg.String
	}
	if title.Valid {
		doc.Metadata.Title = title.String
	}
	if author.Valid {
		doc.Metadata.Author = author.String
	}
	if category.Valid {
		doc.Metadata.Category = category.String
	}
	return &doc, nil
}
