package repository

import (
	"context"
	"time"

	"github.com/archiva-labs/doclib/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository handles persistence of document chunks and their
// embeddings. The chunks table is the durable source the index is rebuilt
// from when its snapshot is missing or corrupt.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceForDocument deletes existing chunks for a document and inserts new ones.
func (r *ChunkRepository) ReplaceForDocument(ctx context.Context, documentID string, chunks []*domain.Chunk) error {
	_, err := r.db.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return err
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO chunks
				(id, document_id, chunk_index, content, start_char, end_char, page, embedding, embedding_model, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			c.ID,
			c.DocumentID,
			c.ChunkIndex,
			c.Content,
			c.StartChar,
			c.EndChar,
			c.Page,
			pgvector.NewVector(c.Embedding),
			c.EmbeddingModel,
			createdAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *ChunkRepository) ListByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, chunk_index, content, start_char, end_char, page, embedding, embedding_model, created_at
		 FROM chunks WHERE document_id = $1 ORDER BY chunk_index ASC`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

// ListAll returns every chunk in the corpus, ordered for deterministic
// index rebuilds.
func (r *ChunkRepository) ListAll(ctx context.Context) ([]*domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, chunk_index, content, start_char, end_char, page, embedding, embedding_model, created_at
		 FROM chunks ORDER BY document_id ASC, chunk_index ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	return err
}

func scanChunkRows(rows pgx.Rows) ([]*domain.Chunk, error) {
	var chunks []*domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var embedding pgvector.Vector
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.StartChar, &c.EndChar, &c.Page, &embedding, &c.EmbeddingModel, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Embedding = embedding.Slice()
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}
