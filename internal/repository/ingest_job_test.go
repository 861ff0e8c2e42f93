//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archiva-labs/doclib/internal/domain"
	"github.com/archiva-labs/doclib/internal/testutil"
)

func newTestJob(t *testing.T, ctx context.Context, docRepo *DocumentRepository, jobRepo *IngestJobRepository) *domain.IngestJob {
	t.Helper()
	doc := newTestDocument()
	require.NoError(t, docRepo.Create(ctx, doc))

	job := &domain.IngestJob{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Status:     domain.IngestJobStatusPending,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, jobRepo.Create(ctx, job))
	return job
}

func TestIngestJobRepository_ClaimPending(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	jobRepo := NewIngestJobRepository(pool)

	first := newTestJob(t, ctx, docRepo, jobRepo)
	second := newTestJob(t, ctx, docRepo, jobRepo)

	claimed, err := jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	ids := []string{claimed[0].ID, claimed[1].ID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)
	for _, job := range claimed {
		assert.Equal(t, domain.IngestJobStatusProcessing, job.Status)
	}

	// Already claimed jobs are not returned again.
	again, err := jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestIngestJobRepository_ClaimPending_Limit(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	jobRepo := NewIngestJobRepository(pool)

	for i := 0; i < 3; i++ {
		newTestJob(t, ctx, docRepo, jobRepo)
	}

	claimed, err := jobRepo.ClaimPending(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, claimed, 2)

	rest, err := jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestIngestJobRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	jobRepo := NewIngestJobRepository(pool)

	job := newTestJob(t, ctx, docRepo, jobRepo)

	require.NoError(t, jobRepo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusCompleted, ""))

	retrieved, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestJobStatusCompleted, retrieved.Status)
	assert.NotNil(t, retrieved.ProcessedAt)

	err = jobRepo.UpdateStatus(ctx, uuid.NewString(), domain.IngestJobStatusFailed, "gone")
	assert.ErrorIs(t, err, ErrIngestJobNotFound)
}

func TestIngestJobRepository_RetryCycle(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	jobRepo := NewIngestJobRepository(pool)

	job := newTestJob(t, ctx, docRepo, jobRepo)

	claimed, err := jobRepo.ClaimPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	require.NoError(t, jobRepo.IncrementRetries(ctx, job.ID))
	require.NoError(t, jobRepo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusPending, "retry 1: transient failure"))

	requeued, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestJobStatusPending, requeued.Status)
	assert.Equal(t, 1, requeued.Retries)
	assert.Equal(t, "retry 1: transient failure", requeued.Error)

	reclaimed, err := jobRepo.ClaimPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)
	assert.Equal(t, job.ID, reclaimed[0].ID)
	assert.Equal(t, 1, reclaimed[0].Retries)
	assert.Empty(t, reclaimed[0].Error, "claiming clears the stale error")
}

func TestIngestJobRepository_CascadeOnDocumentDelete(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	jobRepo := NewIngestJobRepository(pool)

	job := newTestJob(t, ctx, docRepo, jobRepo)
	require.NoError(t, docRepo.Delete(ctx, job.DocumentID))

	_, err := jobRepo.GetByID(ctx, job.ID)
	assert.ErrorIs(t, err, ErrIngestJobNotFound)
}
