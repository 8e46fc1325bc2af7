package postgres_test

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/arkady/edgarflow/internal/domain"
	"github.com/arkady/edgarflow/internal/infrastructure/persistence/postgres"
	"github.com/arkady/edgarflow/internal/ptr"
)

// TestStore_JobLifecycle exercises insert, claim, complete and the
// retry-vs-terminal-fail transition against a real Postgres instance.
func TestStore_JobLifecycle(t *testing.T) {
	pgURL := os.Getenv("TEST_POSTGRES_URL")
	if pgURL == "" {
		t.Skip("TEST_POSTGRES_URL not set, skipping PostgreSQL tests")
	}

	ctx := context.Background()
	store, err := postgres.NewPostgresStore(ctx, pgURL)
	require.NoError(t, err)
	defer store.Close()

	defer func() {
		db, err := sql.Open("pgx", pgURL)
		if err == nil {
			db.Exec("TRUNCATE TABLE jobs, pipeline_runs CASCADE")
			db.Close()
		}
	}()

	job, err := store.InsertJob(ctx, domain.JobSpec{
		Type:       domain.JobTypeTest,
		Params:     domain.RawParams(`{"echo":"hi"}`),
		MaxRetries: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.JobPending, job.Status)

	claimed, err := store.ClaimNextPending(ctx, "worker-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, job.ID, claimed.ID)
	assert.Equal(t, domain.JobInProgress, claimed.Status)

	again, err := store.ClaimNextPending(ctx, "worker-2")
	require.NoError(t, err)
	assert.Nil(t, again)

	completed, err := store.CompleteJob(ctx, job.ID, "worker-1", domain.RawParams(`{"ok":true}`))
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, completed.Status)
}

// TestStore_InsertJobHonorsCriticalPriority guards against priority 0
// ("critical", the most urgent level) being coerced into the unset
// default: JobSpec.Priority is a *int precisely so a caller can enqueue
// a P0 job, distinct from a caller that omits Priority entirely.
func TestStore_InsertJobHonorsCriticalPriority(t *testing.T) {
	pgURL := os.Getenv("TEST_POSTGRES_URL")
	if pgURL == "" {
		t.Skip("TEST_POSTGRES_URL not set, skipping PostgreSQL tests")
	}

	ctx := context.Background()
	store, err := postgres.NewPostgresStore(ctx, pgURL)
	require.NoError(t, err)
	defer store.Close()

	defer func() {
		db, err := sql.Open("pgx", pgURL)
		if err == nil {
			db.Exec("TRUNCATE TABLE jobs, pipeline_runs CASCADE")
			db.Close()
		}
	}()

	critical, err := store.InsertJob(ctx, domain.JobSpec{
		Type:     domain.JobTypeTest,
		Params:   domain.RawParams(`{}`),
		Priority: ptr.To(0),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, critical.Priority)

	unset, err := store.InsertJob(ctx, domain.JobSpec{
		Type:   domain.JobTypeTest,
		Params: domain.RawParams(`{}`),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPriority, unset.Priority)

	claimed, err := store.ClaimNextPending(ctx, "worker-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, critical.ID, claimed.ID, "the critical (priority 0) job must claim before the default-priority job")
}

// TestStore_FailJobRetriesThenTerminates exercises the retry-count CASE
// transition: retries while under max_retries, terminal failure once
// exhausted.
func TestStore_FailJobRetriesThenTerminates(t *testing.T) {
	pgURL := os.Getenv("TEST_POSTGRES_URL")
	if pgURL == "" {
		t.Skip("TEST_POSTGRES_URL not set, skipping PostgreSQL tests")
	}

	ctx := context.Background()
	store, err := postgres.NewPostgresStore(ctx, pgURL)
	require.NoError(t, err)
	defer store.Close()

	defer func() {
		db, err := sql.Open("pgx", pgURL)
		if err == nil {
			db.Exec("TRUNCATE TABLE jobs, pipeline_runs CASCADE")
			db.Close()
		}
	}()

	job, err := store.InsertJob(ctx, domain.JobSpec{
		Type:       domain.JobTypeTest,
		Params:     domain.RawParams(`{}`),
		MaxRetries: 2,
	})
	require.NoError(t, err)

	claimed, err := store.ClaimNextPending(ctx, "worker-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)

	retried, err := store.FailJob(ctx, job.ID, "worker-1", "boom")
	require.NoError(t, err)
	assert.Equal(t, domain.JobPending, retried.Status)
	assert.Equal(t, 1, retried.RetryCount)

	reclaimed, err := store.ClaimNextPending(ctx, "worker-1")
	require.NoError(t, err)
	require.NotNil(t, reclaimed)
	assert.Equal(t, job.ID, reclaimed.ID)

	failed, err := store.FailJob(ctx, job.ID, "worker-1", "boom")
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, failed.Status)
	assert.Equal(t, 2, failed.RetryCount)
}
