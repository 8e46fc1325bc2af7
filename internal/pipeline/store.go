// Package pipeline tracks multi-job workflows ("runs") for a single
// company, aggregating job outcomes into completed/partial/failed and
// counting consecutive failures for alerting.
package pipeline

import (
	"context"

	"github.com/arkady/edgarflow/internal/domain"
)

// Store is the narrow persistence contract the pipeline run tracker
// needs, implemented by the Postgres adapter.
type Store interface {
	// CreateRun creates a new run in domain.RunPending.
	CreateRun(ctx context.Context, spec domain.RunSpec) (*domain.PipelineRun, error)

	// GetRun fetches a run by id. Returns domain.ErrNotFound if absent.
	GetRun(ctx context.Context, id string) (*domain.PipelineRun, error)

	// ListRuns returns runs for a company, most recent first.
	ListRuns(ctx context.Context, companyID string, limit int) ([]*domain.PipelineRun, error)

	// StartRun transitions a run to domain.RunRunning, stamping
	// started_at.
	StartRun(ctx context.Context, id string) (*domain.PipelineRun, error)

	// CompleteRun sets the terminal status (already decided by the
	// caller via domain.ClassifyCompletion), counters, and completed_at.
	CompleteRun(ctx context.Context, id string, status domain.RunStatus, jobsCreated, jobsCompleted, jobsFailed int) (*domain.PipelineRun, error)

	// FailRun unconditionally sets domain.RunFailed with the given
	// error and counters.
	FailRun(ctx context.Context, id, errMsg string, jobsCreated, jobsCompleted, jobsFailed int) (*domain.PipelineRun, error)

	// LatestRunPerCompany returns one row per company with a non-null
	// started_at, most recent first.
	LatestRunPerCompany(ctx context.Context) ([]*domain.PipelineRun, error)

	// ListRunningRuns returns every run currently in domain.RunRunning,
	// regardless of whether a newer run exists for the same company.
	// Used by the stale-run alert, which must not miss a run stuck in
	// running just because a later tick started a fresh one for the
	// same company.
	ListRunningRuns(ctx context.Context) ([]*domain.PipelineRun, error)

	// RecentRuns returns the most recent `window` runs for a company,
	// newest first, used by CountConsecutiveFailures.
	RecentRuns(ctx context.Context, companyID string, window int) ([]*domain.PipelineRun, error)
}
