package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/arkady/edgarflow/internal/domain"
)

// Tracker is the pipeline run tracker: a thin layer over Store that
// owns the classification decisions spec'd in §4.D (which Store itself
// just persists) so they are unit-testable without a database.
type Tracker struct {
	store Store
	clock domain.Clock
}

// NewTracker builds a Tracker over store, using clock as the sole time
// source for IsStale-style read-time predicates performed by callers.
func NewTracker(store Store, clock domain.Clock) *Tracker {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Tracker{store: store, clock: clock}
}

// CreateRun creates a new run for a company.
func (t *Tracker) CreateRun(ctx context.Context, spec domain.RunSpec) (*domain.PipelineRun, error) {
	return t.store.CreateRun(ctx, spec)
}

// StartRun marks a run as actively executing.
func (t *Tracker) StartRun(ctx context.Context, id string) (*domain.PipelineRun, error) {
	return t.store.StartRun(ctx, id)
}

// CompleteRun finalizes a run that ran to normal completion (as opposed
// to an unconditional top-level failure, which goes through FailRun).
// Status is completed iff jobsFailed == 0, else partial — the code-path
// behavior the source system actually exhibits (see DESIGN.md).
func (t *Tracker) CompleteRun(ctx context.Context, id string, jobsCreated, jobsCompleted, jobsFailed int) (*domain.PipelineRun, error) {
	status := domain.ClassifyCompletion(jobsFailed)
	return t.store.CompleteRun(ctx, id, status, jobsCreated, jobsCompleted, jobsFailed)
}

// FailRun unconditionally terminates a run as failed, e.g. because an
// unrecoverable top-level error occurred before any jobs could be
// evaluated.
func (t *Tracker) FailRun(ctx context.Context, id string, cause error, jobsCreated, jobsCompleted, jobsFailed int) (*domain.PipelineRun, error) {
	return t.store.FailRun(ctx, id, cause.Error(), jobsCreated, jobsCompleted, jobsFailed)
}

// LatestRunPerCompany returns the most recent run for every company
// that has one.
func (t *Tracker) LatestRunPerCompany(ctx context.Context) ([]*domain.PipelineRun, error) {
	return t.store.LatestRunPerCompany(ctx)
}

// CountConsecutiveFailures examines the last `window` runs for a
// company, newest first, and returns the count of leading runs whose
// status is failed or partial, stopping at the first run with any
// other status. A successful run resets the counter to zero.
func (t *Tracker) CountConsecutiveFailures(ctx context.Context, companyID string, window int) (int, error) {
	if window <= 0 {
		window = domain.DefaultConsecutiveFailureWindow
	}
	runs, err := t.store.RecentRuns(ctx, companyID, window)
	if err != nil {
		return 0, fmt.Errorf("fetch recent runs for %s: %w", companyID, err)
	}

	count := 0
	for _, r := range runs {
		if r.Status == domain.RunFailed || r.Status == domain.RunPartial {
			count++
			continue
		}
		break
	}
	return count, nil
}

// StaleRuns scans every run currently in domain.RunRunning and returns
// those suspected-stale as of the tracker's clock (spec §4.E: "for each
// run in running whose started_at is older than threshold"). It
// deliberately does not narrow to each company's latest run first — a
// run stuck in running survives being superseded by a newer run for
// the same company, so a stuck run is never masked by the next tick's
// fresh run. This is always a read-time predicate; no stale status is
// ever persisted.
func (t *Tracker) StaleRuns(ctx context.Context, threshold time.Duration) ([]*domain.PipelineRun, error) {
	running, err := t.store.ListRunningRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("list running runs: %w", err)
	}

	now := t.clock.Now()
	var stale []*domain.PipelineRun
	for _, r := range running {
		if r.IsStale(now, threshold) {
			stale = append(stale, r)
		}
	}
	return stale, nil
}
