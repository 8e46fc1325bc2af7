package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkady/edgarflow/internal/domain"
	"github.com/arkady/edgarflow/internal/pipeline"
)

// fakeStore is an in-memory pipeline.Store, letting the classification
// and alerting logic in Tracker be tested without a database. order
// tracks insertion sequence so RecentRuns can return newest-first
// without depending on Go's randomized map iteration.
type fakeStore struct {
	runs   map[string]*domain.PipelineRun
	order  []string
	nextID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{runs: make(map[string]*domain.PipelineRun)}
}

func (s *fakeStore) CreateRun(ctx context.Context, spec domain.RunSpec) (*domain.PipelineRun, error) {
	s.nextID++
	run := &domain.PipelineRun{
		ID:        "run-" + string(rune('0'+s.nextID)),
		CompanyID: spec.CompanyID,
		Trigger:   spec.Trigger,
		Status:    domain.RunPending,
		Forms:     spec.Forms,
		Metadata:  spec.Metadata,
	}
	s.runs[run.ID] = run
	s.order = append(s.order, run.ID)
	clone := *run
	return &clone, nil
}

func (s *fakeStore) GetRun(ctx context.Context, id string) (*domain.PipelineRun, error) {
	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *run
	return &clone, nil
}

func (s *fakeStore) ListRuns(ctx context.Context, companyID string, limit int) ([]*domain.PipelineRun, error) {
	return nil, nil
}

func (s *fakeStore) StartRun(ctx context.Context, id string) (*domain.PipelineRun, error) {
	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	now := time.Now()
	run.Status = domain.RunRunning
	run.StartedAt = &now
	clone := *run
	return &clone, nil
}

func (s *fakeStore) CompleteRun(ctx context.Context, id string, status domain.RunStatus, jobsCreated, jobsCompleted, jobsFailed int) (*domain.PipelineRun, error) {
	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	now := time.Now()
	run.Status = status
	run.CompletedAt = &now
	run.JobsCreated, run.JobsCompleted, run.JobsFailed = jobsCreated, jobsCompleted, jobsFailed
	clone := *run
	return &clone, nil
}

func (s *fakeStore) FailRun(ctx context.Context, id, errMsg string, jobsCreated, jobsCompleted, jobsFailed int) (*domain.PipelineRun, error) {
	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	now := time.Now()
	run.Status = domain.RunFailed
	run.Error = &errMsg
	run.CompletedAt = &now
	run.JobsCreated, run.JobsCompleted, run.JobsFailed = jobsCreated, jobsCompleted, jobsFailed
	clone := *run
	return &clone, nil
}

func (s *fakeStore) LatestRunPerCompany(ctx context.Context) ([]*domain.PipelineRun, error) {
	out := make([]*domain.PipelineRun, 0, len(s.runs))
	for _, r := range s.runs {
		clone := *r
		out = append(out, &clone)
	}
	return out, nil
}

func (s *fakeStore) ListRunningRuns(ctx context.Context) ([]*domain.PipelineRun, error) {
	var out []*domain.PipelineRun
	for _, id := range s.order {
		run := s.runs[id]
		if run.Status != domain.RunRunning {
			continue
		}
		clone := *run
		out = append(out, &clone)
	}
	return out, nil
}

func (s *fakeStore) RecentRuns(ctx context.Context, companyID string, window int) ([]*domain.PipelineRun, error) {
	var out []*domain.PipelineRun
	for i := len(s.order) - 1; i >= 0 && len(out) < window; i-- {
		run := s.runs[s.order[i]]
		if run.CompanyID != companyID {
			continue
		}
		clone := *run
		out = append(out, &clone)
	}
	return out, nil
}

func TestTracker_CompleteRun_ClassifiesPartialWheneverAJobFailed(t *testing.T) {
	store := newFakeStore()
	tracker := pipeline.NewTracker(store, domain.SystemClock{})

	run, err := tracker.CreateRun(context.Background(), domain.RunSpec{CompanyID: "co-1", Trigger: domain.TriggerManual})
	require.NoError(t, err)

	completed, err := tracker.CompleteRun(context.Background(), run.ID, 5, 4, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.RunPartial, completed.Status)

	run2, err := tracker.CreateRun(context.Background(), domain.RunSpec{CompanyID: "co-1", Trigger: domain.TriggerManual})
	require.NoError(t, err)
	completed2, err := tracker.CompleteRun(context.Background(), run2.ID, 3, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, completed2.Status)
}

func TestTracker_FailRun_RecordsCauseUnconditionally(t *testing.T) {
	store := newFakeStore()
	tracker := pipeline.NewTracker(store, domain.SystemClock{})

	run, err := tracker.CreateRun(context.Background(), domain.RunSpec{CompanyID: "co-1", Trigger: domain.TriggerScheduled})
	require.NoError(t, err)

	failed, err := tracker.FailRun(context.Background(), run.ID, errors.New("edgar unreachable"), 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, failed.Status)
	require.NotNil(t, failed.Error)
	assert.Equal(t, "edgar unreachable", *failed.Error)
}

func TestTracker_StaleRuns_OnlyFlagsRunningPastThreshold(t *testing.T) {
	store := newFakeStore()
	clock := domain.NewFixedClock(time.Now())
	tracker := pipeline.NewTracker(store, clock)

	run, err := tracker.CreateRun(context.Background(), domain.RunSpec{CompanyID: "co-1", Trigger: domain.TriggerScheduled})
	require.NoError(t, err)
	_, err = tracker.StartRun(context.Background(), run.ID)
	require.NoError(t, err)

	// StartRun stamped started_at using time.Now(), not the fixed clock,
	// so advance the fixed clock well past any threshold.
	clock.Advance(3 * time.Hour)

	stale, err := tracker.StaleRuns(context.Background(), time.Hour)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, run.ID, stale[0].ID)
}

// TestTracker_StaleRuns_NotMaskedByNewerRunForSameCompany guards against
// narrowing the stale scan to each company's latest run: a run stuck in
// running must still be flagged even after a later tick starts (and
// completes) a fresh run for that same company.
func TestTracker_StaleRuns_NotMaskedByNewerRunForSameCompany(t *testing.T) {
	store := newFakeStore()
	clock := domain.NewFixedClock(time.Now())
	tracker := pipeline.NewTracker(store, clock)
	ctx := context.Background()

	stuck, err := tracker.CreateRun(ctx, domain.RunSpec{CompanyID: "co-1", Trigger: domain.TriggerScheduled})
	require.NoError(t, err)
	_, err = tracker.StartRun(ctx, stuck.ID)
	require.NoError(t, err)

	clock.Advance(3 * time.Hour)

	newer, err := tracker.CreateRun(ctx, domain.RunSpec{CompanyID: "co-1", Trigger: domain.TriggerScheduled})
	require.NoError(t, err)
	_, err = tracker.StartRun(ctx, newer.ID)
	require.NoError(t, err)
	_, err = tracker.CompleteRun(ctx, newer.ID, 1, 1, 0)
	require.NoError(t, err)

	stale, err := tracker.StaleRuns(ctx, time.Hour)
	require.NoError(t, err)
	require.Len(t, stale, 1, "the stuck running run must still be flagged even though a newer completed run exists")
	assert.Equal(t, stuck.ID, stale[0].ID)
}

func TestTracker_CountConsecutiveFailures_StopsAtFirstNonFailure(t *testing.T) {
	store := newFakeStore()
	tracker := pipeline.NewTracker(store, domain.SystemClock{})
	ctx := context.Background()

	mkRun := func(jobsFailed int) {
		run, err := tracker.CreateRun(ctx, domain.RunSpec{CompanyID: "co-1", Trigger: domain.TriggerScheduled})
		require.NoError(t, err)
		_, err = tracker.CompleteRun(ctx, run.ID, 1, 1-jobsFailed, jobsFailed)
		require.NoError(t, err)
	}

	mkRun(0) // oldest: completed
	mkRun(1) // partial
	mkRun(1) // partial
	mkRun(1) // newest: partial -> 3 consecutive failures

	count, err := tracker.CountConsecutiveFailures(ctx, "co-1", 10)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
