package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkady/edgarflow/internal/domain"
	"github.com/arkady/edgarflow/internal/handler"
	"github.com/arkady/edgarflow/internal/queue"
	"github.com/arkady/edgarflow/internal/worker"
)

// fakeStore is an in-memory queue.Store, grounded on the teacher's
// in-memory test doubles in internal/application/worker/worker_test.go
// (a map-backed store guarded by a mutex, ordered claim by priority
// then creation order) rather than spinning up Postgres for worker
// pool unit tests.
type fakeStore struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
	seq  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[string]*domain.Job)}
}

func (s *fakeStore) InsertJob(ctx context.Context, spec domain.JobSpec) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id, err := domain.NewJobID()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	priority := domain.DefaultPriority
	if spec.Priority != nil {
		priority = *spec.Priority
	}
	maxRetries := spec.MaxRetries
	if maxRetries == 0 {
		maxRetries = domain.DefaultMaxRetries
	}
	job := &domain.Job{
		ID:         id,
		Type:       spec.Type,
		Params:     spec.Params,
		Priority:   priority,
		Status:     domain.JobPending,
		CreatedAt:  now,
		UpdatedAt:  now,
		MaxRetries: maxRetries,
	}
	s.jobs[id] = job
	clone := *job
	return &clone, nil
}

func (s *fakeStore) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *job
	return &clone, nil
}

func (s *fakeStore) ListJobs(ctx context.Context, filter queue.Filter, limit, offset int) ([]*domain.Job, error) {
	return nil, nil
}

func (s *fakeStore) ClaimNextPending(ctx context.Context, workerID string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *domain.Job
	for _, job := range s.jobs {
		if job.Status != domain.JobPending {
			continue
		}
		if best == nil || job.Priority < best.Priority || (job.Priority == best.Priority && job.CreatedAt.Before(best.CreatedAt)) {
			best = job
		}
	}
	if best == nil {
		return nil, nil
	}
	now := time.Now()
	best.Status = domain.JobInProgress
	best.WorkerID = &workerID
	best.StartedAt = &now
	best.UpdatedAt = now
	clone := *best
	return &clone, nil
}

func (s *fakeStore) CompleteJob(ctx context.Context, id, workerID string, result domain.RawParams) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if job.WorkerID == nil || *job.WorkerID != workerID || job.Status != domain.JobInProgress {
		return nil, domain.ErrConflict
	}
	now := time.Now()
	job.Status = domain.JobCompleted
	job.Result = result
	job.CompletedAt = &now
	job.UpdatedAt = now
	clone := *job
	return &clone, nil
}

func (s *fakeStore) FailJob(ctx context.Context, id, workerID, errMsg string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if job.WorkerID == nil || *job.WorkerID != workerID || job.Status != domain.JobInProgress {
		return nil, domain.ErrConflict
	}
	job.RetryCount++
	job.Error = &errMsg
	job.UpdatedAt = time.Now()
	if job.RetryCount < job.MaxRetries {
		job.Status = domain.JobPending
		job.WorkerID = nil
		job.StartedAt = nil
	} else {
		job.Status = domain.JobFailed
		now := time.Now()
		job.CompletedAt = &now
	}
	clone := *job
	return &clone, nil
}

func (s *fakeStore) FailJobTerminal(ctx context.Context, id, workerID, errMsg string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	job.Status = domain.JobFailed
	job.Error = &errMsg
	now := time.Now()
	job.CompletedAt = &now
	job.UpdatedAt = now
	clone := *job
	return &clone, nil
}

func (s *fakeStore) CancelPendingJob(ctx context.Context, id string) (*domain.Job, error) {
	return nil, nil
}

func (s *fakeStore) SweepStale(ctx context.Context, thresholdSeconds int) ([]*domain.Job, error) {
	return nil, nil
}

func registryWith(jobType domain.JobType, fn handler.Func) *handler.Registry {
	r := handler.NewRegistry()
	r.Register(jobType, fn)
	r.Freeze()
	return r
}

func TestPool_MissingHandlerFailsTerminalWithoutConsumingRetryBudget(t *testing.T) {
	store := newFakeStore()
	job, err := store.InsertJob(context.Background(), domain.JobSpec{Type: "unregistered_type", MaxRetries: 3})
	require.NoError(t, err)

	registry := handler.NewRegistry()
	registry.Register("test", func(ctx context.Context, raw domain.RawParams) (domain.RawParams, error) {
		return nil, nil
	})
	registry.Freeze()

	pool := worker.New(store, registry, worker.Config{
		PollInterval:          10 * time.Millisecond,
		StaleCheckInterval:    time.Hour,
		StaleThresholdSeconds: 600,
		OperationTimeout:      time.Second,
	}, domain.SystemClock{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		got, err := store.GetJob(context.Background(), job.ID)
		return err == nil && got.Status == domain.JobFailed
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	got, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, got.Status)
	assert.Equal(t, 0, got.RetryCount, "a missing-handler failure must not consume retry budget")
}

func TestPool_FailingHandlerConsumesRetryBudgetThenTerminates(t *testing.T) {
	store := newFakeStore()
	job, err := store.InsertJob(context.Background(), domain.JobSpec{Type: "flaky", MaxRetries: 2})
	require.NoError(t, err)

	var attempts int
	var mu sync.Mutex
	registry := registryWith("flaky", func(ctx context.Context, raw domain.RawParams) (domain.RawParams, error) {
		mu.Lock()
		attempts++
		mu.Unlock()
		return nil, assert.AnError
	})

	pool := worker.New(store, registry, worker.Config{
		PollInterval:          5 * time.Millisecond,
		StaleCheckInterval:    time.Hour,
		StaleThresholdSeconds: 600,
		OperationTimeout:      time.Second,
	}, domain.SystemClock{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		got, err := store.GetJob(context.Background(), job.ID)
		return err == nil && got.Status == domain.JobFailed
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done

	got, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, got.Status)
	assert.Equal(t, 2, got.RetryCount)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, attempts, "handler should run once per retry attempt")
}
