// Package worker implements the worker pool: one process, one poll
// loop, sequential handler execution, horizontal scale by adding more
// processes (spec §4.C, §5).
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/arkady/edgarflow/internal/domain"
	"github.com/arkady/edgarflow/internal/handler"
	"github.com/arkady/edgarflow/internal/queue"
	"github.com/arkady/edgarflow/internal/shutdown"
)

// Config holds the tunables for a Pool, matching spec §6's
// WORKER_* environment variables.
type Config struct {
	PollInterval          time.Duration
	StaleCheckInterval    time.Duration
	StaleThresholdSeconds int
	OperationTimeout      time.Duration
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:          2 * time.Second,
		StaleCheckInterval:    60 * time.Second,
		StaleThresholdSeconds: 600,
		OperationTimeout:      30 * time.Second,
	}
}

// Pool is a single worker process's poll loop.
type Pool struct {
	id       string
	store    queue.Store
	registry *handler.Registry
	cfg      Config
	clock    domain.Clock
}

// New builds a Pool over store, dispatching through registry (which
// must already be frozen). Identity is <hostname>-<pid>, computed once
// here per spec §4.C.
func New(store queue.Store, registry *handler.Registry, cfg Config, clock domain.Clock) *Pool {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Pool{
		id:       workerID(),
		store:    store,
		registry: registry,
		cfg:      cfg,
		clock:    clock,
	}
}

func workerID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown-host"
	}
	return host + "-" + strconv.Itoa(os.Getpid())
}

// ID returns this pool's worker identity.
func (p *Pool) ID() string { return p.id }

// Run blocks in the poll loop described in spec §4.C until ctx is
// cancelled, at which point it finishes any in-flight complete/fail
// call and returns nil.
func (p *Pool) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "worker started", "worker_id", p.id, "handlers", p.registry.Types())

	lastSweep := p.clock.Now()

	for {
		if shutdown.Requested(ctx) {
			slog.InfoContext(ctx, "worker shutdown", "worker_id", p.id)
			return nil
		}

		if p.clock.Now().Sub(lastSweep) >= p.cfg.StaleCheckInterval {
			p.sweepStale(ctx)
			lastSweep = p.clock.Now()
		}

		job, err := p.claim(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "claim error", "worker_id", p.id, "error", err)
			if err := shutdown.SleepChunked(ctx, p.cfg.PollInterval); err != nil {
				return nil
			}
			continue
		}

		if job == nil {
			if err := shutdown.SleepChunked(ctx, p.cfg.PollInterval); err != nil {
				return nil
			}
			continue
		}

		p.process(ctx, job)
	}
}

func (p *Pool) sweepStale(ctx context.Context) {
	opCtx, cancel := context.WithTimeout(ctx, p.cfg.OperationTimeout)
	defer cancel()

	recovered, err := p.store.SweepStale(opCtx, p.cfg.StaleThresholdSeconds)
	if err != nil {
		slog.ErrorContext(ctx, "stale sweep error", "worker_id", p.id, "error", err)
		return
	}
	if len(recovered) > 0 {
		slog.InfoContext(ctx, "stale sweep complete", "worker_id", p.id, "recovered", len(recovered))
	}
}

func (p *Pool) claim(ctx context.Context) (*domain.Job, error) {
	opCtx, cancel := context.WithTimeout(ctx, p.cfg.OperationTimeout)
	defer cancel()
	return p.store.ClaimNextPending(opCtx, p.id)
}

// process dispatches one claimed job to its handler and reports the
// outcome. Per spec §4.C step 4, a missing handler terminal-fails the
// job with no retry; per step 5, a successful handler completes the
// job and a failing one records the error for the retry policy to act
// on.
func (p *Pool) process(ctx context.Context, job *domain.Job) {
	slog.InfoContext(ctx, "executing job", "job_id", job.ID, "job_type", job.Type, "worker_id", p.id)

	fn, ok := p.registry.Get(job.Type)
	if !ok {
		p.failTerminal(ctx, job.ID, fmt.Sprintf("No handler registered for %s", job.Type))
		return
	}

	result, err := p.executeWithRecovery(ctx, fn, job)
	if err != nil {
		if errors.Is(err, shutdown.ErrRequested) {
			slog.InfoContext(ctx, "job interrupted by shutdown", "job_id", job.ID)
			p.fail(ctx, job.ID, domain.ErrShutdownDuringExecution)
			return
		}
		slog.ErrorContext(ctx, "job execution failed", "job_id", job.ID, "error", err)
		p.fail(ctx, job.ID, err.Error())
		return
	}

	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.OperationTimeout)
	defer cancel()
	if _, err := p.store.CompleteJob(opCtx, job.ID, p.id, result); err != nil {
		slog.ErrorContext(ctx, "failed to mark job completed", "job_id", job.ID, "error", err)
		return
	}
	slog.InfoContext(ctx, "job completed", "job_id", job.ID)
}

// executeWithRecovery runs fn, converting a panic into an error instead
// of crashing the worker process. The recovered panic is logged with its
// stack and then recorded like any other handler failure, so it is
// subject to the same retry policy.
func (p *Pool) executeWithRecovery(ctx context.Context, fn handler.Func, job *domain.Job) (result domain.RawParams, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := string(debug.Stack())
			slog.ErrorContext(ctx, "job panicked", "job_id", job.ID, "panic", r, "stack", stack)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, job.Params)
}

func (p *Pool) fail(ctx context.Context, jobID, errMsg string) {
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.OperationTimeout)
	defer cancel()
	if _, err := p.store.FailJob(opCtx, jobID, p.id, errMsg); err != nil {
		slog.ErrorContext(ctx, "failed to mark job failed", "job_id", jobID, "error", err)
	}
}

// failTerminal handles the missing-handler case (spec §4.C step 4): a
// configuration defect, not a transient failure, so it never consumes
// retry budget.
func (p *Pool) failTerminal(ctx context.Context, jobID, errMsg string) {
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.OperationTimeout)
	defer cancel()
	if _, err := p.store.FailJobTerminal(opCtx, jobID, p.id, errMsg); err != nil {
		slog.ErrorContext(ctx, "failed to mark job terminally failed", "job_id", jobID, "error", err)
	}
}
