// Package queue defines the durable, priority-ordered job queue contract.
// The queue itself holds no state; internal/infrastructure/persistence/postgres
// implements Store against Postgres using SKIP LOCKED claims.
package queue

import (
	"context"

	"github.com/arkady/edgarflow/internal/domain"
)

// Filter narrows ListJobs results. Zero-value fields are unfiltered.
type Filter struct {
	Status *domain.JobStatus
	Type   *domain.JobType
}

// Store is the narrow persistence contract the job queue needs,
// implemented by the Postgres adapter. It is owned by this package
// (the consumer), not by the storage package, so the queue's business
// logic never depends on a concrete database driver.
type Store interface {
	// InsertJob creates a new job in domain.JobPending and returns it.
	InsertJob(ctx context.Context, spec domain.JobSpec) (*domain.Job, error)

	// GetJob fetches a job by id. Returns domain.ErrNotFound if absent.
	GetJob(ctx context.Context, id string) (*domain.Job, error)

	// ListJobs returns jobs matching filter, ordered by created_at desc.
	ListJobs(ctx context.Context, filter Filter, limit, offset int) ([]*domain.Job, error)

	// ClaimNextPending atomically selects and leases the highest-priority,
	// oldest pending job via SKIP LOCKED, or returns (nil, nil) if none
	// is available. See the Postgres adapter for the exact claim query.
	ClaimNextPending(ctx context.Context, workerID string) (*domain.Job, error)

	// CompleteJob transitions a job to domain.JobCompleted, recording
	// result and completed_at. Returns domain.ErrConflict if the job is
	// not currently in_progress under workerID.
	CompleteJob(ctx context.Context, id, workerID string, result domain.RawParams) (*domain.Job, error)

	// FailJob implements the retry policy: appends errMsg, increments
	// retry_count, and either re-queues the job (clearing worker_id and
	// started_at) or terminally fails it, depending on whether retries
	// remain. Returns domain.ErrConflict if the job is not currently
	// in_progress under workerID.
	FailJob(ctx context.Context, id, workerID, errMsg string) (*domain.Job, error)

	// FailJobTerminal immediately sets a job to domain.JobFailed without
	// consuming retry budget, for configuration-defect failures (no
	// handler registered) rather than ordinary handler errors.
	FailJobTerminal(ctx context.Context, id, workerID, errMsg string) (*domain.Job, error)

	// CancelPendingJob cancels a job only if it is currently pending.
	// Returns domain.ErrConflict otherwise.
	CancelPendingJob(ctx context.Context, id string) (*domain.Job, error)

	// SweepStale finds in_progress jobs whose updated_at predates
	// thresholdSeconds and runs each through the same retry-or-fail
	// transition as FailJob, with the distinguished stale error
	// message. Returns the jobs that were recovered.
	SweepStale(ctx context.Context, thresholdSeconds int) ([]*domain.Job, error)
}
