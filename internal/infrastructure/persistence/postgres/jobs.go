package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/arkady/edgarflow/internal/domain"
	"github.com/arkady/edgarflow/internal/queue"
)

const jobColumns = `id, type, params, priority, status, worker_id, created_at, updated_at,
	started_at, completed_at, retry_count, max_retries, result, error`

func scanJob(row pgx.Row) (*domain.Job, error) {
	var j domain.Job
	var paramsBytes, resultBytes []byte
	if err := row.Scan(
		&j.ID, &j.Type, &paramsBytes, &j.Priority, &j.Status, &j.WorkerID,
		&j.CreatedAt, &j.UpdatedAt, &j.StartedAt, &j.CompletedAt,
		&j.RetryCount, &j.MaxRetries, &resultBytes, &j.Error,
	); err != nil {
		return nil, err
	}
	j.Params = domain.RawParams(paramsBytes)
	j.Result = domain.RawParams(resultBytes)
	return &j, nil
}

// InsertJob creates a new job in domain.JobPending.
func (s *Store) InsertJob(ctx context.Context, spec domain.JobSpec) (*domain.Job, error) {
	id, err := domain.NewJobID()
	if err != nil {
		return nil, fmt.Errorf("generate job id: %w", err)
	}

	priority := domain.DefaultPriority
	if spec.Priority != nil {
		priority = *spec.Priority
	}
	maxRetries := spec.MaxRetries
	if maxRetries == 0 {
		maxRetries = domain.DefaultMaxRetries
	}

	params := spec.Params
	if params == nil {
		params = domain.RawParams("{}")
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO jobs (id, type, params, priority, status, max_retries)
		VALUES ($1, $2, $3, $4, 'pending', $5)
		RETURNING `+jobColumns,
		id, spec.Type, []byte(params), priority, maxRetries,
	)
	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// GetJob fetches a job by id.
func (s *Store) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// ListJobs returns jobs matching filter, ordered by created_at desc.
func (s *Store) ListJobs(ctx context.Context, filter queue.Filter, limit, offset int) ([]*domain.Job, error) {
	var conds []string
	var args []any

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}

	q := `SELECT ` + jobColumns + ` FROM jobs`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit, offset)
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ClaimNextPending is the single non-negotiable primitive (spec §4.B):
// select the oldest, highest-priority pending row, acquiring a
// row-level lock that skips rows already locked by another claim, then
// transition it to in_progress under workerID — all in one transaction
// so two concurrent claims can never return the same job.
func (s *Store) ClaimNextPending(ctx context.Context, workerID string) (*domain.Job, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	err = tx.QueryRow(ctx, `
		SELECT id FROM jobs
		WHERE status = 'pending'
		ORDER BY priority ASC, created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select next pending: %w", err)
	}

	row := tx.QueryRow(ctx, `
		UPDATE jobs
		SET status = 'in_progress', worker_id = $2, started_at = now(), updated_at = now()
		WHERE id = $1
		RETURNING `+jobColumns,
		id, workerID,
	)
	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("claim job %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim transaction: %w", err)
	}
	return job, nil
}

// CompleteJob transitions a job to domain.JobCompleted under ownership
// check: the row must still be in_progress and held by workerID.
func (s *Store) CompleteJob(ctx context.Context, id, workerID string, result domain.RawParams) (*domain.Job, error) {
	if result == nil {
		result = domain.RawParams("null")
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE jobs
		SET status = 'completed', result = $3, completed_at = now(), updated_at = now()
		WHERE id = $1 AND worker_id = $2 AND status = 'in_progress'
		RETURNING `+jobColumns,
		id, workerID, []byte(result),
	)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("complete job %s: %w", id, err)
	}
	return job, nil
}

// FailJob implements the retry policy (spec §4.B): the job's
// retry_count is incremented and, if it remains under max_retries, the
// job re-enters pending with its lease cleared and original created_at
// (and hence queue position) intact; otherwise it terminal-fails. A
// failed job's retry_count always equals max_retries exactly (spec §8
// property 2) — the increment that reaches max_retries is the one
// that also flips status to failed, in the same statement.
func (s *Store) FailJob(ctx context.Context, id, workerID, errMsg string) (*domain.Job, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE jobs
		SET
			retry_count = retry_count + 1,
			error = $3,
			updated_at = now(),
			status = CASE WHEN retry_count + 1 < max_retries THEN 'pending' ELSE 'failed' END,
			worker_id = CASE WHEN retry_count + 1 < max_retries THEN NULL ELSE worker_id END,
			started_at = CASE WHEN retry_count + 1 < max_retries THEN NULL ELSE started_at END,
			completed_at = CASE WHEN retry_count + 1 < max_retries THEN NULL ELSE now() END
		WHERE id = $1 AND worker_id = $2 AND status = 'in_progress'
		RETURNING `+jobColumns,
		id, workerID, errMsg,
	)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("fail job %s: %w", id, err)
	}
	return job, nil
}

// FailJobTerminal immediately fails a job without consuming retry
// budget, for the missing-handler configuration defect (spec §4.C
// step 4), which is not a transient condition worth retrying.
func (s *Store) FailJobTerminal(ctx context.Context, id, workerID, errMsg string) (*domain.Job, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE jobs
		SET status = 'failed', error = $3, completed_at = now(), updated_at = now()
		WHERE id = $1 AND worker_id = $2 AND status = 'in_progress'
		RETURNING `+jobColumns,
		id, workerID, errMsg,
	)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("terminal-fail job %s: %w", id, err)
	}
	return job, nil
}

// CancelPendingJob cancels a job only if it is currently pending.
func (s *Store) CancelPendingJob(ctx context.Context, id string) (*domain.Job, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE jobs
		SET status = 'cancelled', completed_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+jobColumns,
		id,
	)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := s.GetJob(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("cancel job %s: %w", id, err)
	}
	return job, nil
}

// SweepStale finds in_progress jobs whose updated_at predates
// thresholdSeconds and runs each through the same retry-or-fail
// transition FailJob uses (with the distinguished stale error
// message), regardless of which worker held the lease.
func (s *Store) SweepStale(ctx context.Context, thresholdSeconds int) ([]*domain.Job, error) {
	errMsg := domain.StaleErrorMessage(thresholdSeconds)

	rows, err := s.pool.Query(ctx, `
		UPDATE jobs
		SET
			retry_count = retry_count + 1,
			error = $2,
			updated_at = now(),
			status = CASE WHEN retry_count + 1 < max_retries THEN 'pending' ELSE 'failed' END,
			worker_id = CASE WHEN retry_count + 1 < max_retries THEN NULL ELSE worker_id END,
			started_at = CASE WHEN retry_count + 1 < max_retries THEN NULL ELSE started_at END,
			completed_at = CASE WHEN retry_count + 1 < max_retries THEN NULL ELSE now() END
		WHERE status = 'in_progress' AND updated_at < now() - ($1 * interval '1 second')
		RETURNING `+jobColumns,
		thresholdSeconds, errMsg,
	)
	if err != nil {
		return nil, fmt.Errorf("sweep stale jobs: %w", err)
	}
	defer rows.Close()

	var recovered []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan swept job: %w", err)
		}
		recovered = append(recovered, job)
	}
	return recovered, rows.Err()
}
