package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/arkady/edgarflow/internal/domain"
)

const runColumns = `id, company_id, trigger, status, forms, started_at, completed_at,
	error, jobs_created, jobs_completed, jobs_failed, metadata`

func scanRun(row pgx.Row) (*domain.PipelineRun, error) {
	var r domain.PipelineRun
	var formsBytes, metaBytes []byte
	if err := row.Scan(
		&r.ID, &r.CompanyID, &r.Trigger, &r.Status, &formsBytes,
		&r.StartedAt, &r.CompletedAt, &r.Error,
		&r.JobsCreated, &r.JobsCompleted, &r.JobsFailed, &metaBytes,
	); err != nil {
		return nil, err
	}
	if len(formsBytes) > 0 {
		if err := json.Unmarshal(formsBytes, &r.Forms); err != nil {
			return nil, fmt.Errorf("unmarshal forms: %w", err)
		}
	}
	r.Metadata = domain.RawParams(metaBytes)
	return &r, nil
}

// CreateRun creates a new run in domain.RunPending.
func (s *Store) CreateRun(ctx context.Context, spec domain.RunSpec) (*domain.PipelineRun, error) {
	id, err := domain.NewJobID()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}

	formsJSON, err := json.Marshal(spec.Forms)
	if err != nil {
		return nil, fmt.Errorf("marshal forms: %w", err)
	}
	meta := spec.Metadata
	if meta == nil {
		meta = domain.RawParams("null")
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO pipeline_runs (id, company_id, trigger, status, forms, metadata)
		VALUES ($1, $2, $3, 'pending', $4, $5)
		RETURNING `+runColumns,
		id, spec.CompanyID, spec.Trigger, formsJSON, []byte(meta),
	)
	run, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// GetRun fetches a run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*domain.PipelineRun, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM pipeline_runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns runs for a company, most recent first.
func (s *Store) ListRuns(ctx context.Context, companyID string, limit int) ([]*domain.PipelineRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+runColumns+` FROM pipeline_runs
		WHERE company_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs for %s: %w", companyID, err)
	}
	defer rows.Close()
	return collectRuns(rows)
}

// StartRun transitions a run to domain.RunRunning, stamping started_at.
func (s *Store) StartRun(ctx context.Context, id string) (*domain.PipelineRun, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE pipeline_runs
		SET status = 'running', started_at = now()
		WHERE id = $1
		RETURNING `+runColumns,
		id,
	)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("start run %s: %w", id, err)
	}
	return run, nil
}

// CompleteRun sets the terminal status (already decided by the caller
// via domain.ClassifyCompletion), counters, and completed_at.
func (s *Store) CompleteRun(ctx context.Context, id string, status domain.RunStatus, jobsCreated, jobsCompleted, jobsFailed int) (*domain.PipelineRun, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE pipeline_runs
		SET status = $2, completed_at = now(),
			jobs_created = $3, jobs_completed = $4, jobs_failed = $5
		WHERE id = $1
		RETURNING `+runColumns,
		id, status, jobsCreated, jobsCompleted, jobsFailed,
	)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("complete run %s: %w", id, err)
	}
	return run, nil
}

// FailRun unconditionally sets domain.RunFailed with the given error
// and counters.
func (s *Store) FailRun(ctx context.Context, id, errMsg string, jobsCreated, jobsCompleted, jobsFailed int) (*domain.PipelineRun, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE pipeline_runs
		SET status = 'failed', error = $2, completed_at = now(),
			jobs_created = $3, jobs_completed = $4, jobs_failed = $5
		WHERE id = $1
		RETURNING `+runColumns,
		id, errMsg, jobsCreated, jobsCompleted, jobsFailed,
	)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("fail run %s: %w", id, err)
	}
	return run, nil
}

// LatestRunPerCompany returns one row per company with a non-null
// started_at, most recent first. DISTINCT ON exploits the
// (company_id, started_at desc) index built for exactly this query.
func (s *Store) LatestRunPerCompany(ctx context.Context) ([]*domain.PipelineRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (company_id) `+runColumns+`
		FROM pipeline_runs
		WHERE started_at IS NOT NULL
		ORDER BY company_id, started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("latest run per company: %w", err)
	}
	defer rows.Close()
	runs, err := collectRuns(rows)
	if err != nil {
		return nil, err
	}
	return sortByStartedAtDesc(runs), nil
}

// ListRunningRuns returns every run currently in 'running', regardless
// of whether a newer run has since been created for the same company —
// the stale-run alert must catch a run stuck in running even after a
// later tick starts a fresh one (spec §4.E).
func (s *Store) ListRunningRuns(ctx context.Context) ([]*domain.PipelineRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+runColumns+` FROM pipeline_runs
		WHERE status = 'running'
		ORDER BY started_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list running runs: %w", err)
	}
	defer rows.Close()
	return collectRuns(rows)
}

// RecentRuns returns the most recent window runs for a company, newest
// first, used by CountConsecutiveFailures.
func (s *Store) RecentRuns(ctx context.Context, companyID string, window int) ([]*domain.PipelineRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+runColumns+` FROM pipeline_runs
		WHERE company_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, companyID, window)
	if err != nil {
		return nil, fmt.Errorf("recent runs for %s: %w", companyID, err)
	}
	defer rows.Close()
	return collectRuns(rows)
}

func collectRuns(rows pgx.Rows) ([]*domain.PipelineRun, error) {
	var runs []*domain.PipelineRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// sortByStartedAtDesc re-sorts DISTINCT ON's per-company rows into a
// single most-recent-first ordering across companies, since DISTINCT
// ON's ORDER BY is scoped to the distinct key, not the whole result.
func sortByStartedAtDesc(runs []*domain.PipelineRun) []*domain.PipelineRun {
	for i := 1; i < len(runs); i++ {
		for j := i; j > 0 && runs[j].StartedAt.After(*runs[j-1].StartedAt); j-- {
			runs[j], runs[j-1] = runs[j-1], runs[j]
		}
	}
	return runs
}
