// Package scheduler implements the periodic driver (spec §4.E): one
// tick polls tracked companies for new filings and enqueues
// pipeline-level jobs, an optional second step batches global
// discovery, and a third evaluates alert predicates. The tick loop's
// jittered-startup-then-ticker shape and per-item containment is
// grounded on the teacher's reconciliation.go; the polling/diff/alert
// responsibilities themselves are grounded on the original
// scheduler/{main,polling,alerts}.py behavior described in spec §4.E.
package scheduler

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/arkady/edgarflow/internal/collaborators"
	"github.com/arkady/edgarflow/internal/domain"
	"github.com/arkady/edgarflow/internal/pipeline"
	"github.com/arkady/edgarflow/internal/ptr"
	"github.com/arkady/edgarflow/internal/queue"
	"github.com/arkady/edgarflow/internal/shutdown"
)

// Config holds the tunables for a Scheduler, matching spec §6's
// SCHEDULER_* environment variables.
type Config struct {
	PollInterval                     time.Duration
	EnabledForms                     []string
	FilingLookbackDays               int
	BulkIngestEnabled                bool
	BulkIngestBatchSize              int
	AlertConsecutiveFailureThreshold int
	AlertStaleRunThreshold           time.Duration
	AlertWebhookURL                  string
	AlertWebhookTimeout              time.Duration

	// MaxStartupJitter staggers the first tick when multiple scheduler
	// replicas start together. The spec does not run more than one
	// scheduler, but the jitter is cheap insurance carried over from
	// the teacher's reconciliation worker shape.
	MaxStartupJitter time.Duration
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:                     6 * time.Hour,
		EnabledForms:                     []string{"10-K", "10-Q"},
		FilingLookbackDays:               30,
		BulkIngestEnabled:                false,
		BulkIngestBatchSize:              50,
		AlertConsecutiveFailureThreshold: 3,
		AlertStaleRunThreshold:           2 * time.Hour,
		AlertWebhookTimeout:              10 * time.Second,
		MaxStartupJitter:                 5 * time.Second,
	}
}

// Scheduler is the single long-running tick driver.
type Scheduler struct {
	edgar   collaborators.EdgarClient
	content collaborators.ContentStore
	jobs    queue.Store
	runs    *pipeline.Tracker
	cfg     Config
	clock   domain.Clock
	alerter *Alerter
}

// New builds a Scheduler.
func New(edgar collaborators.EdgarClient, content collaborators.ContentStore, jobs queue.Store, runs *pipeline.Tracker, cfg Config, clock domain.Clock) *Scheduler {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Scheduler{
		edgar:   edgar,
		content: content,
		jobs:    jobs,
		runs:    runs,
		cfg:     cfg,
		clock:   clock,
		alerter: NewAlerter(runs, cfg, clock),
	}
}

// Run blocks, ticking every cfg.PollInterval, until ctx is cancelled.
// Per spec §4.E step 4, the sleep between ticks is chunked into ≤5s
// increments so SIGTERM aborts within five seconds of receipt.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "scheduler started", "poll_interval", s.cfg.PollInterval, "forms", s.cfg.EnabledForms)

	if s.cfg.MaxStartupJitter > 0 {
		jitter := rand.N(s.cfg.MaxStartupJitter)
		if err := sleepChunked(ctx, jitter); err != nil {
			return nil
		}
	}

	for {
		if shutdown.Requested(ctx) {
			slog.InfoContext(ctx, "scheduler shutdown")
			return nil
		}

		s.tick(ctx)

		if err := sleepChunked(ctx, s.cfg.PollInterval); err != nil {
			slog.InfoContext(ctx, "scheduler shutdown during sleep")
			return nil
		}
	}
}

// sleepChunked matches spec §4.E step 4's "≤5-second chunks" sleep
// granularity, distinct from the worker/LLM-retry 1-second chunking
// since the scheduler's own suspension points are coarser.
func sleepChunked(ctx context.Context, d time.Duration) error {
	const chunk = 5 * time.Second
	for d > 0 {
		step := d
		if step > chunk {
			step = chunk
		}
		timer := time.NewTimer(step)
		select {
		case <-ctx.Done():
			timer.Stop()
			return shutdown.ErrRequested
		case <-timer.C:
		}
		d -= step
	}
	return nil
}

// tick runs one full cycle: poll tracked companies, optional bulk
// discovery, then alert evaluation (spec §4.E steps 1-3).
func (s *Scheduler) tick(ctx context.Context) {
	start := s.clock.Now()

	if err := s.pollTrackedCompanies(ctx); err != nil {
		slog.ErrorContext(ctx, "poll tracked companies failed", "error", err)
	}

	if s.cfg.BulkIngestEnabled {
		if err := s.bulkDiscover(ctx); err != nil {
			slog.ErrorContext(ctx, "bulk discovery failed", "error", err)
		}
	}

	if err := s.alerter.Evaluate(ctx); err != nil {
		slog.ErrorContext(ctx, "alert evaluation failed", "error", err)
	}

	slog.InfoContext(ctx, "scheduler tick complete", "duration", s.clock.Now().Sub(start))
}

// pollTrackedCompanies implements spec §4.E step 1: for each tracked
// ticker, fetch recent filings of the enabled forms, diff against
// known accession numbers, and enqueue exactly one full_pipeline job
// per company with ≥1 new filing — regardless of how many new filings
// were found, since the pipeline handler fans out internally.
// Exceptions polling one ticker are logged and swallowed; other
// tickers proceed (spec §7's per-item containment).
func (s *Scheduler) pollTrackedCompanies(ctx context.Context) error {
	tickers, err := s.content.TrackedTickers(ctx)
	if err != nil {
		return err
	}

	cutoff := s.clock.Now().AddDate(0, 0, -s.cfg.FilingLookbackDays)

	for _, ticker := range tickers {
		if shutdown.Requested(ctx) {
			return nil
		}
		if hasNew, err := s.hasNewFilings(ctx, ticker, cutoff); err != nil {
			slog.ErrorContext(ctx, "poll ticker failed", "ticker", ticker, "error", err)
			continue
		} else if !hasNew {
			continue
		}

		params, err := domain.EncodeParams(domain.FullPipelineParams{
			Ticker:  ticker,
			Forms:   s.cfg.EnabledForms,
			Trigger: string(domain.TriggerScheduled),
		})
		if err != nil {
			slog.ErrorContext(ctx, "encode full_pipeline params failed", "ticker", ticker, "error", err)
			continue
		}
		if _, err := s.jobs.InsertJob(ctx, domain.JobSpec{
			Type:     domain.JobTypeFullPipeline,
			Params:   params,
			Priority: ptr.To(2),
		}); err != nil {
			slog.ErrorContext(ctx, "enqueue full_pipeline failed", "ticker", ticker, "error", err)
		}
	}
	return nil
}

func (s *Scheduler) hasNewFilings(ctx context.Context, ticker string, cutoff time.Time) (bool, error) {
	cid := "company-" + ticker
	for _, form := range s.cfg.EnabledForms {
		refs, err := s.edgar.GetRecentFilings(ctx, ticker, form, 10)
		if err != nil {
			return false, err
		}
		known, err := s.content.KnownAccessionNumbers(ctx, cid, form)
		if err != nil {
			return false, err
		}
		for _, ref := range refs {
			if ref.FilingDate.Before(cutoff) {
				continue
			}
			if _, seen := known[ref.AccessionNumber]; !seen {
				return true, nil
			}
		}
	}
	return false, nil
}

// bulkDiscover implements spec §4.E step 2: call the current-filings
// feed for each enabled form, diff against the global known-accession
// set, and batch new filings into bulk_ingest jobs.
func (s *Scheduler) bulkDiscover(ctx context.Context) error {
	for _, form := range s.cfg.EnabledForms {
		refs, err := s.edgar.GetCurrentFilings(ctx, form)
		if err != nil {
			slog.ErrorContext(ctx, "bulk discover failed", "form", form, "error", err)
			continue
		}

		known, err := s.content.AllKnownAccessionNumbers(ctx, form)
		if err != nil {
			slog.ErrorContext(ctx, "load known accession numbers failed", "form", form, "error", err)
			continue
		}

		var batch []domain.BulkFilingEntry
		flush := func() {
			if len(batch) == 0 {
				return
			}
			params, err := domain.EncodeParams(domain.BulkIngestParams{Form: form, Filings: batch})
			if err != nil {
				slog.ErrorContext(ctx, "encode bulk_ingest params failed", "form", form, "error", err)
				return
			}
			if _, err := s.jobs.InsertJob(ctx, domain.JobSpec{
				Type:     domain.JobTypeBulkIngest,
				Params:   params,
				Priority: ptr.To(3),
			}); err != nil {
				slog.ErrorContext(ctx, "enqueue bulk_ingest failed", "form", form, "error", err)
			}
			batch = nil
		}

		for _, ref := range refs {
			if _, seen := known[ref.AccessionNumber]; seen {
				continue
			}
			batch = append(batch, domain.BulkFilingEntry{
				AccessionNumber: ref.AccessionNumber,
				CIK:             ref.CIK,
				CompanyName:     ref.CompanyName,
				FilingDate:      ref.FilingDate,
			})
			if len(batch) >= s.cfg.BulkIngestBatchSize {
				flush()
			}
		}
		flush()
	}
	return nil
}
