package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/arkady/edgarflow/internal/domain"
	"github.com/arkady/edgarflow/internal/pipeline"
)

// FailureAlert is one company whose run history crossed the
// consecutive-failure threshold (spec §4.E "Alerts").
type FailureAlert struct {
	CompanyID           string `json:"company_id"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
}

// StaleAlert is one running pipeline run suspected stale.
type StaleAlert struct {
	RunID     string    `json:"run_id"`
	CompanyID string    `json:"company_id"`
	StartedAt time.Time `json:"started_at"`
}

// webhookPayload is the JSON body POSTed to AlertWebhookURL.
type webhookPayload struct {
	FailureAlerts []FailureAlert `json:"failure_alerts"`
	StaleAlerts   []StaleAlert   `json:"stale_alerts"`
}

// Alerter evaluates the consecutive-failure and stale-run predicates
// against the pipeline run tracker and dispatches a webhook when
// either fires.
type Alerter struct {
	runs   *pipeline.Tracker
	cfg    Config
	clock  domain.Clock
	client *http.Client
}

// NewAlerter builds an Alerter over runs, wrapping outbound webhook
// calls with otelhttp so alert dispatch is traced like every other
// outbound call in this system.
func NewAlerter(runs *pipeline.Tracker, cfg Config, clock domain.Clock) *Alerter {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Alerter{
		runs:  runs,
		cfg:   cfg,
		clock: clock,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Evaluate implements spec §4.E's "Alerts" subsection: for each
// company's latest run, flag sustained consecutive failure; for each
// running run past the stale threshold, flag it as suspected stale;
// if anything fired and a webhook URL is configured, POST the
// aggregate payload. Webhook failures are logged and swallowed — they
// never affect scheduler correctness (spec §7).
func (a *Alerter) Evaluate(ctx context.Context) error {
	latest, err := a.runs.LatestRunPerCompany(ctx)
	if err != nil {
		return fmt.Errorf("list latest runs: %w", err)
	}

	var failureAlerts []FailureAlert
	for _, run := range latest {
		count, err := a.runs.CountConsecutiveFailures(ctx, run.CompanyID, domain.DefaultConsecutiveFailureWindow)
		if err != nil {
			slog.ErrorContext(ctx, "count consecutive failures failed", "company_id", run.CompanyID, "error", err)
			continue
		}
		if count >= a.cfg.AlertConsecutiveFailureThreshold {
			slog.WarnContext(ctx, "consecutive pipeline failures", "company_id", run.CompanyID, "consecutive_failures", count)
			failureAlerts = append(failureAlerts, FailureAlert{CompanyID: run.CompanyID, ConsecutiveFailures: count})
		}
	}

	staleRuns, err := a.runs.StaleRuns(ctx, a.cfg.AlertStaleRunThreshold)
	if err != nil {
		return fmt.Errorf("list stale runs: %w", err)
	}
	var staleAlerts []StaleAlert
	for _, run := range staleRuns {
		slog.WarnContext(ctx, "stale pipeline run", "run_id", run.ID, "company_id", run.CompanyID, "started_at", run.StartedAt)
		staleAlerts = append(staleAlerts, StaleAlert{RunID: run.ID, CompanyID: run.CompanyID, StartedAt: *run.StartedAt})
	}

	if len(failureAlerts) == 0 && len(staleAlerts) == 0 {
		return nil
	}
	if a.cfg.AlertWebhookURL == "" {
		return nil
	}

	if err := a.dispatchWebhook(ctx, webhookPayload{FailureAlerts: failureAlerts, StaleAlerts: staleAlerts}); err != nil {
		slog.ErrorContext(ctx, "alert webhook dispatch failed", "host", webhookHost(a.cfg.AlertWebhookURL), "error", err)
	}
	return nil
}

// dispatchWebhook POSTs payload with a short bounded retry, grounded
// on the llmretry helper's use of the same sethvargo/go-retry library
// for a different bounded-retry need.
func (a *Alerter) dispatchWebhook(ctx context.Context, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	timeout := a.cfg.AlertWebhookTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoff := retry.WithMaxRetries(2, retry.NewConstant(500*time.Millisecond))

	return retry.Do(reqCtx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.AlertWebhookURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("webhook returned %d", resp.StatusCode))
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("webhook returned %d", resp.StatusCode)
		}
		return nil
	})
}

// webhookHost returns only the hostname of rawURL, per spec §4.E's
// "log only the hostname... no query string, no credentials".
func webhookHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url"
	}
	return u.Hostname()
}
