package config

import (
	"strings"
	"time"

	"github.com/arkady/edgarflow/internal/env"
	"github.com/arkady/edgarflow/internal/scheduler"
)

// Scheduler holds the SCHEDULER_* environment variables.
type Scheduler struct {
	PollIntervalSeconds              int    `env:"SCHEDULER_POLL_INTERVAL"`
	EnabledFormsRaw                  string `env:"SCHEDULER_ENABLED_FORMS"`
	FilingLookbackDays               int    `env:"SCHEDULER_FILING_LOOKBACK_DAYS"`
	BulkIngestEnabled                bool   `env:"SCHEDULER_BULK_INGEST_ENABLED"`
	BulkIngestBatchSize              int    `env:"SCHEDULER_BULK_INGEST_BATCH_SIZE"`
	AlertConsecutiveFailureThreshold int    `env:"SCHEDULER_ALERT_CONSECUTIVE_FAILURE_THRESHOLD"`
	AlertStaleRunThresholdSeconds    int    `env:"SCHEDULER_ALERT_STALE_RUN_THRESHOLD_SECONDS"`
	AlertWebhookURL                  string `env:"SCHEDULER_ALERT_WEBHOOK_URL"`
	AlertWebhookTimeoutSeconds       int    `env:"SCHEDULER_ALERT_WEBHOOK_TIMEOUT"`
}

// LoadScheduler reads SCHEDULER_* variables, falling back to spec
// defaults for anything unset.
func LoadScheduler() (Scheduler, error) {
	s := Scheduler{
		PollIntervalSeconds:              21600,
		EnabledFormsRaw:                  "10-K,10-Q",
		FilingLookbackDays:               30,
		BulkIngestEnabled:                false,
		BulkIngestBatchSize:              50,
		AlertConsecutiveFailureThreshold: 3,
		AlertStaleRunThresholdSeconds:    7200,
		AlertWebhookTimeoutSeconds:       10,
	}
	if err := env.Load(&s); err != nil {
		return Scheduler{}, err
	}
	return s, nil
}

// EnabledForms splits the comma-separated SCHEDULER_ENABLED_FORMS
// value. The env loader supports scalar fields only (see
// internal/env), so the list form is parsed here rather than adding a
// slice kind to the generic loader for a single call site.
func (s Scheduler) EnabledForms() []string {
	return splitCSV(s.EnabledFormsRaw)
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// PollInterval is the time.Duration form of PollIntervalSeconds.
func (s Scheduler) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalSeconds) * time.Second
}

// AlertStaleRunThreshold is the time.Duration form of
// AlertStaleRunThresholdSeconds.
func (s Scheduler) AlertStaleRunThreshold() time.Duration {
	return time.Duration(s.AlertStaleRunThresholdSeconds) * time.Second
}

// AlertWebhookTimeout is the time.Duration form of
// AlertWebhookTimeoutSeconds.
func (s Scheduler) AlertWebhookTimeout() time.Duration {
	return time.Duration(s.AlertWebhookTimeoutSeconds) * time.Second
}

// ToSchedulerConfig converts the loaded environment into scheduler.Config.
func (s Scheduler) ToSchedulerConfig() scheduler.Config {
	cfg := scheduler.DefaultConfig()
	cfg.PollInterval = s.PollInterval()
	cfg.EnabledForms = s.EnabledForms()
	cfg.FilingLookbackDays = s.FilingLookbackDays
	cfg.BulkIngestEnabled = s.BulkIngestEnabled
	cfg.BulkIngestBatchSize = s.BulkIngestBatchSize
	cfg.AlertConsecutiveFailureThreshold = s.AlertConsecutiveFailureThreshold
	cfg.AlertStaleRunThreshold = s.AlertStaleRunThreshold()
	cfg.AlertWebhookURL = s.AlertWebhookURL
	cfg.AlertWebhookTimeout = s.AlertWebhookTimeout()
	return cfg
}
