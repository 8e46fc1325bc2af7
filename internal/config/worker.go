// Package config loads the worker and scheduler tunables listed in
// spec §6 from environment variables, using the teacher's generic
// struct-tag env loader (internal/env) rather than hand-rolled
// os.Getenv calls.
package config

import (
	"time"

	"github.com/arkady/edgarflow/internal/env"
	"github.com/arkady/edgarflow/internal/worker"
)

// Worker holds the WORKER_* environment variables.
type Worker struct {
	PollIntervalSeconds   float64 `env:"WORKER_POLL_INTERVAL"`
	StaleThreshold        int     `env:"WORKER_STALE_THRESHOLD"`
	StaleCheckIntervalSec float64 `env:"WORKER_STALE_CHECK_INTERVAL"`
}

// LoadWorker reads WORKER_* variables, falling back to spec defaults
// for anything unset.
func LoadWorker() (Worker, error) {
	w := Worker{
		PollIntervalSeconds:   2.0,
		StaleThreshold:        600,
		StaleCheckIntervalSec: 60.0,
	}
	if err := env.Load(&w); err != nil {
		return Worker{}, err
	}
	return w, nil
}

// ToPoolConfig converts the loaded environment into worker.Config.
func (w Worker) ToPoolConfig() worker.Config {
	return worker.Config{
		PollInterval:          durationFromSeconds(w.PollIntervalSeconds),
		StaleCheckInterval:    durationFromSeconds(w.StaleCheckIntervalSec),
		StaleThresholdSeconds: w.StaleThreshold,
		OperationTimeout:      30 * time.Second,
	}
}

func durationFromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
