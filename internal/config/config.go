package config

import (
	"net/url"
	"time"

	"github.com/arkady/edgarflow/internal/env"
)

// Config holds the process-wide ambient settings shared by cmd/worker
// and cmd/scheduler: database connection, observability toggle,
// generated-content blob backend selection, and shutdown timeout. None
// of these are named in spec §6's SCHEDULER_*/WORKER_* table — that
// table covers only the scheduler/worker tunables — but every real
// process needs a database DSN and an observability switch the way the
// teacher's cmd/server does, so they are carried here rather than
// hardcoded.
type Config struct {
	PostgresURL           string  `env:"POSTGRES_URL"`
	OTelEnabled           bool    `env:"OTEL_ENABLED"`
	ContentStoreBackend   string  `env:"CONTENT_STORE_BLOB_BACKEND"` // "fs" or "gcs"
	ContentStoreFSDir     string  `env:"CONTENT_STORE_FS_DIR"`
	ContentStoreGCSBucket string  `env:"CONTENT_STORE_GCS_BUCKET"`
	ShutdownTimeoutSec    float64 `env:"SHUTDOWN_TIMEOUT_SECONDS"`
}

// Load reads the ambient environment variables, falling back to
// development-friendly defaults for anything unset.
func Load() (Config, error) {
	c := Config{
		OTelEnabled:         false,
		ContentStoreBackend: "fs",
		ContentStoreFSDir:   "./data/content-store",
		ShutdownTimeoutSec:  30.0,
	}
	if err := env.Load(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ShutdownTimeout is the time.Duration form of ShutdownTimeoutSec.
func (c Config) ShutdownTimeout() time.Duration {
	return durationFromSeconds(c.ShutdownTimeoutSec)
}

// MaskDSN masks the password component of a connection string for safe
// logging.
func MaskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "[REDACTED]"
	}
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "xxxxxx")
		}
	}
	return u.String()
}
