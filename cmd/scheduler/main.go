// Command scheduler runs the periodic driver: poll tracked companies
// for new filings, optionally batch-discover globally, evaluate alert
// predicates (spec §4.E). Exactly one instance should run at a time
// against a given database. Nothing prevents a second instance; it
// enqueues duplicate jobs, which the job queue does not deduplicate.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arkady/edgarflow/internal/collaborators/edgarhttp"
	"github.com/arkady/edgarflow/internal/config"
	"github.com/arkady/edgarflow/internal/contentstore"
	contentstorefs "github.com/arkady/edgarflow/internal/contentstore/fs"
	contentstoregcs "github.com/arkady/edgarflow/internal/contentstore/gcs"
	contentstorepg "github.com/arkady/edgarflow/internal/contentstore/postgres"
	"github.com/arkady/edgarflow/internal/domain"
	"github.com/arkady/edgarflow/internal/infrastructure/persistence/postgres"
	"github.com/arkady/edgarflow/internal/observability"
	"github.com/arkady/edgarflow/internal/pipeline"
	"github.com/arkady/edgarflow/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	schedulerEnv, err := config.LoadScheduler()
	if err != nil {
		return fmt.Errorf("load scheduler config: %w", err)
	}
	collabCfg, err := config.LoadCollaborators()
	if err != nil {
		return fmt.Errorf("load collaborator config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger, providers, err := observability.Init(ctx, "edgarflow-scheduler", cfg.OTelEnabled)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "failed to shut down observability providers", "error", err)
		}
	}()
	slog.SetDefault(logger)

	store, err := postgres.NewPostgresStore(ctx, cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer store.Close()
	slog.InfoContext(ctx, "persistence initialized", "url", config.MaskDSN(cfg.PostgresURL))

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init content blob store: %w", err)
	}
	content := contentstorepg.NewStore(store.Pool(), blobs)
	runs := pipeline.NewTracker(store, domain.SystemClock{})

	edgar := edgarhttp.New(collabCfg.EdgarContactEmail, &http.Client{Timeout: 15 * time.Second})

	sched := scheduler.New(edgar, content, store, runs, schedulerEnv.ToSchedulerConfig(), domain.SystemClock{})

	slog.InfoContext(ctx, "scheduler starting", "poll_interval", schedulerEnv.PollInterval())
	if err := sched.Run(ctx); err != nil {
		return fmt.Errorf("scheduler stopped: %w", err)
	}
	slog.InfoContext(ctx, "scheduler stopped cleanly")
	return nil
}

// newBlobStore builds the BlobStore backend selected by
// CONTENT_STORE_BLOB_BACKEND, matching the fs/gcs reference
// implementations' constructors.
func newBlobStore(ctx context.Context, cfg config.Config) (contentstore.BlobStore, error) {
	switch cfg.ContentStoreBackend {
	case "gcs":
		return contentstoregcs.NewStore(ctx, cfg.ContentStoreGCSBucket)
	case "fs", "":
		return contentstorefs.NewStore(cfg.ContentStoreFSDir)
	default:
		return nil, fmt.Errorf("unknown content store backend %q", cfg.ContentStoreBackend)
	}
}
