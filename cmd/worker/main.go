// Command worker runs one worker pool process: poll, claim, dispatch,
// complete/fail, sweep stale leases (spec §4.C, §5). Horizontal scale
// is achieved by running more copies of this binary against the same
// database, not by adding concurrency inside one process.
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

	"github.com/arkady/edgarflow/internal/collaborators/anthropicllm"
	"github.com/arkady/edgarflow/internal/collaborators/edgarhttp"
	"github.com/arkady/edgarflow/internal/collaborators/extracthtml"
	"github.com/arkady/edgarflow/internal/config"
	"github.com/arkady/edgarflow/internal/contentstore"
	contentstorefs "github.com/arkady/edgarflow/internal/contentstore/fs"
	contentstoregcs "github.com/arkady/edgarflow/internal/contentstore/gcs"
	contentstorepg "github.com/arkady/edgarflow/internal/contentstore/postgres"
	"github.com/arkady/edgarflow/internal/domain"
	"github.com/arkady/edgarflow/internal/handler"
	"github.com/arkady/edgarflow/internal/handlers"
	"github.com/arkady/edgarflow/internal/infrastructure/persistence/postgres"
	"github.com/arkady/edgarflow/internal/observability"
	"github.com/arkady/edgarflow/internal/pipeline"
	"github.com/arkady/edgarflow/internal/worker"
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
	workerCfg, err := config.LoadWorker()
	if err != nil {
		return fmt.Errorf("load worker config: %w", err)
	}
	collabCfg, err := config.LoadCollaborators()
	if err != nil {
		return fmt.Errorf("load collaborator config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger, providers, err := observability.Init(ctx, "edgarflow-worker", cfg.OTelEnabled)
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

	deps := handlers.Deps{
		Edgar:     edgarhttp.New(collabCfg.EdgarContactEmail, &http.Client{Timeout: 15 * time.Second}),
		Extractor: extracthtml.New(collabCfg.EdgarContactEmail, &http.Client{Timeout: 30 * time.Second}),
		LLM:       anthropicllm.New(collabCfg.AnthropicAPIKey, &http.Client{Timeout: 5 * time.Minute}),
		Content:   content,
		Jobs:      store,
		Runs:      runs,
	}

	registry := handler.NewRegistry()
	handlers.Register(registry, deps)
	registry.Freeze()

	pool := worker.New(store, registry, workerCfg.ToPoolConfig(), domain.SystemClock{})
	slog.InfoContext(ctx, "worker pool starting", "worker_id", pool.ID())

	if err := pool.Run(ctx); err != nil {
		return fmt.Errorf("worker pool stopped: %w", err)
	}
	slog.InfoContext(ctx, "worker pool stopped cleanly")
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
