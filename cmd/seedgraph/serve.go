package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/scrypster/seedgraph/internal/backend"
	"github.com/scrypster/seedgraph/internal/loader"
	"github.com/scrypster/seedgraph/internal/metrics"
	"github.com/scrypster/seedgraph/internal/notify"
	"github.com/scrypster/seedgraph/internal/server"
	"github.com/scrypster/seedgraph/internal/storage"
	"github.com/scrypster/seedgraph/pkg/types"
	"github.com/scrypster/seedgraph/web/handlers"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		fixtures []string
		watch    bool
	)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the seedgraph HTTP server",
		Long: `Start the seedgraph HTTP server.

The server provides endpoints for:
- Seeded queries (POST /api/v1/query, streamed over GET /api/v1/query/stream)
- All-elements queries (POST /api/v1/query/all)
- Loading elements (POST /api/v1/elements) and following changes (GET /api/v1/events)
- Health checks (GET /healthz) and Prometheus metrics (GET /metrics)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, a, fixtures, watch)
		},
	}

	f := serveCmd.Flags()
	f.String("host", "", "Server host")
	f.Int("port", 0, "Server port")
	f.StringSliceVar(&fixtures, "data", nil, "YAML fixture files or directories to load before serving")
	f.BoolVar(&watch, "watch", false, "reload --data fixtures when they change")
	bind(a.v, f.Lookup("host"), "server.host")
	bind(a.v, f.Lookup("port"), "server.port")

	return serveCmd
}

func runServe(cmd *cobra.Command, a *app, fixtures []string, watch bool) error {
	cfg, logger, err := a.load(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	store, err := backend.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	store = backend.Guard(store, cfg.Breaker, logger, m)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	if _, err := loadFixtures(ctx, store, fixtures, logger); err != nil {
		return err
	}

	srv := server.New(cfg, server.Deps{
		Backend:  store,
		Logger:   logger,
		Metrics:  m,
		Gatherer: reg,
	})
	if watch && len(fixtures) > 0 {
		watcher := notify.NewFixtureWatcher(fixtures, func(path string, elements []types.Element) {
			if err := store.AddElements(ctx, elements); err != nil {
				logger.Error("failed to store reloaded fixture", "path", path, "error", err)
				return
			}
			srv.Publish(handlers.ElementsAdded(elements, path))
		}, logger)
		if err := watcher.Start(); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	addr, done, err := srv.Start(ctx)
	if err != nil {
		return err
	}
	logger.Info("seedgraph running", "url", "http://"+addr, "engine", cfg.Storage.Engine, "version", version)

	if err := <-done; err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// loadFixtures reads each fixture path and adds its elements to store. It
// returns the number of elements added.
func loadFixtures(ctx context.Context, store storage.GraphWriter, paths []string, logger *slog.Logger) (int, error) {
	total := 0
	for _, path := range paths {
		elements, err := loader.Load(path)
		if err != nil {
			return total, err
		}
		if err := store.AddElements(ctx, elements); err != nil {
			return total, fmt.Errorf("load %s: %w", path, err)
		}
		logger.Info("loaded fixture", "path", path, "elements", len(elements))
		total += len(elements)
	}
	return total, nil
}
