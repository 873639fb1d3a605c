package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/enriquemoya/cardstock-backend/internal/inventory"
	"github.com/enriquemoya/cardstock-backend/internal/ledger"
	syncpkg "github.com/enriquemoya/cardstock-backend/internal/sync"
	"github.com/enriquemoya/cardstock-backend/pkg/config"
	"github.com/enriquemoya/cardstock-backend/pkg/db"
	"github.com/enriquemoya/cardstock-backend/pkg/logger"
	"github.com/enriquemoya/cardstock-backend/pkg/metrics"
	"github.com/enriquemoya/cardstock-backend/pkg/migrate"
	"github.com/enriquemoya/cardstock-backend/pkg/outbox"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "sync-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "sync-worker"

	logg = logger.New(logger.Options{
		ServiceName: "sync-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		requireResource(ctx, logg, "migrations", err)
	}

	feed, err := syncpkg.NewClient(cfg.Sync)
	requireResource(ctx, logg, "cloud feed client", err)

	promRegistry := prometheus.NewRegistry()
	syncMetrics := metrics.NewSyncMetrics(promRegistry)

	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	movements, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), emitter)
	requireResource(ctx, logg, "movement ledger", err)

	engine, err := syncpkg.NewEngine(
		cfg.Sync.POSID,
		feed,
		syncpkg.NewStateRepository(dbClient.DB()),
		syncpkg.NewAppliedEventRepository(dbClient.DB()),
		inventory.NewRepository(dbClient.DB()),
		movements,
		dbClient,
		syncMetrics,
		logg,
	)
	requireResource(ctx, logg, "sync engine", err)

	go serveMetrics(ctx, logg, cfg.App.MetricsPort, promRegistry)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"pos_id":      cfg.Sync.POSID,
	})
	logg.Info(runCtx, "sync worker ready")

	if err := run(runCtx, logg, engine, cfg.Sync.Interval); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "sync worker failed", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "sync worker shutting down gracefully")
}

// run executes one cycle immediately and then on every tick. A failed cycle is
// logged and retried on the next tick; the cursor-preserving state machine
// makes that safe.
func run(ctx context.Context, logg *logger.Logger, engine *syncpkg.Engine, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	runCycle(ctx, logg, engine)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			runCycle(ctx, logg, engine)
		}
	}
}

func runCycle(ctx context.Context, logg *logger.Logger, engine *syncpkg.Engine) {
	if _, err := engine.RunCycle(ctx); err != nil {
		logg.Error(ctx, "sync cycle failed", err)
	}
}

func serveMetrics(ctx context.Context, logg *logger.Logger, port string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "metrics server failed", err)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
