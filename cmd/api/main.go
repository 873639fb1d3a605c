package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/enriquemoya/cardstock-backend/api/routes"
	"github.com/enriquemoya/cardstock-backend/internal/branches"
	checkoutsvc "github.com/enriquemoya/cardstock-backend/internal/checkout"
	draftsvc "github.com/enriquemoya/cardstock-backend/internal/drafts"
	inventorysvc "github.com/enriquemoya/cardstock-backend/internal/inventory"
	"github.com/enriquemoya/cardstock-backend/internal/ledger"
	internalorders "github.com/enriquemoya/cardstock-backend/internal/orders"
	syncpkg "github.com/enriquemoya/cardstock-backend/internal/sync"
	"github.com/enriquemoya/cardstock-backend/pkg/config"
	"github.com/enriquemoya/cardstock-backend/pkg/db"
	"github.com/enriquemoya/cardstock-backend/pkg/logger"
	"github.com/enriquemoya/cardstock-backend/pkg/migrate"
	"github.com/enriquemoya/cardstock-backend/pkg/outbox"
	"github.com/enriquemoya/cardstock-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "migrations", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()
	inventoryRepo := inventorysvc.NewRepository(gormDB)
	branchRepo := branches.NewRepository(gormDB)
	draftRepo := draftsvc.NewRepository(gormDB)
	ordersRepo := internalorders.NewRepository(gormDB)

	emitter := outbox.NewService(outbox.NewRepository(gormDB), logg)

	movements, err := ledger.NewService(ledger.NewRepository(gormDB), emitter)
	requireResource(ctx, logg, "ledger service", err)

	draftsService, err := draftsvc.NewService(draftRepo, dbClient, inventoryRepo, branchRepo)
	requireResource(ctx, logg, "drafts service", err)

	ordersService, err := internalorders.NewService(ordersRepo, dbClient, inventoryRepo, movements, emitter, logg)
	requireResource(ctx, logg, "orders service", err)

	checkoutService, err := checkoutsvc.NewService(dbClient, draftRepo, ordersRepo, inventoryRepo, branchRepo, movements, emitter, ordersService, logg)
	requireResource(ctx, logg, "checkout service", err)

	inventoryService, err := inventorysvc.NewService(inventoryRepo)
	requireResource(ctx, logg, "inventory service", err)

	// The background loop lives in the sync worker; the API only carries the
	// manual trigger, so a terminal without a cloud feed runs fine without it.
	var syncEngine *syncpkg.Engine
	if cfg.Sync.CloudBaseURL != "" {
		feed, err := syncpkg.NewClient(cfg.Sync)
		requireResource(ctx, logg, "sync feed client", err)
		syncEngine, err = syncpkg.NewEngine(
			cfg.Sync.POSID,
			feed,
			syncpkg.NewStateRepository(gormDB),
			syncpkg.NewAppliedEventRepository(gormDB),
			inventoryRepo,
			movements,
			dbClient,
			nil,
			logg,
		)
		requireResource(ctx, logg, "sync engine", err)
	} else {
		logg.Warn(ctx, "cloud sync feed not configured; manual sync trigger disabled")
	}

	router := routes.NewRouter(routes.RouterParams{
		Config:      cfg,
		Logger:      logg,
		DBPinger:    dbClient,
		RedisPinger: redisClient,
		Drafts:      draftsService,
		Checkout:    checkoutService,
		Orders:      ordersService,
		Inventory:   inventoryService,
		SyncState:   syncpkg.NewStateRepository(gormDB),
		SyncEngine:  syncEngine,
	})

	addr := ":" + cfg.App.Port
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"addr":        addr,
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(runCtx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(runCtx, "graceful shutdown failed", err)
		}
	}

	logg.Info(runCtx, "api server stopped")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
