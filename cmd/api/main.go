package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MalayathiGeetha/Motor-Part/api/controllers"
	"github.com/MalayathiGeetha/Motor-Part/api/routes"
	"github.com/MalayathiGeetha/Motor-Part/internal/alerts"
	"github.com/MalayathiGeetha/Motor-Part/internal/audit"
	"github.com/MalayathiGeetha/Motor-Part/internal/inventory"
	"github.com/MalayathiGeetha/Motor-Part/pkg/config"
	"github.com/MalayathiGeetha/Motor-Part/pkg/db"
	"github.com/MalayathiGeetha/Motor-Part/pkg/keylock"
	"github.com/MalayathiGeetha/Motor-Part/pkg/logger"
	"github.com/MalayathiGeetha/Motor-Part/pkg/metrics"
	"github.com/MalayathiGeetha/Motor-Part/pkg/migrate"
	"github.com/MalayathiGeetha/Motor-Part/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	var (
		redisPinger      controllers.Pinger
		idempotencyStore redis.IdempotencyStore
	)
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		redisPinger = redisClient
		idempotencyStore = redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured; idempotency keys are kept in process memory")
		idempotencyStore = redis.NewLocalStore()
	}

	inventoryMetrics := metrics.NewInventoryMetrics(prometheus.DefaultRegisterer)

	auditService, err := audit.NewService(audit.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	alertManager, err := alerts.NewManager(alerts.ManagerParams{
		Repo:    alerts.NewRepository(dbClient.DB()),
		Audit:   auditService,
		Tx:      dbClient,
		Metrics: inventoryMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create alert manager", err)
		os.Exit(1)
	}

	partService, err := inventory.NewService(inventory.ServiceParams{
		Repo:                    inventory.NewRepository(dbClient.DB()),
		Alerts:                  alertManager,
		Audit:                   auditService,
		Tx:                      dbClient,
		Locks:                   keylock.New(),
		Metrics:                 inventoryMetrics,
		DefaultReorderThreshold: cfg.Inventory.DefaultReorderThreshold,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"addr":   addr,
		"driver": cfg.DB.Driver,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisPinger,
			idempotencyStore,
			partService,
			alertManager,
			auditService,
			promhttp.Handler(),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
