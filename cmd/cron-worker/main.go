package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MalayathiGeetha/Motor-Part/internal/alerts"
	"github.com/MalayathiGeetha/Motor-Part/internal/audit"
	"github.com/MalayathiGeetha/Motor-Part/internal/cron"
	"github.com/MalayathiGeetha/Motor-Part/internal/inventory"
	"github.com/MalayathiGeetha/Motor-Part/pkg/config"
	"github.com/MalayathiGeetha/Motor-Part/pkg/db"
	"github.com/MalayathiGeetha/Motor-Part/pkg/instance"
	"github.com/MalayathiGeetha/Motor-Part/pkg/keylock"
	"github.com/MalayathiGeetha/Motor-Part/pkg/logger"
	"github.com/MalayathiGeetha/Motor-Part/pkg/metrics"
	"github.com/MalayathiGeetha/Motor-Part/pkg/migrate"
	"github.com/MalayathiGeetha/Motor-Part/pkg/redis"
)

const lockName = "low_stock_reconcile"

func main() {
	once := flag.Bool("once", false, "run a single reconciliation cycle and exit")
	metricsAddr := flag.String("metrics-addr", "", "serve /metrics on this address (e.g. :9102)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	var lock cron.Lock
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
		redisLock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName), cfg.Cron.LockTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create cron lock", err)
			os.Exit(1)
		}
		lock = redisLock
	} else {
		logg.Warn(context.Background(), "redis not configured; run a single cron-worker instance")
		lock = cron.NewLocalLock()
	}

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
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

	lowStockJob, err := cron.NewLowStockJob(cron.LowStockJobParams{
		Logger: logg,
		DB:     dbClient,
		Parts:  inventory.NewRepository(dbClient.DB()),
		Alerts: alertManager,
		Locks:  keylock.New(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create low stock job", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(lowStockJob)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:       logg,
		Registry:     registry,
		Lock:         lock,
		Metrics:      cronMetrics,
		Interval:     cfg.Cron.Interval,
		CycleTimeout: cfg.Cron.LockTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(),
		"interval":    cfg.Cron.Interval.String(),
	})
	if *once {
		result, err := service.RunOnce(ctx)
		if err != nil {
			logg.Error(ctx, "reconciliation cycle failed", err)
			os.Exit(1)
		}
		if len(result.Failed) > 0 {
			logg.Warn(logg.WithField(ctx, "failed_jobs", result.Failed), "reconciliation cycle finished with failures")
			os.Exit(1)
		}
		return
	}

	if *metricsAddr != "" {
		metricsServer := serveMetrics(ctx, logg, *metricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func serveMetrics(ctx context.Context, logg *logger.Logger, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics listener failed", err)
		}
	}()
	logg.Info(logg.WithField(ctx, "addr", addr), "metrics listener started")
	return server
}
