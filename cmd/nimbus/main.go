package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/nimbus-crm/nimbus-crm/internal/app"
	"github.com/nimbus-crm/nimbus-crm/internal/leads"
	"github.com/nimbus-crm/nimbus-crm/internal/metrics"
	metricshttp "github.com/nimbus-crm/nimbus-crm/internal/metrics/http"
	"github.com/nimbus-crm/nimbus-crm/internal/observability"
	"github.com/nimbus-crm/nimbus-crm/internal/pipeline"
	"github.com/nimbus-crm/nimbus-crm/internal/platform/cache"
	"github.com/nimbus-crm/nimbus-crm/internal/platform/db"
	"github.com/nimbus-crm/nimbus-crm/internal/users"
	"github.com/nimbus-crm/nimbus-crm/jobs"
	"github.com/nimbus-crm/nimbus-crm/migrations"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := db.Migrate(cfg.PGDSN, migrations.FS, logger); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metricsCache := cache.New(redisClient, cfg.CacheTTL)
	obsMetrics := observability.NewMetrics()

	store := metrics.NewPGStore(pool)
	source := metrics.NewPGSource(pool)
	aggregator := metrics.NewService(source, store, logger,
		metrics.WithCache(metricsCache),
		metrics.WithPipelineMetrics(metrics.NewPipelineMetrics(obsMetrics.Registerer())),
	)

	bus := metrics.NewNotifier()
	refresher := metrics.NewRefresher(aggregator, bus, logger, cfg.RefreshTimeout)

	pipelineRepo := pipeline.NewRepository(pool)
	pipelineService := pipeline.NewService(pipelineRepo, bus, refresher, logger)
	pipelineHandler := pipeline.NewHandler(logger, pipelineService)

	dealCreator := leads.DealCreatorFunc(func(ctx context.Context, deal leads.ConvertedDeal) (int64, error) {
		return pipelineService.CreateConverted(ctx, deal.Name, deal.Company, deal.Industry,
			deal.Email, deal.MobileNumber, deal.OwnerID, deal.SalesLeadID)
	})

	leadsRepo := leads.NewRepository(pool)
	leadsService := leads.NewService(leadsRepo, bus, refresher, dealCreator, logger)
	leadsHandler := leads.NewHandler(logger, leadsService)

	metricsHandler := metricshttp.NewHandler(logger, aggregator, metricsCache)

	usersService := users.NewService(users.NewRepository(pool))
	usersHandler := users.NewHandler(logger, usersService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	// Warm the dashboard shortly after boot instead of waiting for the
	// nightly cron.
	if client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr}); err == nil {
		if _, err := client.EnqueueMetricsRefresh(ctx, "all"); err != nil {
			logger.Warn("enqueue warmup refresh", slog.Any("error", err))
		}
		if err := client.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		LeadsHandler:    leadsHandler,
		PipelineHandler: pipelineHandler,
		MetricsHandler:  metricsHandler,
		UsersHandler:    usersHandler,
		JobsHandler:     jobsHandler,
		Metrics:         obsMetrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	}()

	logger.Info("nimbus listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}
