package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dipta-sdd/campaignbay-sub001/internal/cache"
	"github.com/dipta-sdd/campaignbay-sub001/internal/config"
	"github.com/dipta-sdd/campaignbay-sub001/internal/event"
	handler "github.com/dipta-sdd/campaignbay-sub001/internal/handler/http"
	"github.com/dipta-sdd/campaignbay-sub001/internal/pricing"
	"github.com/dipta-sdd/campaignbay-sub001/internal/repository/postgres"
	"github.com/dipta-sdd/campaignbay-sub001/internal/repository/postgres/migrations"
	"github.com/dipta-sdd/campaignbay-sub001/internal/scheduler"
	"github.com/dipta-sdd/campaignbay-sub001/internal/service"
	"github.com/dipta-sdd/campaignbay-sub001/pkg/database"
	"github.com/dipta-sdd/campaignbay-sub001/pkg/health"
	pkgkafka "github.com/dipta-sdd/campaignbay-sub001/pkg/kafka"
)

// App wires together all dependencies and runs the campaign service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	redis      *redis.Client
	producer   *pkgkafka.Producer
	jobs       *scheduler.AsynqScheduler
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// PostgreSQL pool plus schema migrations.
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	// Redis backs both the active-campaign cache and the job scheduler.
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))

	// Kafka producer for domain events.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Build the dependency graph.
	repo := postgres.NewCampaignRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)
	eventProducer := event.NewProducer(producer, logger)
	activeCache := cache.NewActiveCampaignCache(redisClient, cfg.CacheTTL, logger)

	campaignService := service.NewCampaignService(
		repo,
		auditRepo,
		eventProducer,
		activeCache,
		service.Settings{
			PriorityPolicy: pricing.Policy(cfg.PriorityPolicy),
			Location:       cfg.Location(),
		},
		logger,
	)

	// The lifecycle scheduler flips statuses through the service, and the
	// service notifies the scheduler on every save, so the notifier is
	// attached after both exist.
	jobs := scheduler.NewAsynqScheduler(asynq.RedisClientOpt{
		Addr:     cfg.Redis().Addr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, cfg.SchedulerQueue)
	lifecycle := scheduler.NewLifecycle(jobs, campaignService, activeCache, cfg.Location(), logger)
	campaignService.SetNotifier(lifecycle)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	router := handler.NewRouter(campaignService, healthHandler, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		redis:      redisClient,
		producer:   producer,
		jobs:       jobs,
		httpServer: httpServer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.jobs.Close(); err != nil {
		a.logger.Error("scheduler close error", slog.String("error", err.Error()))
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return nil
}
