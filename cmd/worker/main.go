// The worker runs the deferred campaign lifecycle transitions: it
// consumes the activate/expire jobs the API process schedules and flips
// campaign statuses through the same service layer.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/hibiken/asynq"

	"github.com/dipta-sdd/campaignbay-sub001/internal/cache"
	"github.com/dipta-sdd/campaignbay-sub001/internal/config"
	"github.com/dipta-sdd/campaignbay-sub001/internal/event"
	"github.com/dipta-sdd/campaignbay-sub001/internal/pricing"
	"github.com/dipta-sdd/campaignbay-sub001/internal/repository/postgres"
	"github.com/dipta-sdd/campaignbay-sub001/internal/scheduler"
	"github.com/dipta-sdd/campaignbay-sub001/internal/service"
	"github.com/dipta-sdd/campaignbay-sub001/pkg/database"
	pkgkafka "github.com/dipta-sdd/campaignbay-sub001/pkg/kafka"
	"github.com/dipta-sdd/campaignbay-sub001/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New("campaignbay-worker", cfg.LogLevel)
	log.Info("starting campaign lifecycle worker",
		slog.String("environment", cfg.Environment),
		slog.String("queue", cfg.SchedulerQueue),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	redisClient, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), log)
	defer producer.Close()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis().Addr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	repo := postgres.NewCampaignRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)
	eventProducer := event.NewProducer(producer, log)
	activeCache := cache.NewActiveCampaignCache(redisClient, cfg.CacheTTL, log)

	campaignService := service.NewCampaignService(
		repo,
		auditRepo,
		eventProducer,
		activeCache,
		service.Settings{
			PriorityPolicy: pricing.Policy(cfg.PriorityPolicy),
			Location:       cfg.Location(),
		},
		log,
	)

	jobs := scheduler.NewAsynqScheduler(redisOpt, cfg.SchedulerQueue)
	defer jobs.Close()
	lifecycle := scheduler.NewLifecycle(jobs, campaignService, activeCache, cfg.Location(), log)
	campaignService.SetNotifier(lifecycle)

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{cfg.SchedulerQueue: 1},
	})

	// Run blocks until SIGINT/SIGTERM and drains in-flight jobs.
	if err := srv.Run(scheduler.NewServeMux(lifecycle)); err != nil {
		return fmt.Errorf("asynq server: %w", err)
	}

	log.Info("campaign lifecycle worker stopped")
	return nil
}
