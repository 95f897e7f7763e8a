package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iappwebdev/mahl-zeit-planer/config"
	"github.com/iappwebdev/mahl-zeit-planer/internal/archive"
	"github.com/iappwebdev/mahl-zeit-planer/internal/database"
	"github.com/iappwebdev/mahl-zeit-planer/internal/logger"
	"github.com/iappwebdev/mahl-zeit-planer/internal/realtime"
	"github.com/iappwebdev/mahl-zeit-planer/internal/router"
	"github.com/iappwebdev/mahl-zeit-planer/internal/server"
	"github.com/iappwebdev/mahl-zeit-planer/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg, log)
	if err != nil {
		return err
	}
	if err := database.RunMigrations(db, log); err != nil {
		return err
	}

	// Without Redis the generate endpoint is not rate limited and changes
	// only reach observers of this process.
	redisClient, err := database.NewRedisClient(cfg, log)
	if err != nil {
		log.Warn("redis unavailable, continuing without it", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	g, gctx := errgroup.WithContext(ctx)

	publisher, subscriber, closeSource, err := changeTransport(gctx, g, cfg, redisClient, log)
	if err != nil {
		return err
	}
	defer closeSource()

	opts := []service.Option{
		service.WithLogger(log),
		service.WithActivityLog(service.NewActivityService(db)),
		service.WithSeed(cfg.Planner.Seed),
		service.WithRecencyWeeks(cfg.Planner.RecencyWeeks),
		service.WithAtomicRegenerate(cfg.Planner.AtomicRegenerate),
	}
	if publisher != nil {
		opts = append(opts, service.WithPublisher(publisher))
	}
	if cfg.Archive.Enabled() {
		client, err := cfg.Archive.NewS3Client(ctx)
		if err != nil {
			return err
		}
		opts = append(opts, service.WithArchiver(archive.NewS3Archiver(client, cfg.Archive.Bucket)))
		log.Info("archiving generated weeks", zap.String("bucket", cfg.Archive.Bucket))
	}

	mealPlans := service.NewMealPlanService(
		service.NewDishService(db),
		service.NewPreferenceService(db),
		service.NewAssignmentStore(db),
		opts...,
	)

	engine := router.SetupRouter(router.Deps{
		Config:     cfg,
		Logger:     log,
		DB:         db,
		Redis:      redisClient,
		MealPlans:  mealPlans,
		Tokens:     service.NewTokenService(cfg.JWTSecret, cfg.TokenTTL),
		Subscriber: subscriber,
	})

	srv := server.New(cfg.Addr(), engine, log)
	g.Go(func() error { return srv.Run(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}

// changeTransport picks how writes are announced. With the postgres source
// the table triggers announce every change and the service publishes
// nothing itself.
func changeTransport(ctx context.Context, g *errgroup.Group, cfg *config.Config, redisClient *redis.Client, log *zap.Logger) (realtime.Publisher, realtime.Subscriber, func(), error) {
	if cfg.RealtimeSource == config.RealtimePostgres {
		src, err := realtime.NewPGSource(cfg.PostgresDSN(), log)
		if err != nil {
			return nil, nil, nil, err
		}
		g.Go(func() error { return src.Run(ctx) })
		log.Info("listening for postgres change notifications", zap.String("channel", realtime.NotifyChannel))
		return nil, src, func() { _ = src.Close() }, nil
	}

	if redisClient != nil {
		broker := realtime.NewRedisBroker(redisClient, "", log)
		return broker, broker, func() {}, nil
	}

	hub := realtime.NewHub(log, 0)
	return hub, hub, func() {}, nil
}
