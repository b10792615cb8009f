package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/plateful/order-dispatch/internal/config"
	"github.com/plateful/order-dispatch/internal/handler"
	"github.com/plateful/order-dispatch/internal/infra/postgresql"
	"github.com/plateful/order-dispatch/internal/infra/postgresql/migrations"
	infraredis "github.com/plateful/order-dispatch/internal/infra/redis"
	"github.com/plateful/order-dispatch/internal/notify"
	"github.com/plateful/order-dispatch/internal/observability"
	"github.com/plateful/order-dispatch/internal/provider"
	"github.com/plateful/order-dispatch/internal/queue"
	"github.com/plateful/order-dispatch/internal/repository"
	"github.com/plateful/order-dispatch/internal/service"
	"github.com/plateful/order-dispatch/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer rabbit.Close()

	pushProvider, err := provider.NewPushGatewayProvider(cfg.PushGatewayURL)
	if err != nil {
		logger.Fatal("push provider initialization failed", zap.Error(err))
	}

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	orderRepo := repository.NewGormOrderRepo(db)
	deliveryRepo := repository.NewGormDeliveryRepo(db)
	actorRepo := repository.NewGormActorRepo(db)
	mirrorRepo := repository.NewGormMirroredOrderRepo(db)
	attemptRepo := repository.NewGormAttemptRepo(db)

	metrics := observability.NewMetrics()
	publisher := queue.NewRabbitMQPublisher(rabbit)
	consumer := queue.NewRabbitMQConsumer(rabbit, cfg.RouterConcurrency, logger)

	dispatcher := notify.NewDispatcher(actorRepo, pushProvider, attemptRepo, rateLimiter, logger, metrics)

	promotions, err := service.NewPromotionService(
		orderRepo,
		mirrorRepo,
		publisher,
		dispatcher,
		cfg.PromotionConcurrency,
		logger,
	)
	if err != nil {
		logger.Fatal("promotion service initialization failed", zap.Error(err))
	}
	promotions.SetMetrics(metrics)

	scheduler, err := service.NewScheduler(promotions, cfg.PromotionInterval(), logger)
	if err != nil {
		logger.Fatal("scheduler initialization failed", zap.Error(err))
	}

	router, err := service.NewChangeRouter(consumer, dispatcher, cfg.RouterConcurrency, logger)
	if err != nil {
		logger.Fatal("change router initialization failed", zap.Error(err))
	}
	router.SetMetrics(metrics)

	fulfillment, err := service.NewFulfillmentService(orderRepo, deliveryRepo, attemptRepo, publisher, logger)
	if err != nil {
		logger.Fatal("fulfillment service initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterOrderRoutes(app, fulfillment, promotions); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("promotion scheduler started", zap.Duration("interval", cfg.PromotionInterval()))
		return scheduler.Start(groupCtx)
	})

	g.Go(func() error {
		logger.Info("change router started", zap.Int("concurrency", cfg.RouterConcurrency))
		return router.Start(groupCtx)
	})

	g.Go(func() error {
		logger.Info("order-dispatch api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			return fmt.Errorf("api server stopped: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down api server")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatal("service terminated with error", zap.Error(err))
	}

	logger.Info("order-dispatch stopped")
}
