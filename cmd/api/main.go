package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-intake/internal/api/http"
	"github.com/spec-kit/ticket-intake/internal/api/http/handlers"
	"github.com/spec-kit/ticket-intake/internal/auth"
	"github.com/spec-kit/ticket-intake/internal/classifier"
	"github.com/spec-kit/ticket-intake/internal/config"
	"github.com/spec-kit/ticket-intake/internal/events"
	"github.com/spec-kit/ticket-intake/internal/limiter"
	"github.com/spec-kit/ticket-intake/internal/observability"
	"github.com/spec-kit/ticket-intake/internal/persistence"
	"github.com/spec-kit/ticket-intake/internal/repository"
	"github.com/spec-kit/ticket-intake/internal/service"
	"github.com/spec-kit/ticket-intake/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var ticketRepo repository.TicketRepository
	if pg.Configured() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		ticketRepo = repository.NewTicketRepository(pg.PoolHandle())
	} else {
		ticketRepo = repository.NewMemoryTicketRepository()
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var (
		strategy    limiter.Strategy = limiter.NewMemoryFixedWindow()
		redisPinger handlers.Pinger
	)
	if redis.Available() {
		strategy = limiter.NewRedisFixedWindow(redis.Client)
		redisPinger = redis
	}
	rateLimiter := limiter.NewManager(strategy, "ratelimit:", logger)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	var kafka *events.KafkaPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err = events.NewKafkaPublisher(cfg.Kafka, logger)
		if err != nil {
			logger.Fatal("failed to start kafka publisher", zap.Error(err))
		}
		defer kafka.Close() //nolint:errcheck
	}
	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	defer notifications.Close()
	worker.StartEventSubscribers(dispatcher, notifications, kafka)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		Classifier: classifier.New(cfg.AI, logger),
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})

	sweep := worker.NewReclassifyWorker(ticketService, cfg.Sweep, logger)
	if err := sweep.Start(); err != nil {
		logger.Fatal("failed to schedule re-classification sweep", zap.Error(err))
	}

	staffAuth := auth.NewStaffAuth(cfg.Auth.Enabled, auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes))
	if staffAuth == nil {
		logger.Warn("staff auth disabled; ticket updates and deletes are open")
	}

	production := cfg.App.IsProduction()
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics, production),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:    cfg.App.RequestTimeout(),
		Production: production,
	})
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, ticketRepo, redisPinger),
		Tickets:   handlers.NewTicketsHandler(ticketService),
		StaffAuth: staffAuth,
		Limiter:   rateLimiter,
		Limits: httptransport.RateLimits{
			CreateMax:     cfg.RateLimit.MaxRequests,
			CreateWindow:  cfg.RateLimit.Window(),
			GeneralMax:    cfg.RateLimit.GeneralMaxRequests,
			GeneralWindow: cfg.RateLimit.GeneralWindow(),
		},
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	sweep.Stop(shutdownCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
