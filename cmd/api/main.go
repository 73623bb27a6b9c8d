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

	httptransport "github.com/spec-kit/support-engine/internal/api/http"
	"github.com/spec-kit/support-engine/internal/api/http/handlers"
	"github.com/spec-kit/support-engine/internal/auth"
	"github.com/spec-kit/support-engine/internal/classifier"
	"github.com/spec-kit/support-engine/internal/config"
	"github.com/spec-kit/support-engine/internal/events"
	"github.com/spec-kit/support-engine/internal/locks"
	"github.com/spec-kit/support-engine/internal/observability"
	"github.com/spec-kit/support-engine/internal/persistence"
	"github.com/spec-kit/support-engine/internal/repository"
	"github.com/spec-kit/support-engine/internal/repository/memory"
	"github.com/spec-kit/support-engine/internal/service"
	"github.com/spec-kit/support-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
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

	if cfg.Postgres.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rdb := persistence.NewRedis(cfg.Redis, logger)
	defer rdb.Close()

	var ticketRepo repository.TicketRepository
	var agentRepo repository.AgentRepository
	var messageRepo repository.MessageRepository
	if pool := pg.PoolHandle(); pool != nil {
		ticketRepo = repository.NewTicketRepository(pool)
		agentRepo = repository.NewAgentRepository(pool)
		messageRepo = repository.NewMessageRepository(pool)
	} else {
		ticketRepo = memory.NewTicketRepository()
		agentRepo = memory.NewAgentRepository()
		messageRepo = memory.NewMessageRepository()
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	capacity := service.NewCapacityService(agentRepo, locks.NewKeyedMutex())
	conversation := service.NewConversationService(messageRepo, time.Now)
	assignment := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo: ticketRepo,
		AgentRepo:  agentRepo,
		Capacity:   capacity,
		Dispatcher: dispatcher,
	})
	lifecycle := service.NewLifecycleService(service.LifecycleDependencies{
		TicketRepo:   ticketRepo,
		AgentRepo:    agentRepo,
		Conversation: conversation,
		Capacity:     capacity,
		Assignment:   assignment,
		Classifier:   classifier.NewKeywordClassifier(),
		Dispatcher:   dispatcher,
		Logger:       logger,
	}, service.LifecycleOptions{
		RiskWindow:          cfg.SLA.RiskWindow(),
		ConfidenceThreshold: cfg.SLA.ConfidenceThreshold,
		ClassifyTimeout:     cfg.SLA.ClassifyTimeout(),
	})

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	agentService := service.NewAgentService(agentRepo, tokenManager, cfg.Auth.BcryptCost)
	authMiddleware := auth.NewAuthMiddleware(tokenManager, agentRepo)

	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notifications.RegisterHandlers()
	redisPublisher := events.NewRedisPublisher(rdb.Client, cfg.Notification.EventChannel, logger)
	redisPublisher.SubscribeAll(dispatcher)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	ticketsHandler := handlers.NewTicketsHandler(lifecycle)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rdb),
		Tickets:        ticketsHandler,
		AgentTickets:   handlers.NewAgentTicketsHandler(lifecycle, assignment, ticketsHandler),
		Agents:         handlers.NewAgentsHandler(agentService),
		AuthMiddleware: authMiddleware,
	})

	sweeper := worker.NewSLASweeper(ticketRepo, lifecycle, metrics, logger, cfg.SLA.SweepSchedule)
	if err := sweeper.Start(ctx); err != nil {
		logger.Fatal("failed to start sla sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
