package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/rapid-ticketing/internal/api/http"
	"github.com/spec-kit/rapid-ticketing/internal/api/http/handlers"
	"github.com/spec-kit/rapid-ticketing/internal/auth"
	"github.com/spec-kit/rapid-ticketing/internal/config"
	"github.com/spec-kit/rapid-ticketing/internal/events"
	"github.com/spec-kit/rapid-ticketing/internal/mail"
	"github.com/spec-kit/rapid-ticketing/internal/observability"
	"github.com/spec-kit/rapid-ticketing/internal/persistence"
	"github.com/spec-kit/rapid-ticketing/internal/repository"
	"github.com/spec-kit/rapid-ticketing/internal/service"
	"github.com/spec-kit/rapid-ticketing/internal/worker"
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	alertRepo := repository.NewAlertRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	mailer := mail.NewNoopMailer()
	if cfg.Mail.Enabled {
		mailer = mail.NewResendMailer()
	}

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo: userRepo,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		UserRepo:   userRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		TicketRepo: ticketRepo,
		UserRepo:   userRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	alertService := service.NewAlertService(service.AlertDependencies{
		TicketRepo: ticketRepo,
		AlertRepo:  alertRepo,
		Retention:  cfg.Alerts.Retention(),
		Metrics:    metrics,
		Logger:     logger,
	})
	reminderService := service.NewReminderService(service.ReminderDependencies{
		TicketRepo: ticketRepo,
		UserRepo:   userRepo,
		Mailer:     mailer,
		SenderName: cfg.Mail.SenderName,
		Metrics:    metrics,
		Logger:     logger,
	})

	notifier := service.NewMailNotifier(service.MailNotifierDependencies{
		TicketRepo: ticketRepo,
		UserRepo:   userRepo,
		Mailer:     mailer,
		Dispatcher: dispatcher,
		SenderName: cfg.Mail.SenderName,
		Metrics:    metrics,
		Logger:     logger,
	})
	notifier.RegisterHandlers()

	scanLock := persistence.NewRedisScanLock(redis.Client, cfg.Alerts.LockKey, cfg.Alerts.LockTTL())
	alertWorker := worker.NewAlertWorker(alertService, scanLock, cfg.Alerts.ScanInterval(), metrics, logger)
	alertWorker.Start(ctx)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AdminTickets:   handlers.NewAdminTicketsHandler(ticketService, lifecycleService, reminderService),
		Alerts:         handlers.NewAlertsHandler(alertService),
		Technician:     handlers.NewTechnicianHandler(ticketService, lifecycleService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
