package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/pscode22/payment-app/internal/adapter/handler"
	"github.com/pscode22/payment-app/internal/adapter/middleware"
	"github.com/pscode22/payment-app/internal/adapter/storage"
	"github.com/pscode22/payment-app/internal/core/config"
	"github.com/pscode22/payment-app/internal/core/engine"
	"github.com/pscode22/payment-app/internal/core/events/kafka"
	"github.com/pscode22/payment-app/internal/core/notifications"
	"github.com/pscode22/payment-app/internal/core/worker"
)

func main() {
	cfg := config.LoadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	dbPool, err := storage.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Database connection failed", "error", err)
		os.Exit(1)
	}
	if err := storage.Initialize(context.Background(), dbPool); err != nil {
		slog.Error("Schema initialization failed", "error", err)
		os.Exit(1)
	}

	// Repositories
	userRepo := storage.NewUserRepository(dbPool)
	accountRepo := storage.NewAccountRepository(dbPool)
	ledgerRepo := storage.NewLedgerRepository(dbPool)
	tokenRepo := storage.NewTokenRepository(dbPool)
	txRunner := storage.NewTxRunner(dbPool)

	// Post-commit notifiers: webhook jobs and, when configured, Kafka.
	var notifiers []engine.Notifier
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, &notifications.WebhookNotifier{
			Queue: storage.NewWebhookQueue(dbPool),
			URL:   cfg.WebhookURL,
		})
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers)
		defer publisher.Close()
		notifiers = append(notifiers, publisher)
	}

	transferEngine := engine.New(accountRepo, ledgerRepo, txRunner, userRepo,
		engine.WithTimeout(cfg.TransferTimeout),
		engine.WithNotifier(engine.MultiNotifier(notifiers...)),
	)

	// Handlers
	authHandler := &handler.AuthHandler{Users: userRepo, Accounts: accountRepo, Tokens: tokenRepo, Tx: txRunner, GrantMax: cfg.InitialGrantMax}
	accountHandler := &handler.AccountHandler{Engine: transferEngine, Users: userRepo}
	transferHandler := &handler.TransferHandler{Engine: transferEngine}
	userHandler := &handler.UserHandler{Users: userRepo}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/v1")

	// Public
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)

	// Protected
	private := api.Use(middleware.Protected(tokenRepo))
	private.Post("/auth/logout", authHandler.Logout)
	private.Get("/account/balance", accountHandler.GetBalance)
	private.Post("/account/transfer", middleware.Idempotency(storage.NewIdempotencyRepository(dbPool)), transferHandler.Transfer)
	private.Get("/account/transactions", transferHandler.GetHistory)
	private.Delete("/account", accountHandler.DeleteAccount)
	private.Get("/user/profile", userHandler.Profile)
	private.Post("/user/search", userHandler.Search)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	worker.StartWebhookWorker(workerCtx, dbPool, cfg.WebhookSecret)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("Server starting", "env", cfg.Env, "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutting down server...")

	stopWorker()

	if err := app.Shutdown(); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	dbPool.Close()
	slog.Info("Server exited")
}
