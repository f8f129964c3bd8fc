package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/clock"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/config"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/database"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/department"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/logging"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/routes"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/sequence"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Department registry
	registry, err := department.Load(cfg.DepartmentsConfigPath)
	if err != nil {
		slog.Error("failed to load departments", "path", cfg.DepartmentsConfigPath, "error", err)
		os.Exit(1)
	}
	slog.Info("department registry loaded", "departments", len(registry.All()))

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
	if err := database.MigrateLogs(database.DB); err != nil {
		slog.Error("log migration failed", "error", err)
		os.Exit(1)
	}
	created, err := database.SeedDepartments(database.DB, registry)
	if err != nil {
		slog.Error("department seeding failed", "error", err)
		os.Exit(1)
	}
	slog.Info("departments seeded", "created", created)

	// Database log sink (ERROR+ async batch)
	dbLogHandler := logging.AttachDB(database.DB)

	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetentionDays, cleanupDone)

	// Redis (optional)
	rdb, err := database.ConnectRedis(cfg)
	if err != nil {
		slog.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Services
	clk := clock.Real()
	var seq sequence.Sequencer = sequence.NewDB(database.DB)
	if rdb != nil {
		seq = sequence.NewRedis(rdb)
	}

	ledger := services.NewLedgerService(database.DB)
	notifier := services.NewNotificationService(database.DB, rdb, clk, m)
	transitions := services.NewTransitionService(database.DB, ledger, notifier, clk, m)
	complaints := services.NewComplaintService(database.DB, cfg, registry, seq, ledger, notifier, clk, m)
	escalation := services.NewEscalationService(transitions, cfg, clk, m)
	analytics := services.NewAnalyticsService(database.DB, complaints, registry, cfg.Location(), clk)

	if err := escalation.Start(); err != nil {
		slog.Error("escalation scheduler failed to start", "error", err)
		os.Exit(1)
	}

	// Handlers
	healthHandler := handlers.NewHealthHandler(registry, database.Ping)
	complaintHandler := handlers.NewComplaintHandler(complaints, transitions)
	notificationHandler := handlers.NewNotificationHandler(notifier)
	departmentHandler := handlers.NewDepartmentHandler(ledger)
	escalationHandler := handlers.NewEscalationHandler(escalation)
	analyticsHandler := handlers.NewAnalyticsHandler(analytics)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	routes.Setup(app, cfg, reg, healthHandler, complaintHandler, notificationHandler, departmentHandler, escalationHandler, analyticsHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := escalation.Stop(stopCtx); err != nil {
		slog.Error("escalation scheduler did not stop in time", "error", err)
	}
	cancel()

	close(cleanupDone)
	dbLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}

	// Close database connections
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
