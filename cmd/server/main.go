package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/couchers-org/couchers-backend/internal/apps"
	"github.com/couchers-org/couchers-backend/internal/apps/communities"
	"github.com/couchers-org/couchers-backend/internal/config"
	"github.com/couchers-org/couchers-backend/internal/database"
	"github.com/couchers-org/couchers-backend/internal/dto"
	"github.com/couchers-org/couchers-backend/internal/handlers"
	"github.com/couchers-org/couchers-backend/internal/logging"
	"github.com/couchers-org/couchers-backend/internal/metrics"
	"github.com/couchers-org/couchers-backend/internal/middleware"
	"github.com/couchers-org/couchers-backend/internal/routes"
	"github.com/couchers-org/couchers-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"
)

const sentryFlushTimeout = 2 * time.Second

func main() {
	if err := run(config.Load()); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	stdout := logging.Setup(os.Stdout, cfg.LogLevel)

	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	if cfg.DBDriver == config.DriverPostgres && cfg.DBPassword == "" {
		return errors.New("DB_PASSWORD environment variable is required")
	}

	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			slog.Error("database close error", "error", err)
		}
	}()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	plugins := []apps.Plugin{
		communities.New(),
	}
	if err := migratePlugins(db, plugins); err != nil {
		return err
	}

	// ERROR+ records also go to system_logs
	dbLogHandler := logging.NewDBHandler(db)
	defer dbLogHandler.Stop()
	slog.SetDefault(slog.New(logging.NewMultiHandler(stdout, dbLogHandler)))

	cleanupDone := make(chan struct{})
	defer close(cleanupDone)
	logging.StartCleanup(db, cfg.LogRetention, cleanupDone)

	if initSentry(cfg) {
		defer sentry.Flush(sentryFlushTimeout)
	}

	m := metrics.New()
	m.RegisterUserGauges(db)

	userService := services.NewUserService(db)
	friendService := services.NewFriendService(db, userService)
	moderationService := services.NewModerationService(db)

	app := newApp(cfg, m)
	routes.Setup(app, cfg, db, m,
		handlers.NewHealthHandler(db),
		handlers.NewUserHandler(userService),
		handlers.NewFriendHandler(friendService),
		handlers.NewModerationHandler(moderationService),
		plugins,
	)

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port, "driver", cfg.DBDriver)
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-listenErr:
		return fmt.Errorf("server failed to start: %w", err)
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	}

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

func migratePlugins(db *gorm.DB, plugins []apps.Plugin) error {
	for _, p := range plugins {
		models := p.Models()
		if len(models) == 0 {
			continue
		}
		if err := database.MigrateModels(db, models); err != nil {
			return fmt.Errorf("plugin %s migration failed: %w", p.ID(), err)
		}
		slog.Info("plugin migrated", "plugin", p.ID(), "models", len(models))
	}
	return nil
}

// initSentry reports whether a client was configured.
func initSentry(cfg *config.Config) bool {
	if cfg.SentryDSN == "" {
		return false
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
		Environment:      cfg.AppEnv,
	})
	if err != nil {
		slog.Error("sentry init failed", "error", err)
		return false
	}
	return true
}

func newApp(cfg *config.Config, m *metrics.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: errorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{Repanic: true}))
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${locals:requestid} | ${method} | ${path}\n",
	}))
	app.Use(m.Middleware())
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "no-referrer")
		return c.Next()
	})
	return app
}

// errorHandler only exposes messages of client errors.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		if code < fiber.StatusInternalServerError {
			message = fe.Message
		}
	}

	if code >= fiber.StatusInternalServerError {
		slog.Error("unhandled server error",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", c.Locals("requestid"),
			"error", err.Error(),
		)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
	}

	return c.Status(code).JSON(dto.ErrorResponse{Error: true, Message: message})
}
