package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"event-catalog/core/loader"
	"event-catalog/core/logger"
	"event-catalog/core/middleware/auth"
	"event-catalog/core/middleware/rayid"
	"event-catalog/feature/events"
	"event-catalog/feature/integrity"
	"event-catalog/feature/runs"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// @title Event Catalog API
// @version 1.0
// @description Administrative API for the reconciled event catalog.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the event catalog server",
	Long:  `Starts the HTTP server, loads all enabled features and schedules reconciliation runs.`,
	RunE:  runStart,
}

func init() {
	RootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, logg := a.cfg, a.logger

	srcs, err := a.sources()
	if err != nil {
		return err
	}
	runner := a.runner(a.engine(srcs))

	loc, err := time.LoadLocation(cfg.Reconcile.Timezone)
	if err != nil {
		logg.Warn("Unknown timezone, using UTC", zap.String("timezone", cfg.Reconcile.Timezone))
		loc = time.UTC
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// RayID first so every later log line carries it.
	app.Use(rayid.New())
	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(logg, c)
		l.Debug("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := a.catalog.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(a.metrics.Handler()))

	if !cfg.Server.Protected() {
		logg.Warn("SERVER_API_KEY is empty, admin routes are unprotected")
	}
	app.Use(auth.New(auth.Config{
		ApiKey: cfg.Server.ApiKey,
		Skip:   []string{"/health", "/metrics"},
	}))

	mgr := loader.NewManager(logg)
	mgr.Register(events.NewFeature(a.catalog, cfg.Reconcile.DefaultCity, loc, logg))
	mgr.Register(runs.NewFeature(ctx, runner, logg))
	mgr.Register(integrity.NewFeature(
		integrity.NewService(a.db, a.storage, cfg.Storage.Bucket, storagePrefixes(cfg), a.redis, logg),
	))
	if err := mgr.LoadAll(app); err != nil {
		return fmt.Errorf("failed to load features: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runs.NewScheduler(runner, cfg.Runs, logg).Start(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		logg.Info("Starting server", zap.String("address", cfg.Server.Address()))
		errCh <- app.Listen(cfg.Server.Address())
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		stop()
		wg.Wait()
		return fmt.Errorf("server failed: %w", err)
	}

	logg.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(time.Duration(cfg.Server.ShutdownSeconds) * time.Second); err != nil {
		logg.Warn("Server shutdown incomplete", zap.Error(err))
	}
	wg.Wait()
	return nil
}
