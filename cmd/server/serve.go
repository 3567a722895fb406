package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/careerbridge/careerbridge-api/internal/tracer"
	"github.com/careerbridge/careerbridge-api/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Start the HTTP API server; blocks until SIGINT/SIGTERM.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// =========================================================================
	// 1. Configuration and logging
	// =========================================================================
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, closeLog, err := setupLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	ui.PrintBanner()
	logger.Info("configuration loaded",
		slog.String("addr", cfg.Addr()),
		slog.String("database", cfg.Database.Path),
		slog.Int("providers", len(cfg.EnabledProviders())),
		slog.Bool("cache", cfg.Cache.Enabled),
		slog.Bool("rate_limit", cfg.RateLimit.Enabled),
	)

	// =========================================================================
	// 2. Tracing
	// =========================================================================
	shutdownTracing, err := tracer.Setup(cfg.Tracing.Enabled, cfg.Tracing.Exporter)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}()

	// =========================================================================
	// 3. Store, providers, service, router
	// =========================================================================
	gin.SetMode(cfg.Server.Mode)

	a, err := buildApp(cfg, logger)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}
	defer a.Close()

	if len(a.service.EnabledProviders()) == 0 {
		logger.Warn("no AI provider configured; AI endpoints will answer 503")
		ui.PrintInfo("No AI provider configured. Set GEMINI_API_KEY or GROQ_API_KEY.")
	}

	// =========================================================================
	// 4. HTTP server with graceful shutdown
	// =========================================================================
	addr := cfg.Addr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("address", addr))
		providers := make([]string, 0, 2)
		for _, p := range a.service.EnabledProviders() {
			providers = append(providers, p.DisplayName())
		}
		ui.PrintStartupInfo(addr, providers)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-serverErr:
		if ok {
			logger.Error("server error", slog.String("error", err.Error()))
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	ui.PrintShutdown()

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server stopped gracefully")
	ui.PrintGoodbye()
	return nil
}
