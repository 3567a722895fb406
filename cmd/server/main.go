// Package main is the entry point for the careerbridge API server.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/careerbridge/careerbridge-api/internal/config"
	"github.com/careerbridge/careerbridge-api/internal/security"
	"github.com/careerbridge/careerbridge-api/internal/ui"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "careerbridge",
	Short: "AI career guidance API",
	Long:  "CareerBridge serves CV skill extraction, learning roadmaps and career mentoring backed by Gemini and Groq.",
	// No subcommand runs the server.
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: ./config.yaml, ./configs/config.yaml or /etc/careerbridge/config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration singleton, honouring --config.
func loadConfig() (*config.Configuration, error) {
	if cfgPath != "" {
		return config.GetConfigWithPath(cfgPath)
	}
	return config.GetConfig()
}

// setupLogger creates the structured logger described by cfg. Every record
// passes through the redacting handler before it is written.
func setupLogger(cfg config.LoggingConfig) (*slog.Logger, func() error, error) {
	var (
		w       io.Writer = os.Stdout
		closeFn           = func() error { return nil }
	)
	if cfg.OutputPath != "" {
		f, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = f.Close
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var inner slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		inner = slog.NewTextHandler(w, opts)
	} else {
		inner = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(security.NewRedactedHandler(inner))
	slog.SetDefault(logger)
	return logger, closeFn, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// quiet silences the console UI for commands that print their own output.
func quiet() {
	ui.SetOutput(io.Discard)
}
