// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/carterperez-dev/mediahub/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("mediahub api exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("mediahub api starting",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"database", cfg.Database.Driver,
		"storage", cfg.Media.Storage.Backend,
	)

	served := make(chan error, 1)
	go func() { served <- a.server.Start() }()

	select {
	case err := <-served:
		a.close(context.Background())
		return err
	case <-ctx.Done():
	}

	// The drain delay and the server's own shutdown timeout both run
	// inside this budget; the extra second covers closing the stores.
	budget := cfg.Server.DrainDelay + cfg.Server.ShutdownTimeout + time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx, cfg.Server.DrainDelay); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	a.close(shutdownCtx)

	logger.Info("stopped")
	return nil
}

// newLogger accepts any level slog can parse ("debug", "WARN", "info+2")
// and falls back to info.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
