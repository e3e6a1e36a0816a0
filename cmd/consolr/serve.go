package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loykin/consolr/internal/broadcast"
	"github.com/loykin/consolr/internal/config"
	"github.com/loykin/consolr/internal/logger"
	"github.com/loykin/consolr/internal/metrics"
	"github.com/loykin/consolr/internal/registry"
	"github.com/loykin/consolr/internal/server"
	"github.com/loykin/consolr/internal/store"
)

func createServeCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the consolr daemon",
		Long: `Start the daemon: load persisted launch records, autostart the
consoles marked for it, and serve the HTTP/WebSocket API until
interrupted.

Examples:
  consolr serve
  consolr serve --config /etc/consolr/consolr.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(flags.ConfigPath)
		},
	}
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.Setup(logger.Config{
		Level:      cfg.Log.Level,
		Dir:        cfg.Log.Dir,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if cfg.Metrics.Enabled {
		if err := metrics.RegisterDefault(); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
	}

	st, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	reg := registry.New(st, registry.Options{
		HistoryLines: cfg.History.Lines,
		GracePeriod:  cfg.Stop.GracePeriod,
		PollInterval: cfg.Stop.PollInterval,
		StopCommand:  cfg.Stop.Command,
	})
	hub := broadcast.NewHub(100 * time.Millisecond)

	srv, err := server.NewServer(cfg.Listen, reg, hub, server.Options{
		BasePath:     cfg.BasePath,
		FilesRoot:    cfg.Files.Root,
		ShellCommand: cfg.Shell.Command,
		Metrics:      cfg.Metrics.Enabled,
	})
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	slog.Info("daemon started", "listen", cfg.Listen, "base_path", cfg.BasePath)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	slog.Info("shutting down", "signal", s.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	reg.Shutdown()
	slog.Info("daemon stopped")
	return nil
}
