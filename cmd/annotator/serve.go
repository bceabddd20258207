package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-annotator/internal/api"
	"github.com/heimdex/heimdex-annotator/internal/config"
	"github.com/heimdex/heimdex-annotator/internal/logging"
	"github.com/heimdex/heimdex-annotator/internal/playback"
	"github.com/heimdex/heimdex-annotator/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local annotation API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(func(a *app) error {
				return serve(cmd.Context(), a, !noWatch)
			})
		},
	}
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not watch the videos directory for changes")
	return cmd
}

func serve(ctx context.Context, a *app, watch bool) error {
	startTime := time.Now()
	logger := a.logger

	logger.Info("starting heimdex annotator",
		"version", config.Version,
		"port", a.cfg.Port(),
		"videos_dir", logging.SanitizePath(a.cfg.VideosDir()),
		"store", logging.SanitizePath(a.cfg.StorePath()),
	)
	if a.cfg.ConfigFile() != "" {
		logger.Info("loaded config file", "path", logging.SanitizePath(a.cfg.ConfigFile()))
	}

	player, err := playback.NewServer(a.cfg.VideosDir(), logging.WithComponent(logger, "playback"))
	if err != nil {
		return fmt.Errorf("failed to initialize playback: %w", err)
	}

	if watch {
		w := watcher.New(logging.WithComponent(logger, "watcher"))
		w.OnChange(func(path string, event watcher.EventType) {
			logger.Debug("videos directory changed", "event", event.String(), "path", logging.SanitizePath(path))
			if event != watcher.EventDelete {
				return
			}
			id, err := a.reconciler.Normalizer().Normalize(path)
			if err != nil {
				return
			}
			ranges, err := a.service.GetAnnotations(context.Background(), id)
			if err == nil && len(ranges) > 0 {
				logger.Warn("annotated video removed, annotations kept as orphan",
					"path", logging.SanitizePath(path), "annotations", len(ranges))
			}
		})
		if err := w.Watch(ctx, a.cfg.VideosDir()); err != nil {
			logger.Warn("failed to watch videos directory", "error", err)
		} else {
			defer w.Stop()
		}
	}

	server := api.NewServer(api.ServerConfig{
		Port:      a.cfg.Port(),
		Service:   a.service,
		Playback:  player,
		Logger:    logging.WithComponent(logger, "api"),
		StartTime: startTime,
		Version:   config.Version,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		logger.Info("shutting down...")
	case <-ctx.Done():
		logger.Info("shutting down...")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("annotator stopped")
	return nil
}
