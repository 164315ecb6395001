package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/freqaug/internal/config"
	"github.com/MeKo-Tech/freqaug/internal/dataset"
	"github.com/MeKo-Tech/freqaug/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP augmentation service",
		Long: `Start an HTTP server that augments batches on request.

The server provides the following endpoints:
  POST /augment        - Augment a JSON-encoded batch
  POST /augment/image  - Augment an uploaded image, returns PNG
  GET  /ws/augment     - WebSocket stream of augment requests
  GET  /variants       - List variants
  GET  /health         - Health check endpoint
  GET  /metrics        - Prometheus metrics

Examples:
  freqaug serve
  freqaug serve --port 8080
  freqaug serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd)
		},
	}

	f := cmd.Flags()
	f.StringP("host", "H", "localhost", "server host")
	f.IntP("port", "p", 8080, "server port")
	f.String("cors-origin", "*", "CORS allowed origins")
	f.Int("max-upload-size", 50, "maximum upload size in MB")
	f.Int("timeout", 30, "request timeout in seconds")
	f.Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	f.String("variant", "mask-square", "variant used when a request names none")
	f.Float64("freq-alpha", 1.0, "default freq_alpha for mix variants")
	f.String("device", "cpu", "device batches must be placed on")
	f.Int("size", 84, "default image side for /augment/image")
	f.Int("max-size", 1024, "largest image side a request may ask for")
	f.String("overlay-dir", "", "image folder sampled by the overlay variant")
	f.Bool("rate-limit-enabled", false, "enable rate limiting")
	f.Int("requests-per-minute", 120, "maximum requests per minute per client")
	f.Int("requests-per-hour", 3000, "maximum requests per hour per client")
	f.Int("max-requests-per-day", 20000, "maximum requests per day per client")
	f.Int64("max-data-per-day", 2<<30, "maximum data processed per day per client (bytes)")
	return cmd
}

// serverConfig translates the resolved configuration into server settings.
func serverConfig(cfg *config.Config, logger *slog.Logger) (server.Config, error) {
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return server.Config{}, err
	}
	variant, err := cfg.Variant()
	if err != nil {
		return server.Config{}, err
	}
	sc := server.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		CORSOrigin:     cfg.Server.CORSOrigin,
		MaxUploadMB:    int64(cfg.Server.MaxUploadMB),
		TimeoutSec:     cfg.Server.TimeoutSec,
		Engine:         engineCfg,
		DefaultVariant: variant,
		ImageSize:      cfg.Augment.ImageSize,
		MaxImageSize:   cfg.Augment.MaxImageSize,
		RateLimit: server.RateLimitConfig{
			Enabled:           cfg.Server.RateLimitEnabled,
			RequestsPerMinute: cfg.Server.RequestsPerMinute,
			RequestsPerHour:   cfg.Server.RequestsPerHour,
			MaxRequestsPerDay: cfg.Server.MaxRequestsPerDay,
			MaxDataPerDay:     cfg.Server.MaxDataPerDay,
		},
		Logger: logger,
	}
	if cfg.Overlay.Dir != "" {
		sc.Overlay = dataset.NewFolder(cfg.Overlay.Dir,
			dataset.WithExtensions(cfg.Overlay.Extensions...),
			dataset.WithLogger(logger))
	}
	return sc, nil
}

func (a *app) runServe(cmd *cobra.Command) error {
	cfg := a.cfg
	sc, err := serverConfig(cfg, a.logger)
	if err != nil {
		return err
	}
	srv, err := server.NewServer(sc)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}
	httpServer := srv.HTTPServer()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting augmentation server", "addr", srv.Addr(),
			"default_variant", sc.DefaultVariant.String(), "rate_limit", sc.RateLimit.Enabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.logger.Info("Received shutdown signal")
	}

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	a.logger.Info("Starting graceful shutdown", "timeout", shutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}
	a.logger.Info("Graceful shutdown completed")
	return nil
}
