package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cyryl1/herb-wise-frontend/internal/assistant"
	"github.com/cyryl1/herb-wise-frontend/internal/config"
	"github.com/cyryl1/herb-wise-frontend/internal/observability"
	"github.com/cyryl1/herb-wise-frontend/internal/web"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 0 // SSE change feeds stay open indefinitely
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HerbWise web server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg)
	logger.Info("starting herbwise", "version", AppVersion, "addr", cfg.ListenAddr)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.TracingEnabled {
		environment := "prod"
		if cfg.Dev {
			environment = "dev"
		}
		stopTracing, err := observability.Setup(ctx, observability.Config{
			Endpoint:    cfg.TracingEndpoint,
			ServiceName: "herbwise",
			Environment: environment,
		}, logger)
		if err != nil {
			return fmt.Errorf("setting up tracing: %w", err)
		}
		defer func() {
			flushCtx, cancelFlush := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancelFlush()
			if err := stopTracing(flushCtx); err != nil {
				logger.Warn("trace flush", "error", err)
			}
		}()
	}

	store, backend, err := openStore(cfg, logger)
	if err != nil {
		return err
	}

	// External writes to the storage directory (another herbwise
	// process, a restore from backup) feed the same change bus as this
	// process's own saves.
	changes, err := backend.Watch(ctx)
	if err != nil {
		logger.Warn("storage watcher unavailable", "error", err)
	} else {
		go store.Notifications().Bridge(ctx, changes)
	}

	client := assistant.New(assistant.Config{
		BaseURL:        cfg.BackendURL,
		Timeout:        cfg.RequestTimeout,
		ImageTimeout:   cfg.ImageTimeout,
		RequestsPerSec: cfg.RequestsPerSec,
		Burst:          cfg.RequestBurst,
	}, logger)

	server, err := web.NewServer(web.ServerConfig{
		Logger:    logger,
		Store:     store,
		Assistant: client,
		IsDev:     cfg.Dev,
	})
	if err != nil {
		return fmt.Errorf("creating web server: %w", err)
	}

	var handler http.Handler = server.Handler()
	if cfg.TracingEnabled {
		handler = otelhttp.NewHandler(handler, "herbwise.http")
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("listening", "url", "http://"+cfg.ListenAddr)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
