package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/mediafetch/mediafetch/internal/cleanup"
	"github.com/mediafetch/mediafetch/internal/config"
	"github.com/mediafetch/mediafetch/internal/engine/ytdlp"
	"github.com/mediafetch/mediafetch/internal/fetch"
	"github.com/mediafetch/mediafetch/internal/http/rest"
	"github.com/mediafetch/mediafetch/internal/logctx"
	"github.com/mediafetch/mediafetch/internal/notifier"
	"github.com/mediafetch/mediafetch/internal/storage/sqlite"
	"github.com/mediafetch/mediafetch/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

const dirPerm = 0o755

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	logger := slog.New(logctx.NewTraceHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}),
	))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("mediafetch starting...", "log_level", cfg.LogLevel)

	if err := run(logctx.WithLogger(ctx, logger), cfg); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logctx.LoggerFromContext(ctx)

	// =========================================================================
	// Storage Directory
	if err := os.MkdirAll(cfg.DownloadDir, dirPerm); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	// =========================================================================
	// Start Database
	database, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("DB error: %w", err)
	}
	defer database.Close()

	history := sqlite.NewFetchRepository(database)

	// =========================================================================
	// Start Telemetry
	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "mediafetch",
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		ExportInterval: cfg.Telemetry.ExportInterval,
	})
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	defer tel.Shutdown(context.Background())

	// =========================================================================
	// Start Fetch Engine
	eng, err := ytdlp.New(cfg.YtdlpPath)
	if err != nil {
		return fmt.Errorf("failed to setup fetch engine: %w", err)
	}

	coordinator := fetch.NewCoordinator(cfg.DownloadDir, cfg.CACertPath, eng, history, tel)

	// =========================================================================
	// Start API Service
	var notif notifier.Notifier
	if cfg.DiscordWebhookURL != "" {
		notif = &notifier.DiscordNotifier{WebhookURL: cfg.DiscordWebhookURL}
	}

	handler := rest.NewDownloadHandler(coordinator, history, notif, tel)

	r := chi.NewRouter()
	r.Use(telemetry.RequestID)
	r.Use(telemetry.HTTPLogging)
	r.Use(telemetry.NewHTTPMiddleware(tel).Middleware)
	r.Mount("/", handler.Routes())

	server := &http.Server{
		Addr:         cfg.BindAddress(),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		Handler:      otelhttp.NewHandler(r, "mediafetch"),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	// =========================================================================
	// Start Retention Sweeper
	sweeper := cleanup.NewSweeper(cfg.DownloadDir, cfg.Retention, history, tel)

	hour, minute, err := cfg.CleanupTime()
	if err != nil {
		return err
	}

	logger.Info("serving downloads",
		"bind_address", cfg.BindAddress(),
		"download_dir", cfg.DownloadDir,
		"retention", cfg.Retention.String(),
		"cleanup_at", cfg.CleanupAt,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		sweeper.Run(ctx, hour, minute)

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("start shutdown")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to gracefully shutdown the server", "err", err)

			if err = server.Close(); err != nil {
				return fmt.Errorf("could not stop server gracefully: %w", err)
			}
		}

		return nil
	})

	return g.Wait()
}
