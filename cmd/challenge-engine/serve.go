package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/streakforge/challenge-engine/pkg/api"
	"github.com/streakforge/challenge-engine/pkg/config"
	"github.com/streakforge/challenge-engine/pkg/db"
	"github.com/streakforge/challenge-engine/pkg/metrics"
	"github.com/streakforge/challenge-engine/pkg/repository"
	"github.com/streakforge/challenge-engine/pkg/service"
)

func newServeCmd(debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, newLogger(*debug))
		},
	}
}

func serve(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.LoadAppConfigFromEnv()
	if err != nil {
		return err
	}

	store, conn, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	if conn != nil {
		defer func() { _ = conn.Close() }()
	}

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.NewCollector(prometheus.DefaultRegisterer)
	}

	svc := service.New(store, collector, logger, nil)
	if cfg.CatalogPath != "" {
		if err := importCatalog(ctx, svc, cfg.CatalogPath, logger); err != nil {
			return err
		}
	}
	if err := svc.Warm(ctx); err != nil {
		return err
	}

	health := func() error { return nil }
	if conn != nil {
		health = func() error { return db.Health(conn) }
	}

	limiter := api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.RunCleanup(ctx, time.Minute)

	r := mux.NewRouter()
	r.Use(limiter.Middleware)
	if collector != nil {
		r.Use(api.MonitorMiddleware(collector))
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
	api.NewHandler(svc, health, logger).Routes(r)

	h := handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError)),
		handlers.PrintRecoveryStack(true),
	)(r)
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", api.UserIDHeader}),
	)(h)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", server.Addr, "store_mode", cfg.StoreMode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore returns the configured store. conn is nil in memory mode.
func openStore(cfg *config.AppConfig, logger *slog.Logger) (service.Store, *sql.DB, error) {
	if cfg.StoreMode == config.StoreModeMemory {
		logger.Warn("Using in-memory store, data is lost on restart")
		return repository.NewMemoryStore(nil), nil, nil
	}

	conn, err := db.Connect(db.NewConfigFromEnv())
	if err != nil {
		return nil, nil, err
	}
	return repository.NewPostgresStore(conn), conn, nil
}
