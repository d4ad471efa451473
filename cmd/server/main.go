// @title                       Fusepoint Dashboard API
// @version                     1.0
// @description                 Versioned project dashboards with per-project access control.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/fusepoint/dashboard-service/internal/api"
	"github.com/fusepoint/dashboard-service/internal/core/service"
	"github.com/fusepoint/dashboard-service/internal/infrastructure/backend"
	"github.com/fusepoint/dashboard-service/internal/infrastructure/queue"
	"github.com/fusepoint/dashboard-service/internal/pkg/config"
	"github.com/fusepoint/dashboard-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "dashboard-api",
	})

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("dashboard API failed")
		os.Exit(1)
	}
	log.Info().Msg("dashboard API stopped")
}

// run owns every resource opened after config load, so deferred cleanup
// happens before main exits.
func run(cfg *config.Config, log zerolog.Logger) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("backend connection failed: %w", err)
	}
	defer store.Close(context.Background())

	if err := store.Prepare(ctx); err != nil {
		return fmt.Errorf("schema setup failed: %w", err)
	}

	resolver := service.NewAccessResolver(store.Projects, store.Relationships, logger.Component("access"), store.Memberships...)
	dashboards := service.NewDashboardService(
		service.NewDashboardStore(store.Dashboards),
		store.Cache,
		queue.NewDispatcher(cfg.BootstrapWorkers, logger.Component("bootstrap")),
		logger.Component("dashboards"),
	)

	e := api.NewRouter(api.Deps{
		Service:   dashboards,
		Resolver:  resolver,
		JWTSecret: cfg.JWTSecret,
		Log:       log,
		Probes:    store.Probes,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info().Str("addr", server.Addr).Str("driver", cfg.StoreDriver).Msg("dashboard API listening")
	return serve(ctx, server)
}

// serve runs server until ctx is done, then shuts it down gracefully. A
// listen failure is returned instead of exiting the process.
func serve(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
