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
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"deliverydate/internal/config"
	"deliverydate/internal/estimate"
	"deliverydate/internal/logging"
	"deliverydate/internal/server"
	"deliverydate/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	if err := logging.Setup(cfg.LogLevel); err != nil {
		return err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid STORE_TIMEZONE %q: %w", cfg.Timezone, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	settingsStore, closeStore, err := store.Open(openCtx, cfg)
	cancel()
	if err != nil {
		return err
	}
	defer closeStore()

	policy := estimate.ParseAggregatePolicy(cfg.TransitAggregate)
	est := estimate.New(settingsStore,
		estimate.WithLocation(loc),
		estimate.WithAggregatePolicy(policy),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewWithStore(est, settingsStore),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("api listening",
			"addr", srv.Addr,
			"settings_store", cfg.SettingsStore,
			"timezone", loc.String(),
			"transit_aggregate", policy.String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		slog.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
