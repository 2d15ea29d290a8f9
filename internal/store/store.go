// Package store opens the configured settings backend.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"deliverydate/internal/config"
	"deliverydate/internal/settings"
	"deliverydate/internal/store/postgres"
	"deliverydate/internal/store/sqlite"
)

// Open returns the settings store named by cfg.SettingsStore and a function
// releasing it. Database stores are migrated on open. A settings file, when
// configured, backs the memory store and seeds a database store once.
func Open(ctx context.Context, cfg config.Config) (settings.Store, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.SettingsStore)) {
	case "", config.StoreMemory:
		if cfg.SettingsFile == "" {
			slog.Warn("no settings file configured, using built-in defaults")
			return settings.NewMemory(settings.Document{}), func() {}, nil
		}
		m, err := settings.LoadFile(cfg.SettingsFile)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("settings loaded", "store", config.StoreMemory, "file", cfg.SettingsFile)
		return m, func() {}, nil

	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{
			MaxConns:         int32(min(cfg.DBMaxConns, math.MaxInt32)),
			StatementTimeout: cfg.DBStatementTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect db: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("database ping failed: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		s := postgres.New(pool)
		if err := seed(ctx, s, cfg.SettingsFile); err != nil {
			pool.Close()
			return nil, nil, err
		}
		slog.Info("settings store opened", "store", config.StorePostgres)
		return s, pool.Close, nil

	case config.StoreSQLite:
		path := cfg.SQLitePath
		if strings.TrimSpace(path) == "" {
			path = ":memory:"
		}
		s, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		if err := seed(ctx, s, cfg.SettingsFile); err != nil {
			s.Close()
			return nil, nil, err
		}
		slog.Info("settings store opened", "store", config.StoreSQLite, "path", path)
		return s, func() { s.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown settings store %q", cfg.SettingsStore)
}

// seedable is a database store that remembers whether it was seeded.
type seedable interface {
	settings.Store
	Seeded(ctx context.Context) (bool, error)
	MarkSeeded(ctx context.Context, source string) error
}

// seed imports the settings file into a store that was never seeded and
// holds no saved settings. Saved settings are never overwritten.
func seed(ctx context.Context, s seedable, path string) error {
	if path == "" {
		return nil
	}
	seeded, err := s.Seeded(ctx)
	if err != nil {
		return err
	}
	if seeded {
		slog.Info("settings already saved, skipping seed", "file", path)
		return nil
	}
	doc, err := settings.ReadDocument(path)
	if err != nil {
		return err
	}
	if err := settings.Seed(ctx, s, doc); err != nil {
		return err
	}
	if err := s.MarkSeeded(ctx, path); err != nil {
		return err
	}
	slog.Info("settings seeded", "file", path)
	return nil
}
