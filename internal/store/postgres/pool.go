// Package postgres stores delivery-date settings in PostgreSQL.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PoolOptions sizes the settings pool. Zero fields keep the defaults.
type PoolOptions struct {
	MaxConns         int32
	StatementTimeout time.Duration
}

const (
	defaultMaxConns         = 5
	defaultStatementTimeout = 5 * time.Second
)

func NewPool(ctx context.Context, databaseURL string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := parsePoolConfig(databaseURL, opts)
	if err != nil {
		return nil, err
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}

func parsePoolConfig(databaseURL string, opts PoolOptions) (*pgxpool.Config, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns <= 0 {
		opts.MaxConns = defaultMaxConns
	}
	if opts.StatementTimeout <= 0 {
		opts.StatementTimeout = defaultStatementTimeout
	}
	timeout := strconv.FormatInt(opts.StatementTimeout.Milliseconds(), 10)

	// Every estimate reads settings; connections stay warm between bursts.
	cfg.MaxConns = opts.MaxConns
	cfg.MinConns = min(1, opts.MaxConns)
	cfg.MaxConnIdleTime = 10 * time.Minute
	cfg.HealthCheckPeriod = time.Minute
	params := cfg.ConnConfig.RuntimeParams
	params["application_name"] = "deliverydate"
	// Dates are computed in the store timezone by the engine, never by the server.
	params["timezone"] = "UTC"
	params["statement_timeout"] = timeout
	params["idle_in_transaction_session_timeout"] = timeout
	return cfg, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
