// Package sqlite stores delivery-date settings in a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"deliverydate/internal/settings"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	docGeneral     = "general"
	docClosedDays  = "closed_days"
	docPostageDays = "postage_days"
	docSeeded      = "seeded"
)

type seedMarker struct {
	Source   string    `json:"source"`
	SeededAt time.Time `json:"seeded_at"`
}

// Store implements settings.Store on database/sql with the modernc driver.
type Store struct {
	db *sql.DB
}

var _ settings.Store = (*Store)(nil)

// Open opens (or creates) the database at path and migrates it. Use
// ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// Each connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) GeneralSettings(ctx context.Context) (settings.General, error) {
	var g settings.General
	err := s.readDoc(ctx, docGeneral, &g)
	return g, err
}

func (s *Store) ClosedDays(ctx context.Context) (settings.ClosedDays, error) {
	var c settings.ClosedDays
	err := s.readDoc(ctx, docClosedDays, &c)
	return c, err
}

func (s *Store) PostageDays(ctx context.Context) (settings.PostageDays, error) {
	var p settings.PostageDays
	err := s.readDoc(ctx, docPostageDays, &p)
	return p, err
}

func (s *Store) ShippingMethods(ctx context.Context) (map[string]settings.ShippingMethod, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT method_key, title, min_transit, max_transit, enabled
        FROM edd_shipping_methods`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]settings.ShippingMethod{}
	for rows.Next() {
		var (
			m        settings.ShippingMethod
			min, max sql.NullInt64
			enabled  bool
		)
		if err := rows.Scan(&m.Key, &m.Title, &min, &max, &enabled); err != nil {
			return nil, err
		}
		m.MinTransit = nullDays(min)
		m.MaxTransit = nullDays(max)
		m.Enabled = &enabled
		out[m.Key] = m
	}
	return out, rows.Err()
}

func (s *Store) ProductLeadTime(ctx context.Context, productID string) (settings.LeadTimeOverride, bool, error) {
	var min, max sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
        SELECT min_lead, max_lead
        FROM edd_product_lead_times
        WHERE product_id = ?`, productID).Scan(&min, &max)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return settings.LeadTimeOverride{}, false, nil
		}
		return settings.LeadTimeOverride{}, false, err
	}
	return settings.LeadTimeOverride{Min: nullDays(min), Max: nullDays(max)}, true, nil
}

func (s *Store) SaveGeneral(ctx context.Context, g settings.General) error {
	return s.writeDoc(ctx, docGeneral, g)
}

func (s *Store) SaveClosedDays(ctx context.Context, c settings.ClosedDays) error {
	return s.writeDoc(ctx, docClosedDays, c)
}

func (s *Store) SavePostageDays(ctx context.Context, p settings.PostageDays) error {
	return s.writeDoc(ctx, docPostageDays, p)
}

func (s *Store) SaveShippingMethod(ctx context.Context, m settings.ShippingMethod) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO edd_shipping_methods (method_key, title, min_transit, max_transit, enabled, updated_at)
        VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT (method_key) DO UPDATE SET
            title = excluded.title,
            min_transit = excluded.min_transit,
            max_transit = excluded.max_transit,
            enabled = excluded.enabled,
            updated_at = excluded.updated_at`,
		m.Key, m.Title, m.MinTransit.Ptr(), m.MaxTransit.Ptr(), m.IsEnabled())
	return err
}

func (s *Store) DeleteShippingMethod(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM edd_shipping_methods WHERE method_key = ?`, key)
	return err
}

func (s *Store) SaveProductLeadTime(ctx context.Context, productID string, o settings.LeadTimeOverride) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO edd_product_lead_times (product_id, min_lead, max_lead, updated_at)
        VALUES (?, ?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT (product_id) DO UPDATE SET
            min_lead = excluded.min_lead,
            max_lead = excluded.max_lead,
            updated_at = excluded.updated_at`,
		productID, o.Min.Ptr(), o.Max.Ptr())
	return err
}

// Seeded reports whether the store was seeded before or already holds
// settings of any kind.
func (s *Store) Seeded(ctx context.Context) (bool, error) {
	var seeded bool
	err := s.db.QueryRowContext(ctx, `
        SELECT EXISTS (SELECT 1 FROM edd_settings)
            OR EXISTS (SELECT 1 FROM edd_shipping_methods)
            OR EXISTS (SELECT 1 FROM edd_product_lead_times)`).Scan(&seeded)
	return seeded, err
}

// MarkSeeded records that source was imported.
func (s *Store) MarkSeeded(ctx context.Context, source string) error {
	return s.writeDoc(ctx, docSeeded, seedMarker{Source: source, SeededAt: time.Now().UTC()})
}

func (s *Store) readDoc(ctx context.Context, name string, v any) error {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM edd_settings WHERE name = ?`, name).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode %s settings: %w", name, err)
	}
	return nil
}

func (s *Store) writeDoc(ctx context.Context, name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO edd_settings (name, document, updated_at)
        VALUES (?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT (name) DO UPDATE SET
            document = excluded.document,
            updated_at = excluded.updated_at`,
		name, string(raw))
	return err
}

func nullDays(n sql.NullInt64) settings.Days {
	if !n.Valid {
		return settings.Days{}
	}
	return settings.ParseDays(n.Int64)
}
