package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"deliverydate/internal/settings"
)

// Document names in edd_settings.
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

// Store implements settings.Store on a pgx pool.
type Store struct {
	db *pgxpool.Pool
}

var _ settings.Store = (*Store)(nil)

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
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
	rows, err := s.db.Query(ctx, `
        SELECT method_key, title, min_transit, max_transit, enabled
        FROM edd_shipping_methods`)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	out := map[string]settings.ShippingMethod{}
	for rows.Next() {
		var (
			m        settings.ShippingMethod
			min, max *int
			enabled  bool
		)
		if err := rows.Scan(&m.Key, &m.Title, &min, &max, &enabled); err != nil {
			return nil, err
		}
		m.MinTransit = settings.ParseDays(min)
		m.MaxTransit = settings.ParseDays(max)
		m.Enabled = &enabled
		out[m.Key] = m
	}
	return out, wrap(rows.Err())
}

func (s *Store) ProductLeadTime(ctx context.Context, productID string) (settings.LeadTimeOverride, bool, error) {
	var min, max *int
	err := s.db.QueryRow(ctx, `
        SELECT min_lead, max_lead
        FROM edd_product_lead_times
        WHERE product_id = $1`, productID).Scan(&min, &max)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return settings.LeadTimeOverride{}, false, nil
		}
		return settings.LeadTimeOverride{}, false, wrap(err)
	}
	return settings.LeadTimeOverride{Min: settings.ParseDays(min), Max: settings.ParseDays(max)}, true, nil
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
	_, err := s.db.Exec(ctx, `
        INSERT INTO edd_shipping_methods (method_key, title, min_transit, max_transit, enabled, updated_at)
        VALUES ($1, $2, $3, $4, $5, now())
        ON CONFLICT (method_key) DO UPDATE SET
            title = EXCLUDED.title,
            min_transit = EXCLUDED.min_transit,
            max_transit = EXCLUDED.max_transit,
            enabled = EXCLUDED.enabled,
            updated_at = EXCLUDED.updated_at`,
		m.Key, m.Title, m.MinTransit.Ptr(), m.MaxTransit.Ptr(), m.IsEnabled())
	return wrap(err)
}

func (s *Store) DeleteShippingMethod(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM edd_shipping_methods WHERE method_key = $1`, key)
	return wrap(err)
}

func (s *Store) SaveProductLeadTime(ctx context.Context, productID string, o settings.LeadTimeOverride) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO edd_product_lead_times (product_id, min_lead, max_lead, updated_at)
        VALUES ($1, $2, $3, now())
        ON CONFLICT (product_id) DO UPDATE SET
            min_lead = EXCLUDED.min_lead,
            max_lead = EXCLUDED.max_lead,
            updated_at = EXCLUDED.updated_at`,
		productID, o.Min.Ptr(), o.Max.Ptr())
	return wrap(err)
}

// Seeded reports whether the store was seeded before or already holds
// settings of any kind.
func (s *Store) Seeded(ctx context.Context) (bool, error) {
	var seeded bool
	err := s.db.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM edd_settings)
            OR EXISTS (SELECT 1 FROM edd_shipping_methods)
            OR EXISTS (SELECT 1 FROM edd_product_lead_times)`).Scan(&seeded)
	return seeded, wrap(err)
}

// MarkSeeded records that source was imported.
func (s *Store) MarkSeeded(ctx context.Context, source string) error {
	return s.writeDoc(ctx, docSeeded, seedMarker{Source: source, SeededAt: time.Now().UTC()})
}

// readDoc leaves v untouched when the document was never saved.
func (s *Store) readDoc(ctx context.Context, name string, v any) error {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT document FROM edd_settings WHERE name = $1`, name).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return wrap(err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s settings: %w", name, err)
	}
	return nil
}

func (s *Store) writeDoc(ctx context.Context, name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
        INSERT INTO edd_settings (name, document, updated_at)
        VALUES ($1, $2::jsonb, now())
        ON CONFLICT (name) DO UPDATE SET
            document = EXCLUDED.document,
            updated_at = EXCLUDED.updated_at`,
		name, string(raw))
	return wrap(err)
}

// wrap points at the missing migration when the schema is absent.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42P01" { // undefined_table
		return fmt.Errorf("settings schema missing, run migrations: %w", err)
	}
	return err
}
