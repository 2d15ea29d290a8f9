// Package settings holds the store configuration the delivery estimator reads:
// general options, closed days, postage holidays, shipping-method transit
// times and per-product lead time overrides.
package settings

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Display formats.
const (
	DisplayRange  = "range"
	DisplayLatest = "latest"
	// DisplayMax is the older name of DisplayLatest still found in saved settings.
	DisplayMax = "max"
)

// Defaults applied when a setting is absent.
const (
	DefaultLeadTimeMin = 1
	DefaultLeadTimeMax = 3
	DefaultDateFormat  = "F j, Y"
	DefaultCutoffTime  = "16:00"
	DefaultTransitMin  = 1
	DefaultTransitMax  = 5
	// MaxDays bounds every day count accepted from the admin side.
	MaxDays = 365
)

// ErrInvalidSettings is returned when an admin write fails validation.
var ErrInvalidSettings = errors.New("invalid settings")

// General are the store-wide options.
type General struct {
	DefaultLeadTimeMin  Days   `json:"default_lead_time_min" yaml:"default_lead_time_min"`
	DefaultLeadTimeMax  Days   `json:"default_lead_time_max" yaml:"default_lead_time_max"`
	DaysToAdd           Days   `json:"days_to_add" yaml:"days_to_add"`
	DisplayFormat       string `json:"display_format" yaml:"display_format"`
	DateFormat          string `json:"date_format" yaml:"date_format"`
	CustomText          string `json:"custom_text" yaml:"custom_text"`
	CartCheckoutDisplay bool   `json:"cart_checkout_display" yaml:"cart_checkout_display"`
	CutoffTime          string `json:"cutoff_time" yaml:"cutoff_time"`
}

// WithDefaults fills absent options with their defaults.
func (g General) WithDefaults() General {
	if !g.DefaultLeadTimeMin.Valid {
		g.DefaultLeadTimeMin = DaysOf(DefaultLeadTimeMin)
	}
	if !g.DefaultLeadTimeMax.Valid {
		g.DefaultLeadTimeMax = DaysOf(DefaultLeadTimeMax)
	}
	if !g.DaysToAdd.Valid {
		g.DaysToAdd = DaysOf(0)
	}
	if strings.TrimSpace(g.DisplayFormat) == "" {
		g.DisplayFormat = DisplayRange
	}
	if strings.TrimSpace(g.DateFormat) == "" {
		g.DateFormat = DefaultDateFormat
	}
	if strings.TrimSpace(g.CutoffTime) == "" {
		g.CutoffTime = DefaultCutoffTime
	}
	return g
}

// ClosedDays are the days the store does not fulfill orders.
type ClosedDays struct {
	StoreWeekly   []string `json:"store_weekly" yaml:"store_weekly"`
	StoreSpecific []string `json:"store_specific" yaml:"store_specific"`
}

// WithDefaults closes Sundays when no weekly closures were ever saved. An
// empty, non-nil list means the store is open every weekday.
func (c ClosedDays) WithDefaults() ClosedDays {
	if c.StoreWeekly == nil {
		c.StoreWeekly = []string{"sunday"}
	}
	return c
}

// PostageDays are carrier holidays.
type PostageDays struct {
	Specific []string `json:"specific" yaml:"specific"`
}

// ShippingMethod holds transit times for one shipping method instance. Keys
// combine the method type and its zone instance, e.g. "flat_rate:1".
type ShippingMethod struct {
	Key        string `json:"key,omitempty" yaml:"key,omitempty"`
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
	MinTransit Days   `json:"min_transit" yaml:"min_transit"`
	MaxTransit Days   `json:"max_transit" yaml:"max_transit"`
	Enabled    *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// IsEnabled reports whether the method is enabled. Methods saved without the
// flag count as enabled.
func (m ShippingMethod) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// LeadTimeOverride is a product-level lead time. Either bound may be absent.
type LeadTimeOverride struct {
	Min Days `json:"min_lead_time" yaml:"min_lead_time"`
	Max Days `json:"max_lead_time" yaml:"max_lead_time"`
}

// Provider is the read side of the configuration store.
type Provider interface {
	GeneralSettings(ctx context.Context) (General, error)
	ClosedDays(ctx context.Context) (ClosedDays, error)
	PostageDays(ctx context.Context) (PostageDays, error)
	ShippingMethods(ctx context.Context) (map[string]ShippingMethod, error)
	// ProductLeadTime returns ok=false when the product has no override.
	ProductLeadTime(ctx context.Context, productID string) (LeadTimeOverride, bool, error)
}

// Writer is the admin side of the configuration store.
type Writer interface {
	SaveGeneral(ctx context.Context, g General) error
	SaveClosedDays(ctx context.Context, c ClosedDays) error
	SavePostageDays(ctx context.Context, p PostageDays) error
	SaveShippingMethod(ctx context.Context, m ShippingMethod) error
	DeleteShippingMethod(ctx context.Context, key string) error
	SaveProductLeadTime(ctx context.Context, productID string, o LeadTimeOverride) error
}

// Store is a configuration store that can be read and written.
type Store interface {
	Provider
	Writer
}

// Snapshot is every store-wide setting, read together and defaulted.
type Snapshot struct {
	General         General
	ClosedDays      ClosedDays
	PostageDays     PostageDays
	ShippingMethods map[string]ShippingMethod
}

// Load reads a fresh snapshot from p.
func Load(ctx context.Context, p Provider) (Snapshot, error) {
	g, err := p.GeneralSettings(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("general settings: %w", err)
	}
	c, err := p.ClosedDays(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("closed days: %w", err)
	}
	pd, err := p.PostageDays(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("postage days: %w", err)
	}
	methods, err := p.ShippingMethods(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("shipping methods: %w", err)
	}
	return Snapshot{
		General:         g.WithDefaults(),
		ClosedDays:      c.WithDefaults(),
		PostageDays:     pd,
		ShippingMethods: methods,
	}, nil
}

// ParseCutoff parses an "HH:MM" 24-hour time of day.
func ParseCutoff(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("cutoff time %q: %w", s, ErrInvalidSettings)
	}
	return t.Hour(), t.Minute(), nil
}

func cloneMethods(in map[string]ShippingMethod) map[string]ShippingMethod {
	out := maps.Clone(in)
	if out == nil {
		out = map[string]ShippingMethod{}
	}
	for k, m := range out {
		if m.Enabled != nil {
			v := *m.Enabled
			m.Enabled = &v
		}
		out[k] = m
	}
	return out
}

func cloneClosed(c ClosedDays) ClosedDays {
	return ClosedDays{StoreWeekly: slices.Clone(c.StoreWeekly), StoreSpecific: slices.Clone(c.StoreSpecific)}
}
