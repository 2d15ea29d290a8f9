// Package estimate computes delivery date ranges from lead times, transit
// times and the store's non-working days.
package estimate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"deliverydate/internal/calendar"
	"deliverydate/internal/settings"
)

// ErrConfigurationUnavailable wraps any failure to read settings. Callers
// should hide the delivery date rather than show a wrong one.
var ErrConfigurationUnavailable = errors.New("configuration unavailable")

// DeliveryEstimate is the result of one estimation.
type DeliveryEstimate struct {
	StartDate            time.Time
	TotalMinDays         int
	TotalMaxDays         int
	EarliestDeliveryDate time.Time
	LatestDeliveryDate   time.Time
}

// Estimator turns settings and the current time into delivery dates. It
// holds no state between calls; settings are read fresh every time.
type Estimator struct {
	settings settings.Provider
	resolver *Resolver
	clock    Clock
	loc      *time.Location
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(e *Estimator) { e.clock = c }
}

// WithLocation sets the store timezone. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(e *Estimator) { e.loc = loc }
}

// WithAggregatePolicy sets which shipping methods count when none is chosen.
func WithAggregatePolicy(p AggregatePolicy) Option {
	return func(e *Estimator) { e.resolver.policy = p }
}

// New returns an Estimator reading from p.
func New(p settings.Provider, opts ...Option) *Estimator {
	e := &Estimator{
		settings: p,
		resolver: NewResolver(p, AggregateEnabledOnly),
		clock:    SystemClock{},
		loc:      time.UTC,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.loc == nil {
		e.loc = time.UTC
	}
	return e
}

// Resolver exposes the range resolver for callers that need raw ranges.
func (e *Estimator) Resolver() *Resolver { return e.resolver }

// Location is the store timezone.
func (e *Estimator) Location() *time.Location { return e.loc }

// Settings reads the snapshot estimates and formatting are based on.
func (e *Estimator) Settings(ctx context.Context) (settings.Snapshot, error) {
	snap, err := settings.Load(ctx, e.settings)
	if err != nil {
		return settings.Snapshot{}, fmt.Errorf("%w: %w", ErrConfigurationUnavailable, err)
	}
	return snap, nil
}

// Calendar builds the non-working-day calendar from a snapshot.
func (e *Estimator) Calendar(snap settings.Snapshot) *calendar.Calendar {
	return calendar.New(e.loc, snap.ClosedDays.StoreWeekly, snap.ClosedDays.StoreSpecific, snap.PostageDays.Specific)
}

// Estimate computes the delivery window for a product and shipping method.
// Both may be empty: no product means the store default lead time, no
// method means the range across all methods.
func (e *Estimator) Estimate(ctx context.Context, productID, methodKey string) (DeliveryEstimate, error) {
	snap, err := e.Settings(ctx)
	if err != nil {
		return DeliveryEstimate{}, err
	}
	return e.EstimateWith(ctx, snap, productID, methodKey)
}

// EstimateWith is Estimate against an already loaded snapshot.
func (e *Estimator) EstimateWith(ctx context.Context, snap settings.Snapshot, productID, methodKey string) (DeliveryEstimate, error) {
	cal := e.Calendar(snap)
	if err := cal.Validate(); err != nil {
		return DeliveryEstimate{}, err
	}

	start, err := e.startDate(cal, snap.General.CutoffTime)
	if err != nil {
		return DeliveryEstimate{}, err
	}

	lead, err := e.resolver.LeadTimeWith(ctx, snap.General, productID)
	if err != nil {
		return DeliveryEstimate{}, err
	}
	transit := e.resolver.TransitTimeWith(snap.ShippingMethods, methodKey)
	pad := snap.General.DaysToAdd.Or(0)

	totalMin := lead.Min + transit.Min + pad
	totalMax := lead.Max + transit.Max + pad

	earliest, err := cal.AddWorkingDays(start, totalMin)
	if err != nil {
		return DeliveryEstimate{}, err
	}
	latest, err := cal.AddWorkingDays(earliest, max(0, totalMax-totalMin))
	if err != nil {
		return DeliveryEstimate{}, err
	}

	slog.Debug("estimated delivery",
		"product_id", productID,
		"shipping_method", methodKey,
		"start", start.Format(calendar.DateLayout),
		"lead", lead,
		"transit", transit,
		"earliest", earliest.Format(calendar.DateLayout),
		"latest", latest.Format(calendar.DateLayout),
	)

	return DeliveryEstimate{
		StartDate:            start,
		TotalMinDays:         totalMin,
		TotalMaxDays:         totalMax,
		EarliestDeliveryDate: earliest,
		LatestDeliveryDate:   latest,
	}, nil
}

// startDate is today in the store timezone, tomorrow once the cutoff has
// passed, moved forward to the first working day.
func (e *Estimator) startDate(cal *calendar.Calendar, cutoff string) (time.Time, error) {
	now := e.clock.Now().In(e.loc)
	h, m, err := settings.ParseCutoff(cutoff)
	if err != nil {
		slog.Warn("invalid cutoff time, using default", "cutoff", cutoff, "default", settings.DefaultCutoffTime)
		h, m, _ = settings.ParseCutoff(settings.DefaultCutoffTime)
	}
	y, mo, d := now.Date()
	today := time.Date(y, mo, d, 0, 0, 0, 0, e.loc)
	if now.Hour()*60+now.Minute() >= h*60+m {
		today = time.Date(y, mo, d+1, 0, 0, 0, 0, e.loc)
	}
	return cal.NextWorkingDay(today)
}
