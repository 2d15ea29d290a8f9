package estimate

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"deliverydate/internal/settings"
)

// LeadTimeRange is how many days a product takes to prepare.
type LeadTimeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// TransitTimeRange is how many days a shipping method takes to deliver.
type TransitTimeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// AggregatePolicy selects which shipping methods count when no method is
// chosen yet.
type AggregatePolicy int

const (
	// AggregateEnabledOnly skips methods saved as disabled.
	AggregateEnabledOnly AggregatePolicy = iota
	// AggregateAll uses every configured method.
	AggregateAll
)

// ParseAggregatePolicy maps "enabled" and "all"; anything else is
// AggregateEnabledOnly.
func ParseAggregatePolicy(s string) AggregatePolicy {
	if strings.EqualFold(strings.TrimSpace(s), "all") {
		return AggregateAll
	}
	return AggregateEnabledOnly
}

func (p AggregatePolicy) String() string {
	if p == AggregateAll {
		return "all"
	}
	return "enabled"
}

// Resolver picks the effective lead time and transit time ranges.
type Resolver struct {
	settings settings.Provider
	policy   AggregatePolicy
}

// NewResolver returns a resolver reading from p.
func NewResolver(p settings.Provider, policy AggregatePolicy) *Resolver {
	return &Resolver{settings: p, policy: policy}
}

// ResolveLeadTime returns the product override when one is set, else the
// store default. Max is never below Min.
func (r *Resolver) ResolveLeadTime(ctx context.Context, productID string) (LeadTimeRange, error) {
	g, err := r.settings.GeneralSettings(ctx)
	if err != nil {
		return LeadTimeRange{}, fmt.Errorf("%w: %w", ErrConfigurationUnavailable, err)
	}
	return r.LeadTimeWith(ctx, g.WithDefaults(), productID)
}

// LeadTimeWith is ResolveLeadTime against already loaded general settings.
// Only the product override is read from the store.
func (r *Resolver) LeadTimeWith(ctx context.Context, g settings.General, productID string) (LeadTimeRange, error) {
	var o settings.LeadTimeOverride
	if productID = strings.TrimSpace(productID); productID != "" {
		var err error
		o, _, err = r.settings.ProductLeadTime(ctx, productID)
		if err != nil {
			return LeadTimeRange{}, fmt.Errorf("%w: %w", ErrConfigurationUnavailable, err)
		}
	}
	return leadTimeRange(g, o), nil
}

func leadTimeRange(g settings.General, o settings.LeadTimeOverride) LeadTimeRange {
	switch {
	case o.Min.Valid && o.Max.Valid:
		return clampLead(o.Min.N, o.Max.N)
	case o.Min.Valid:
		return clampLead(o.Min.N, o.Min.N)
	case o.Max.Valid:
		return clampLead(o.Max.N, o.Max.N)
	}
	return clampLead(g.DefaultLeadTimeMin.Or(settings.DefaultLeadTimeMin), g.DefaultLeadTimeMax.Or(settings.DefaultLeadTimeMax))
}

func clampLead(lo, hi int) LeadTimeRange {
	return LeadTimeRange{Min: lo, Max: max(lo, hi)}
}

// ResolveTransitTime returns the chosen method's transit range. With no
// method, or one that is not configured, it spans every method allowed by
// the aggregate policy.
func (r *Resolver) ResolveTransitTime(ctx context.Context, methodKey string) (TransitTimeRange, error) {
	methods, err := r.settings.ShippingMethods(ctx)
	if err != nil {
		return TransitTimeRange{}, fmt.Errorf("%w: %w", ErrConfigurationUnavailable, err)
	}
	return r.TransitTimeWith(methods, methodKey), nil
}

// TransitTimeWith is ResolveTransitTime against already loaded methods.
func (r *Resolver) TransitTimeWith(methods map[string]settings.ShippingMethod, methodKey string) TransitTimeRange {
	return transitTimeRange(methods, methodKey, r.policy)
}

func transitTimeRange(methods map[string]settings.ShippingMethod, methodKey string, policy AggregatePolicy) TransitTimeRange {
	if key := strings.TrimSpace(methodKey); key != "" {
		if m, ok := methods[key]; ok {
			lo := m.MinTransit.Or(settings.DefaultTransitMin)
			hi := m.MaxTransit.Or(settings.DefaultTransitMax)
			return TransitTimeRange{Min: lo, Max: max(lo, hi)}
		}
		slog.Debug("unknown shipping method, using aggregate transit time", "shipping_method", key)
	}

	lo, hi := math.MaxInt, 0
	var foundMin, foundMax bool
	for _, m := range methods {
		if policy == AggregateEnabledOnly && !m.IsEnabled() {
			continue
		}
		if m.MinTransit.Valid {
			lo = min(lo, m.MinTransit.N)
			foundMin = true
		}
		if m.MaxTransit.Valid {
			hi = max(hi, m.MaxTransit.N)
			foundMax = true
		}
	}
	switch {
	case !foundMin && !foundMax:
		return TransitTimeRange{Min: settings.DefaultTransitMin, Max: settings.DefaultTransitMax}
	case !foundMin:
		lo = hi
	case !foundMax:
		hi = lo
	}
	return TransitTimeRange{Min: lo, Max: max(lo, hi)}
}
