package settings

import (
	"fmt"
	"strings"

	"deliverydate/internal/calendar"
)

func clampDays(d Days) Days {
	if !d.Valid {
		return d
	}
	return DaysOf(min(d.N, MaxDays))
}

// Sanitize validates general settings coming from the admin side. Day counts
// are clamped to 0..MaxDays; the cutoff is normalized to HH:MM.
func (g General) Sanitize() (General, error) {
	g.DefaultLeadTimeMin = clampDays(g.DefaultLeadTimeMin)
	g.DefaultLeadTimeMax = clampDays(g.DefaultLeadTimeMax)
	g.DaysToAdd = clampDays(g.DaysToAdd)
	g.CustomText = strings.TrimSpace(g.CustomText)
	g.DateFormat = strings.TrimSpace(g.DateFormat)

	g.DisplayFormat = strings.ToLower(strings.TrimSpace(g.DisplayFormat))
	switch g.DisplayFormat {
	case "", DisplayRange, DisplayLatest, DisplayMax:
	default:
		return General{}, fmt.Errorf("display format %q: %w", g.DisplayFormat, ErrInvalidSettings)
	}

	if strings.TrimSpace(g.CutoffTime) != "" {
		h, m, err := ParseCutoff(g.CutoffTime)
		if err != nil {
			return General{}, err
		}
		g.CutoffTime = fmt.Sprintf("%02d:%02d", h, m)
	}
	return g, nil
}

// Sanitize rejects unknown weekday names and malformed dates, and
// normalizes what is kept. A nil weekly list stays nil so the Sunday default
// still applies.
func (c ClosedDays) Sanitize() (ClosedDays, error) {
	out := ClosedDays{StoreSpecific: []string{}}
	if c.StoreWeekly != nil {
		out.StoreWeekly = []string{}
	}
	for _, name := range c.StoreWeekly {
		wd, ok := calendar.ParseWeekday(name)
		if !ok {
			return ClosedDays{}, fmt.Errorf("weekday %q: %w", name, ErrInvalidSettings)
		}
		out.StoreWeekly = append(out.StoreWeekly, strings.ToLower(wd.String()))
	}
	dates, err := sanitizeDates(c.StoreSpecific)
	if err != nil {
		return ClosedDays{}, err
	}
	out.StoreSpecific = dates
	return out, nil
}

// Sanitize rejects malformed dates.
func (p PostageDays) Sanitize() (PostageDays, error) {
	dates, err := sanitizeDates(p.Specific)
	if err != nil {
		return PostageDays{}, err
	}
	return PostageDays{Specific: dates}, nil
}

func sanitizeDates(values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, v := range values {
		d, err := calendar.ParseDate(v)
		if err != nil {
			return nil, fmt.Errorf("date %q: %w", v, ErrInvalidSettings)
		}
		out = append(out, d.Format(calendar.DateLayout))
	}
	return out, nil
}

// Sanitize requires a method key and clamps transit bounds.
func (m ShippingMethod) Sanitize() (ShippingMethod, error) {
	m.Key = strings.TrimSpace(m.Key)
	if m.Key == "" {
		return ShippingMethod{}, fmt.Errorf("shipping method key required: %w", ErrInvalidSettings)
	}
	m.Title = strings.TrimSpace(m.Title)
	m.MinTransit = clampDays(m.MinTransit)
	m.MaxTransit = clampDays(m.MaxTransit)
	return m, nil
}

// Sanitize clamps both bounds.
func (o LeadTimeOverride) Sanitize() LeadTimeOverride {
	return LeadTimeOverride{Min: clampDays(o.Min), Max: clampDays(o.Max)}
}

// Sanitize applies the admin-side checks to a whole document, such as one
// read from a settings file. Map keys become the method keys and product ids.
func (d Document) Sanitize() (Document, error) {
	var (
		out = Document{
			ShippingMethods: make(map[string]ShippingMethod, len(d.ShippingMethods)),
			Products:        make(map[string]LeadTimeOverride, len(d.Products)),
		}
		err error
	)
	if out.General, err = d.General.Sanitize(); err != nil {
		return Document{}, fmt.Errorf("general: %w", err)
	}
	if out.ClosedDays, err = d.ClosedDays.Sanitize(); err != nil {
		return Document{}, fmt.Errorf("closed days: %w", err)
	}
	if out.PostageDays, err = d.PostageDays.Sanitize(); err != nil {
		return Document{}, fmt.Errorf("postage days: %w", err)
	}
	for key, m := range d.ShippingMethods {
		m.Key = key
		if m, err = m.Sanitize(); err != nil {
			return Document{}, fmt.Errorf("shipping method %q: %w", key, err)
		}
		out.ShippingMethods[m.Key] = m
	}
	for id, o := range d.Products {
		id = strings.TrimSpace(id)
		if id == "" {
			return Document{}, fmt.Errorf("product id required: %w", ErrInvalidSettings)
		}
		out.Products[id] = o.Sanitize()
	}
	return out, nil
}
