package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Document is the whole configuration as one value, the shape of a settings
// file.
type Document struct {
	General         General                     `json:"general" yaml:"general"`
	ClosedDays      ClosedDays                  `json:"closed_days" yaml:"closed_days"`
	PostageDays     PostageDays                 `json:"postage_days" yaml:"postage_days"`
	ShippingMethods map[string]ShippingMethod   `json:"shipping_methods" yaml:"shipping_methods"`
	Products        map[string]LeadTimeOverride `json:"products" yaml:"products"`
}

// Memory is an in-process Store. Readers get copies, so a concurrent save
// never changes a value a caller already holds.
type Memory struct {
	mu  sync.RWMutex
	doc Document
}

// NewMemory returns a store seeded with doc.
func NewMemory(doc Document) *Memory {
	m := &Memory{doc: doc}
	m.doc.ShippingMethods = make(map[string]ShippingMethod, len(doc.ShippingMethods))
	for k, sm := range doc.ShippingMethods {
		sm.Key = k
		m.doc.ShippingMethods[k] = sm
	}
	m.doc.Products = maps.Clone(doc.Products)
	if m.doc.Products == nil {
		m.doc.Products = map[string]LeadTimeOverride{}
	}
	return m
}

// LoadFile reads a settings file into a Memory store.
func LoadFile(path string) (*Memory, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	return NewMemory(doc), nil
}

// ReadDocument reads a JSON or YAML (by extension) settings document and
// validates it like an admin save. Day counts are clamped to 0..MaxDays;
// malformed dates, weekdays, cutoff or display format reject the file.
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read settings file: %w", err)
	}
	var doc Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to parse settings file: %w", err)
	}
	doc, err = doc.Sanitize()
	if err != nil {
		return Document{}, fmt.Errorf("invalid settings file %s: %w", path, err)
	}
	return doc, nil
}

// Seed sanitizes doc and writes every part of it through w. Map keys name
// the shipping methods and products.
func Seed(ctx context.Context, w Writer, doc Document) error {
	doc, err := doc.Sanitize()
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if err := w.SaveGeneral(ctx, doc.General); err != nil {
		return fmt.Errorf("seed general settings: %w", err)
	}
	if err := w.SaveClosedDays(ctx, doc.ClosedDays); err != nil {
		return fmt.Errorf("seed closed days: %w", err)
	}
	if err := w.SavePostageDays(ctx, doc.PostageDays); err != nil {
		return fmt.Errorf("seed postage days: %w", err)
	}
	for _, key := range slices.Sorted(maps.Keys(doc.ShippingMethods)) {
		sm := doc.ShippingMethods[key]
		if err := w.SaveShippingMethod(ctx, sm); err != nil {
			return fmt.Errorf("seed shipping method %q: %w", key, err)
		}
	}
	for _, id := range slices.Sorted(maps.Keys(doc.Products)) {
		if err := w.SaveProductLeadTime(ctx, id, doc.Products[id]); err != nil {
			return fmt.Errorf("seed product %q: %w", id, err)
		}
	}
	return nil
}

func (m *Memory) GeneralSettings(ctx context.Context) (General, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.doc.General, nil
}

func (m *Memory) ClosedDays(ctx context.Context) (ClosedDays, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneClosed(m.doc.ClosedDays), nil
}

func (m *Memory) PostageDays(ctx context.Context) (PostageDays, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return PostageDays{Specific: slices.Clone(m.doc.PostageDays.Specific)}, nil
}

func (m *Memory) ShippingMethods(ctx context.Context) (map[string]ShippingMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneMethods(m.doc.ShippingMethods), nil
}

func (m *Memory) ProductLeadTime(ctx context.Context, productID string) (LeadTimeOverride, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.doc.Products[productID]
	return o, ok, nil
}

func (m *Memory) SaveGeneral(ctx context.Context, g General) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc.General = g
	return nil
}

func (m *Memory) SaveClosedDays(ctx context.Context, c ClosedDays) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc.ClosedDays = cloneClosed(c)
	return nil
}

func (m *Memory) SavePostageDays(ctx context.Context, p PostageDays) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc.PostageDays = PostageDays{Specific: slices.Clone(p.Specific)}
	return nil
}

func (m *Memory) SaveShippingMethod(ctx context.Context, sm ShippingMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	methods := maps.Clone(m.doc.ShippingMethods)
	methods[sm.Key] = cloneMethods(map[string]ShippingMethod{sm.Key: sm})[sm.Key]
	m.doc.ShippingMethods = methods
	return nil
}

func (m *Memory) DeleteShippingMethod(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	methods := maps.Clone(m.doc.ShippingMethods)
	delete(methods, key)
	m.doc.ShippingMethods = methods
	return nil
}

func (m *Memory) SaveProductLeadTime(ctx context.Context, productID string, o LeadTimeOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc.Products[productID] = o
	return nil
}
