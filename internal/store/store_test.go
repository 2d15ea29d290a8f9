package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deliverydate/internal/config"
	"deliverydate/internal/settings"
)

const settingsYAML = `
general:
  default_lead_time_min: 2
  default_lead_time_max: "4"
  cutoff_time: "15:00"
closed_days:
  store_weekly: [saturday, sunday]
shipping_methods:
  "flat_rate:1":
    min_transit: 1
    max_transit: 3
products:
  "42":
    min_lead_time: 7
`

func writeSettings(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(settingsYAML), 0o600))
	return path
}

func TestOpenMemoryDefaults(t *testing.T) {
	s, closeFn, err := Open(context.Background(), config.Config{SettingsStore: config.StoreMemory})
	require.NoError(t, err)
	defer closeFn()

	methods, err := s.ShippingMethods(context.Background())
	require.NoError(t, err)
	assert.Empty(t, methods)
}

func TestOpenMemoryFromFile(t *testing.T) {
	s, closeFn, err := Open(context.Background(), config.Config{SettingsStore: config.StoreMemory, SettingsFile: writeSettings(t)})
	require.NoError(t, err)
	defer closeFn()

	g, err := s.GeneralSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, settings.DaysOf(4), g.DefaultLeadTimeMax)
	assert.Equal(t, "15:00", g.CutoffTime)
}

func TestOpenSQLiteSeedsOnce(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{
		SettingsStore: config.StoreSQLite,
		SQLitePath:    filepath.Join(t.TempDir(), "edd.db"),
		SettingsFile:  writeSettings(t),
	}

	s, closeFn, err := Open(ctx, cfg)
	require.NoError(t, err)
	o, ok, err := s.ProductLeadTime(ctx, "42")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, settings.DaysOf(7), o.Min)

	g, err := s.GeneralSettings(ctx)
	require.NoError(t, err)
	g.CutoffTime = "11:00"
	require.NoError(t, s.SaveGeneral(ctx, g))
	closeFn()

	s, closeFn, err = Open(ctx, cfg)
	require.NoError(t, err)
	defer closeFn()
	g, err = s.GeneralSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "11:00", g.CutoffTime)
}

func TestOpenUnknownStore(t *testing.T) {
	_, _, err := Open(context.Background(), config.Config{SettingsStore: "redis"})
	assert.Error(t, err)
}

func TestOpenMissingFile(t *testing.T) {
	_, _, err := Open(context.Background(), config.Config{SettingsFile: filepath.Join(t.TempDir(), "nope.json")})
	assert.Error(t, err)
}

func TestOpenKeepsAdminEditsAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	file := filepath.Join(dir, "settings.json")
	// No general section: the general document alone cannot tell a seeded store apart.
	require.NoError(t, os.WriteFile(file, []byte(`{
		"closed_days": {"store_weekly": ["sunday"]},
		"shipping_methods": {"flat_rate:1": {"min_transit": 1, "max_transit": 3}}
	}`), 0o600))
	cfg := config.Config{
		SettingsStore: config.StoreSQLite,
		SQLitePath:    filepath.Join(dir, "edd.db"),
		SettingsFile:  file,
	}

	s, closeFn, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, s.SaveClosedDays(ctx, settings.ClosedDays{StoreWeekly: []string{"saturday", "sunday"}}))
	require.NoError(t, s.SaveShippingMethod(ctx, settings.ShippingMethod{
		Key: "flat_rate:1", MinTransit: settings.DaysOf(2), MaxTransit: settings.DaysOf(9),
	}))
	closeFn()

	s, closeFn, err = Open(ctx, cfg)
	require.NoError(t, err)
	defer closeFn()

	c, err := s.ClosedDays(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"saturday", "sunday"}, c.StoreWeekly)

	methods, err := s.ShippingMethods(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.DaysOf(2), methods["flat_rate:1"].MinTransit)
	assert.Equal(t, settings.DaysOf(9), methods["flat_rate:1"].MaxTransit)
}

func TestOpenDoesNotSeedOverExistingSettings(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{
		SettingsStore: config.StoreSQLite,
		SQLitePath:    filepath.Join(t.TempDir(), "edd.db"),
	}

	s, closeFn, err := Open(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, s.SaveProductLeadTime(ctx, "42", settings.LeadTimeOverride{Min: settings.DaysOf(1)}))
	closeFn()

	cfg.SettingsFile = writeSettings(t)
	s, closeFn, err = Open(ctx, cfg)
	require.NoError(t, err)
	defer closeFn()

	o, ok, err := s.ProductLeadTime(ctx, "42")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, settings.DaysOf(1), o.Min)

	methods, err := s.ShippingMethods(ctx)
	require.NoError(t, err)
	assert.Empty(t, methods)
}

func TestOpenRejectsInvalidSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"general": {"cutoff_time": "noon"}}`), 0o600))

	_, _, err := Open(context.Background(), config.Config{
		SettingsStore: config.StoreSQLite,
		SQLitePath:    ":memory:",
		SettingsFile:  path,
	})
	assert.ErrorIs(t, err, settings.ErrInvalidSettings)
}
