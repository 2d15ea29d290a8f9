package settings

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDaysUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Days
	}{
		{"number", `3`, DaysOf(3)},
		{"numeric_string", `"4"`, DaysOf(4)},
		{"padded_string", `" 5 "`, DaysOf(5)},
		{"float", `2.9`, DaysOf(2)},
		{"blank", `""`, Days{}},
		{"null", `null`, Days{}},
		{"word", `"soon"`, Days{}},
		{"negative_clamped", `-2`, DaysOf(0)},
		{"huge_float_capped", `1e300`, DaysOf(MaxDays)},
		{"huge_float_string_capped", `"1e300"`, DaysOf(MaxDays)},
		{"huge_negative_float", `-1e300`, DaysOf(0)},
		{"overflowing_integer_string", `"99999999999999999999"`, DaysOf(MaxDays)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v struct {
				D Days `json:"d"`
			}
			require.NoError(t, json.Unmarshal([]byte(`{"d":`+tt.in+`}`), &v))
			assert.Equal(t, tt.want, v.D)
		})
	}
}

func TestDaysUnmarshalYAML(t *testing.T) {
	var v struct {
		A Days `yaml:"a"`
		B Days `yaml:"b"`
		C Days `yaml:"c"`
		D Days `yaml:"d"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: 2\nb: \"7\"\nc: ~\nd: ''\n"), &v))
	assert.Equal(t, DaysOf(2), v.A)
	assert.Equal(t, DaysOf(7), v.B)
	assert.False(t, v.C.Valid)
	assert.False(t, v.D.Valid)
}

func TestDaysMarshalJSON(t *testing.T) {
	b, err := json.Marshal(LeadTimeOverride{Min: DaysOf(2)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"min_lead_time":2,"max_lead_time":null}`, string(b))
}

func TestParseDays(t *testing.T) {
	n := 6
	assert.Equal(t, DaysOf(6), ParseDays(&n))
	assert.Equal(t, Days{}, ParseDays((*int)(nil)))
	assert.Equal(t, DaysOf(3), ParseDays(json.Number("3")))
	assert.Equal(t, DaysOf(1), ParseDays(1.0))
	assert.Equal(t, DaysOf(MaxDays), ParseDays(1e19))
	assert.Equal(t, Days{}, ParseDays(math.Inf(1)))
	assert.Equal(t, Days{}, ParseDays(math.NaN()))
	assert.Equal(t, Days{}, ParseDays(true))
	assert.Equal(t, 9, Days{}.Or(9))
	assert.Nil(t, Days{}.Ptr())
	assert.Equal(t, 4, *DaysOf(4).Ptr())
}

func TestGeneralWithDefaults(t *testing.T) {
	g := General{}.WithDefaults()
	assert.Equal(t, DaysOf(1), g.DefaultLeadTimeMin)
	assert.Equal(t, DaysOf(3), g.DefaultLeadTimeMax)
	assert.Equal(t, DaysOf(0), g.DaysToAdd)
	assert.Equal(t, DisplayRange, g.DisplayFormat)
	assert.Equal(t, DefaultDateFormat, g.DateFormat)
	assert.Equal(t, DefaultCutoffTime, g.CutoffTime)

	kept := General{DefaultLeadTimeMin: DaysOf(0), CutoffTime: "09:30"}.WithDefaults()
	assert.Equal(t, DaysOf(0), kept.DefaultLeadTimeMin)
	assert.Equal(t, "09:30", kept.CutoffTime)
}

func TestClosedDaysWithDefaults(t *testing.T) {
	assert.Equal(t, []string{"sunday"}, ClosedDays{}.WithDefaults().StoreWeekly)
	assert.Empty(t, ClosedDays{StoreWeekly: []string{}}.WithDefaults().StoreWeekly)
}

func TestParseCutoff(t *testing.T) {
	h, m, err := ParseCutoff("16:00")
	require.NoError(t, err)
	assert.Equal(t, 16, h)
	assert.Equal(t, 0, m)

	h, m, err = ParseCutoff(" 9:05 ")
	require.NoError(t, err)
	assert.Equal(t, 9, h)
	assert.Equal(t, 5, m)

	for _, bad := range []string{"", "25:00", "4pm", "16"} {
		_, _, err := ParseCutoff(bad)
		assert.ErrorIs(t, err, ErrInvalidSettings, bad)
	}
}

func TestGeneralSanitize(t *testing.T) {
	g, err := General{
		DefaultLeadTimeMin: DaysOf(900),
		DisplayFormat:      " Latest ",
		CutoffTime:         "9:30",
		CustomText:         "  Arrives  ",
	}.Sanitize()
	require.NoError(t, err)
	assert.Equal(t, DaysOf(MaxDays), g.DefaultLeadTimeMin)
	assert.Equal(t, DisplayLatest, g.DisplayFormat)
	assert.Equal(t, "09:30", g.CutoffTime)
	assert.Equal(t, "Arrives", g.CustomText)

	_, err = General{DisplayFormat: "calendar"}.Sanitize()
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = General{CutoffTime: "late"}.Sanitize()
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestClosedDaysSanitize(t *testing.T) {
	c, err := ClosedDays{StoreWeekly: []string{"Sunday", " saturday"}, StoreSpecific: []string{"2024-12-25"}}.Sanitize()
	require.NoError(t, err)
	assert.Equal(t, []string{"sunday", "saturday"}, c.StoreWeekly)
	assert.Equal(t, []string{"2024-12-25"}, c.StoreSpecific)

	_, err = ClosedDays{StoreWeekly: []string{"holiday"}}.Sanitize()
	assert.ErrorIs(t, err, ErrInvalidSettings)

	_, err = PostageDays{Specific: []string{"12/25/2024"}}.Sanitize()
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestShippingMethodSanitize(t *testing.T) {
	_, err := ShippingMethod{Key: "  "}.Sanitize()
	assert.ErrorIs(t, err, ErrInvalidSettings)

	m, err := ShippingMethod{Key: " flat_rate:1 ", MaxTransit: DaysOf(1000)}.Sanitize()
	require.NoError(t, err)
	assert.Equal(t, "flat_rate:1", m.Key)
	assert.Equal(t, DaysOf(MaxDays), m.MaxTransit)
	assert.False(t, m.MinTransit.Valid)
	assert.True(t, m.IsEnabled())
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(Document{ClosedDays: ClosedDays{StoreWeekly: []string{"sunday"}}})

	c, err := m.ClosedDays(ctx)
	require.NoError(t, err)
	c.StoreWeekly[0] = "monday"

	again, err := m.ClosedDays(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sunday"}, again.StoreWeekly)
}

func TestMemoryWrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(Document{})

	require.NoError(t, m.SaveShippingMethod(ctx, ShippingMethod{Key: "flat_rate:1", MinTransit: DaysOf(1), MaxTransit: DaysOf(3)}))
	require.NoError(t, m.SaveProductLeadTime(ctx, "42", LeadTimeOverride{Min: DaysOf(5)}))
	require.NoError(t, m.SaveGeneral(ctx, General{CutoffTime: "12:00"}))

	methods, err := m.ShippingMethods(ctx)
	require.NoError(t, err)
	require.Contains(t, methods, "flat_rate:1")
	assert.Equal(t, DaysOf(3), methods["flat_rate:1"].MaxTransit)

	o, ok, err := m.ProductLeadTime(ctx, "42")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, DaysOf(5), o.Min)

	_, ok, err = m.ProductLeadTime(ctx, "43")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.DeleteShippingMethod(ctx, "flat_rate:1"))
	methods, err = m.ShippingMethods(ctx)
	require.NoError(t, err)
	assert.Empty(t, methods)

	snap, err := Load(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, "12:00", snap.General.CutoffTime)
	assert.Equal(t, []string{"sunday"}, snap.ClosedDays.StoreWeekly)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{
		"general": {"default_lead_time_min": "2", "default_lead_time_max": "", "cutoff_time": "15:00"},
		"closed_days": {"store_weekly": ["saturday", "sunday"]},
		"shipping_methods": {"flat_rate:1": {"min_transit": 1, "max_transit": "3", "enabled": false}},
		"products": {"7": {"min_lead_time": 4}}
	}`), 0o600))

	m, err := LoadFile(jsonPath)
	require.NoError(t, err)
	ctx := context.Background()

	g, err := m.GeneralSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, DaysOf(2), g.DefaultLeadTimeMin)
	assert.False(t, g.DefaultLeadTimeMax.Valid)

	methods, err := m.ShippingMethods(ctx)
	require.NoError(t, err)
	assert.Equal(t, "flat_rate:1", methods["flat_rate:1"].Key)
	assert.False(t, methods["flat_rate:1"].IsEnabled())

	yamlPath := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
general:
  days_to_add: 1
postage_days:
  specific: ["2024-12-25"]
shipping_methods:
  "free_shipping:2":
    min_transit: 3
    max_transit: 6
`), 0o600))

	m, err = LoadFile(yamlPath)
	require.NoError(t, err)
	g, err = m.GeneralSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, DaysOf(1), g.DaysToAdd)
	p, err := m.PostageDays(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-12-25"}, p.Specific)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestLoadFileClampsOutOfBoundsValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
general:
  default_lead_time_min: 3000000
  default_lead_time_max: 9223372036854775807
  days_to_add: -4
  display_format: " Max "
  cutoff_time: "9:05"
shipping_methods:
  " express:3 ":
    min_transit: 1000
products:
  "42":
    max_lead_time: 500
`), 0o600))

	m, err := LoadFile(path)
	require.NoError(t, err)
	ctx := context.Background()

	g, err := m.GeneralSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, DaysOf(MaxDays), g.DefaultLeadTimeMin)
	assert.Equal(t, DaysOf(MaxDays), g.DefaultLeadTimeMax)
	assert.Equal(t, DaysOf(0), g.DaysToAdd)
	assert.Equal(t, DisplayMax, g.DisplayFormat)
	assert.Equal(t, "09:05", g.CutoffTime)

	c, err := m.ClosedDays(ctx)
	require.NoError(t, err)
	assert.Nil(t, c.StoreWeekly)

	methods, err := m.ShippingMethods(ctx)
	require.NoError(t, err)
	require.Contains(t, methods, "express:3")
	assert.Equal(t, DaysOf(MaxDays), methods["express:3"].MinTransit)

	o, ok, err := m.ProductLeadTime(ctx, "42")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, DaysOf(MaxDays), o.Max)
}

func TestLoadFileRejectsInvalidValues(t *testing.T) {
	for name, body := range map[string]string{
		"cutoff":  `{"general": {"cutoff_time": "noon"}}`,
		"display": `{"general": {"display_format": "calendar"}}`,
		"weekday": `{"closed_days": {"store_weekly": ["someday"]}}`,
		"date":    `{"postage_days": {"specific": ["2024-02-30"]}}`,
		"product": `{"products": {" ": {"min_lead_time": 1}}}`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

			_, err := LoadFile(path)
			assert.ErrorIs(t, err, ErrInvalidSettings)
		})
	}
}

func TestSeedSanitizes(t *testing.T) {
	w := NewMemory(Document{})
	ctx := context.Background()

	require.NoError(t, Seed(ctx, w, Document{
		General:         General{DefaultLeadTimeMin: DaysOf(3000000)},
		ShippingMethods: map[string]ShippingMethod{"flat_rate:1": {MaxTransit: DaysOf(4000)}},
	}))
	g, err := w.GeneralSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, DaysOf(MaxDays), g.DefaultLeadTimeMin)
	methods, err := w.ShippingMethods(ctx)
	require.NoError(t, err)
	assert.Equal(t, DaysOf(MaxDays), methods["flat_rate:1"].MaxTransit)

	err = Seed(ctx, w, Document{General: General{CutoffTime: "25:99"}})
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestNewMemoryDoesNotModifyCallerMaps(t *testing.T) {
	methods := map[string]ShippingMethod{"flat_rate:1": {MinTransit: DaysOf(1)}}
	products := map[string]LeadTimeOverride{"7": {Min: DaysOf(2)}}
	m := NewMemory(Document{ShippingMethods: methods, Products: products})

	assert.Empty(t, methods["flat_rate:1"].Key)

	ctx := context.Background()
	require.NoError(t, m.SaveProductLeadTime(ctx, "8", LeadTimeOverride{Min: DaysOf(1)}))
	assert.NotContains(t, products, "8")

	got, err := m.ShippingMethods(ctx)
	require.NoError(t, err)
	assert.Equal(t, "flat_rate:1", got["flat_rate:1"].Key)
}
