package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"deliverydate/internal/estimate"
	"deliverydate/internal/settings"
)

func window(from, to time.Time) estimate.DeliveryEstimate {
	return estimate.DeliveryEstimate{EarliestDeliveryDate: from, LatestDeliveryDate: to}
}

var (
	thu = time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)
	tue = time.Date(2024, 7, 16, 0, 0, 0, 0, time.UTC)
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name    string
		est     estimate.DeliveryEstimate
		display string
		pattern string
		text    string
		want    string
	}{
		{"range", window(thu, tue), "range", "F j, Y", "", "July 4, 2024 - July 16, 2024"},
		{"range_collapses", window(thu, thu), "range", "F j, Y", "", "July 4, 2024"},
		{"range_collapses_by_pattern", window(thu, thu.AddDate(0, 0, 1)), "range", "F Y", "", "July 2024"},
		{"latest", window(thu, tue), "latest", "Y-m-d", "", "by 2024-07-16"},
		{"max_alias", window(thu, tue), "max", "m/d/Y", "", "by 07/16/2024"},
		{"unknown_mode_is_range", window(thu, tue), "", "d/m/Y", "", "04/07/2024 - 16/07/2024"},
		{"custom_text", window(thu, tue), "latest", "l, F j, Y", "  Arrives ", "Arrives by Tuesday, July 16, 2024"},
		{"blank_custom_text", window(thu, thu), "range", "", "   ", "July 4, 2024"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.est, tt.display, tt.pattern, tt.text))
		})
	}
}

func TestFromSettings(t *testing.T) {
	g := settings.General{DisplayFormat: "range", DateFormat: "M j", CustomText: "Delivery:"}
	assert.Equal(t, "Delivery: Jul 4 - Jul 16", FromSettings(window(thu, tue), g))
}

func TestCartLine(t *testing.T) {
	assert.Equal(t, "Est. Delivery by July 16, 2024", CartLine(window(thu, tue), ""))
}

func TestDate(t *testing.T) {
	tests := []struct {
		pattern string
		date    time.Time
		want    string
	}{
		{"D, M jS", thu, "Thu, Jul 4th"},
		{"jS", time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), "1st"},
		{"jS", time.Date(2024, 7, 22, 0, 0, 0, 0, time.UTC), "22nd"},
		{"jS", time.Date(2024, 7, 23, 0, 0, 0, 0, time.UTC), "23rd"},
		{"jS", time.Date(2024, 7, 12, 0, 0, 0, 0, time.UTC), "12th"},
		{"n/j/y", thu, "7/4/24"},
		{"N w", time.Date(2024, 7, 7, 0, 0, 0, 0, time.UTC), "7 0"},
		{`\D\a\y j`, thu, "Day 4"},
		{"%Y-%m-%d", thu, "2024-07-04"},
		{"%A %d %B", thu, "Thursday 04 July"},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, Date(tt.date, tt.pattern))
		})
	}
}
