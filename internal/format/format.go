// Package format renders delivery estimates for shoppers.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"deliverydate/internal/estimate"
	"deliverydate/internal/settings"
)

// BlockLabel heads the estimate in block rendering, in place of custom text.
const BlockLabel = "Estimated Delivery"

// Format renders an estimate in the configured display mode. In range mode a
// window whose two ends render the same collapses to one date. Non-empty
// custom text is prepended.
func Format(est estimate.DeliveryEstimate, displayFormat, dateFormat, customText string) string {
	latest := Date(est.LatestDeliveryDate, dateFormat)

	var out string
	switch strings.ToLower(strings.TrimSpace(displayFormat)) {
	case settings.DisplayLatest, settings.DisplayMax:
		out = "by " + latest
	default:
		earliest := Date(est.EarliestDeliveryDate, dateFormat)
		if earliest == latest {
			out = latest
		} else {
			out = earliest + " - " + latest
		}
	}

	if text := strings.TrimSpace(customText); text != "" {
		out = text + " " + out
	}
	return out
}

// FromSettings formats with the store's general options.
func FromSettings(est estimate.DeliveryEstimate, g settings.General) string {
	return Format(est, g.DisplayFormat, g.DateFormat, g.CustomText)
}

// CartLine is the short form shown under cart and checkout line items.
func CartLine(est estimate.DeliveryEstimate, dateFormat string) string {
	return fmt.Sprintf("Est. Delivery by %s", Date(est.LatestDeliveryDate, dateFormat))
}

// Date renders t with a date pattern. Patterns containing '%' are strftime;
// anything else uses the letters of the settings date formats ("F j, Y",
// "Y-m-d", "l, F j, Y", ...). A backslash makes the next letter literal.
func Date(t time.Time, pattern string) string {
	if strings.TrimSpace(pattern) == "" {
		pattern = settings.DefaultDateFormat
	}
	if strings.Contains(pattern, "%") {
		return strftime.Format(pattern, t)
	}

	var b strings.Builder
	escaped := false
	for _, r := range pattern {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case 'd':
			b.WriteString(t.Format("02"))
		case 'D':
			b.WriteString(t.Format("Mon"))
		case 'j':
			b.WriteString(strconv.Itoa(t.Day()))
		case 'l':
			b.WriteString(t.Format("Monday"))
		case 'N':
			b.WriteString(strconv.Itoa(isoWeekday(t)))
		case 'w':
			b.WriteString(strconv.Itoa(int(t.Weekday())))
		case 'S':
			b.WriteString(ordinalSuffix(t.Day()))
		case 'F':
			b.WriteString(t.Format("January"))
		case 'M':
			b.WriteString(t.Format("Jan"))
		case 'm':
			b.WriteString(t.Format("01"))
		case 'n':
			b.WriteString(strconv.Itoa(int(t.Month())))
		case 'Y':
			b.WriteString(strconv.Itoa(t.Year()))
		case 'y':
			b.WriteString(t.Format("06"))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isoWeekday(t time.Time) int {
	if t.Weekday() == time.Sunday {
		return 7
	}
	return int(t.Weekday())
}

func ordinalSuffix(day int) string {
	if day%100 >= 11 && day%100 <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}
