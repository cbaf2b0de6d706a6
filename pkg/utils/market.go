// Package utils provides small market-related helpers shared across the
// application.
package utils

import (
	"fmt"
	"strings"
	"time"
)

// IndiaLocation is the IST timezone used for all market clocks.
var IndiaLocation *time.Location

func init() {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", 5*3600+1800)
	}
	IndiaLocation = loc
}

// ParseExpiry parses an expiry string in DD-MMM-YYYY form, e.g.
// "29-JAN-2026". Month case is ignored.
func ParseExpiry(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("expected DD-MMM-YYYY, got %q", s)
	}

	month := strings.ToUpper(parts[1])
	if len(month) != 3 {
		return time.Time{}, fmt.Errorf("expected three-letter month, got %q", parts[1])
	}
	normalized := fmt.Sprintf("%s-%s-%s", parts[0], month[:1]+strings.ToLower(month[1:]), parts[2])

	t, err := time.ParseInLocation("02-Jan-2006", normalized, IndiaLocation)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing expiry %q: %w", s, err)
	}
	return t, nil
}

// FormatExpiry renders a date in the DD-MMM-YYYY form used for expiries.
func FormatExpiry(t time.Time) string {
	return strings.ToUpper(t.Format("02-Jan-2006"))
}

// IsToday reports whether the given date falls on today's IST calendar day.
func IsToday(t time.Time, now time.Time) bool {
	y1, m1, d1 := t.In(IndiaLocation).Date()
	y2, m2, d2 := now.In(IndiaLocation).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// RoundToStep rounds a price to the nearest multiple of step.
func RoundToStep(price, step float64) float64 {
	if step <= 0 {
		return price
	}
	n := int(price/step + 0.5)
	return float64(n) * step
}
