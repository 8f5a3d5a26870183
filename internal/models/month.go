package models

import (
	"fmt"
	"time"
)

// monthLabelLayout is the time layout for month labels.
const monthLabelLayout = "2006-01"

// MonthLabel returns the "YYYY-MM" bucket for the given time.
// Month labels are the primary time-bucketing key for plans and records.
func MonthLabel(t time.Time) string {
	return t.Format(monthLabelLayout)
}

// ParseMonthLabel parses a "YYYY-MM" label into the first instant of that
// month (UTC).
func ParseMonthLabel(label string) (time.Time, error) {
	t, err := time.Parse(monthLabelLayout, label)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month label %q: %w", label, err)
	}
	return t, nil
}

// ValidMonthLabel reports whether label is a well-formed "YYYY-MM" string.
func ValidMonthLabel(label string) bool {
	_, err := ParseMonthLabel(label)
	return err == nil
}

// MonthLabelBefore reports whether label a is strictly earlier than b.
// Zero-padded "YYYY-MM" labels order lexicographically.
func MonthLabelBefore(a, b string) bool {
	return a < b
}
