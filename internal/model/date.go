package model

import (
	"fmt"
	"time"
)

// DateLayout is the canonical calendar-date form stored everywhere.
const DateLayout = "2006-01-02"

// dateInputLayouts are the locale forms accepted from UIs, tried in order.
// Day-first forms come first because that is what the dashboards send.
var dateInputLayouts = []string{
	DateLayout,
	"02.01.2006",
	"02/01/2006",
	"2006/01/02",
}

// NormalizeDate converts a locale date string to the canonical ISO form.
// Parsing is done in UTC and only the calendar fields are kept, so the
// same day comes back out in every timezone.
func NormalizeDate(input string) (string, error) {
	if input == "" {
		return "", nil
	}
	for _, layout := range dateInputLayouts {
		t, err := time.ParseInLocation(layout, input, time.UTC)
		if err != nil {
			continue
		}
		return t.Format(DateLayout), nil
	}
	return "", fmt.Errorf("unrecognized date format: %q", input)
}

// SameCalendarDay reports whether two canonical date strings name the
// same day. Both sides are compared as calendar fields, never as instants.
func SameCalendarDay(a, b string) bool {
	ta, errA := time.ParseInLocation(DateLayout, a, time.UTC)
	tb, errB := time.ParseInLocation(DateLayout, b, time.UTC)
	if errA != nil || errB != nil {
		return a == b
	}
	ya, ma, da := ta.Date()
	yb, mb, db := tb.Date()
	return ya == yb && ma == mb && da == db
}
