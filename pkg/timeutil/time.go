package timeutil

import "time"

// Now returns the current time in UTC
// Always use this instead of time.Now() to ensure timezone consistency
func Now() time.Time {
	return time.Now().UTC()
}

// StartOfDay returns midnight UTC of t's UTC calendar day
func StartOfDay(t time.Time) time.Time {
	return CalendarDate(t.UTC())
}

// CalendarDate returns midnight UTC of the calendar day t falls on in its own
// location. 00:30 on the 14th at +05:30 is the 14th, not the 13th.
func CalendarDate(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// settlementDateLayouts are tried in order by ParseSettlementDate
var settlementDateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	time.RFC3339,
}

// ParseSettlementDate parses YYYY-MM-DD, DD-MM-YYYY or RFC3339. Timestamps
// resolve to the calendar day in their own offset.
func ParseSettlementDate(value string) (time.Time, error) {
	var firstErr error
	for _, layout := range settlementDateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return CalendarDate(t), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
