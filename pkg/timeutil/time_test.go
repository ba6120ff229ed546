package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ist = time.FixedZone("IST", 5*60*60+30*60)

func TestNow_AlwaysUTC(t *testing.T) {
	assert.Equal(t, time.UTC, Now().Location())
}

func TestStartOfDay(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected time.Time
	}{
		{"midnight utc", time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"late utc", time.Date(2025, 3, 14, 23, 59, 59, 0, time.UTC), time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"early ist is previous utc day", time.Date(2025, 3, 14, 2, 0, 0, 0, ist), time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StartOfDay(tt.input)
			assert.True(t, got.Equal(tt.expected), "StartOfDay() = %v, want %v", got, tt.expected)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestCalendarDate_KeepsLocalDay(t *testing.T) {
	got := CalendarDate(time.Date(2025, 3, 14, 0, 30, 0, 0, ist))
	assert.True(t, got.Equal(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)), "CalendarDate() = %v", got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestParseSettlementDate(t *testing.T) {
	expected := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "iso date", input: "2025-03-14"},
		{name: "day first", input: "14-03-2025"},
		{name: "rfc3339", input: "2025-03-14T18:45:00Z"},
		{name: "rfc3339 with offset", input: "2025-03-14T20:00:00+05:30"},
		{name: "ist just after midnight", input: "2025-03-14T00:30:00+05:30"},
		{name: "negative offset late evening", input: "2025-03-14T23:30:00-05:00"},
		{name: "garbage", input: "yesterday", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "invalid month", input: "2025-13-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSettlementDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(expected), "ParseSettlementDate(%q) = %v", tt.input, got)
		})
	}
}
