package payroll

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// DATES AND CLOCKS
// =============================================================================

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2025-02-28 ")
	require.NoError(t, err)
	assert.Equal(t, "2025-02-28", d.String())
	assert.Equal(t, time.Friday, d.Weekday())
	assert.Equal(t, "2025-03-01", d.AddDays(1).String())

	for _, bad := range []string{"", "28/02/2025", "2025-02-30", "2025-2-1"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
}

func TestDate_Comparisons(t *testing.T) {
	a := MustParseDate("2025-06-01")
	b := MustParseDate("2025-06-08")

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.True(t, a.BeforeOrEqual(a))
	assert.True(t, a.AfterOrEqual(a))
	assert.Equal(t, 7, DaysBetween(a, b))
	assert.Equal(t, -7, DaysBetween(b, a))
}

func TestDaysBetween_AcrossDST(t *testing.T) {
	// Civil dates: daylight saving changes in Australia do not shorten a day
	assert.Equal(t, 1, DaysBetween(MustParseDate("2025-04-05"), MustParseDate("2025-04-06")))
	assert.Equal(t, 1, DaysBetween(MustParseDate("2025-10-04"), MustParseDate("2025-10-05")))
}

func TestMonthBounds(t *testing.T) {
	assert.Equal(t, "2024-02-01", StartOfMonth(MustParseDate("2024-02-17")).String())
	assert.Equal(t, "2024-02-29", EndOfMonth(MustParseDate("2024-02-17")).String())
	assert.Equal(t, "2025-12-31", EndOfMonth(MustParseDate("2025-12-01")).String())
	assert.Equal(t, "2025-03-31", MustParseDate("2025-01-31").AddMonths(2).String())
}

func TestDate_TextRoundTrip(t *testing.T) {
	type rec struct {
		Day Date  `json:"day"`
		At  Clock `json:"at"`
	}
	raw, err := json.Marshal(rec{Day: MustParseDate("2025-06-02"), At: NewClock(7, 5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"day": "2025-06-02", "at": "07:05"}`, string(raw))

	var back rec
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, MustParseDate("2025-06-02"), back.Day)
	assert.Equal(t, NewClock(7, 5), back.At)

	assert.Error(t, json.Unmarshal([]byte(`{"day": "tomorrow"}`), &back))
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want Clock
	}{
		{"00:00", 0},
		{"9:30", NewClock(9, 30)},
		{"23:59", NewClock(23, 59)},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"24:00", "12:60", "noon", "12", "-1:00"} {
		_, err := ParseClock(bad)
		assert.ErrorIs(t, err, ErrInvalidClock, bad)
	}
}

func TestDate_At(t *testing.T) {
	at := MustParseDate("2025-06-02").At(MustParseClock("18:45"))
	assert.Equal(t, 18, at.Hour())
	assert.Equal(t, 45, at.Minute())
}

func TestParseWeekday(t *testing.T) {
	for in, want := range map[string]time.Weekday{
		"Monday":    time.Monday,
		"thursday":  time.Thursday,
		"SAT":       time.Saturday,
		" sunday ":  time.Sunday,
		"wednesday": time.Wednesday,
	} {
		got, err := ParseWeekday(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "mo", "Someday"} {
		_, err := ParseWeekday(bad)
		assert.ErrorIs(t, err, ErrInvalidWeekday, bad)
	}
}

// =============================================================================
// MONEY
// =============================================================================

func TestRoundingHelpers(t *testing.T) {
	tests := []struct {
		in                  string
		round2, cents, unit string
	}{
		{"142.985", "142.99", "142.98", "142"},
		{"0.005", "0.01", "0", "0"},
		{"-0.0016", "0", "-0.01", "-1"},
		{"1000.999", "1001", "1000.99", "1000"},
	}
	for _, tt := range tests {
		d := decimal.RequireFromString(tt.in)
		assert.True(t, decimal.RequireFromString(tt.round2).Equal(Round2(d)), "Round2(%s) = %s", tt.in, Round2(d))
		assert.True(t, decimal.RequireFromString(tt.cents).Equal(FloorCents(d)), "FloorCents(%s) = %s", tt.in, FloorCents(d))
		assert.True(t, decimal.RequireFromString(tt.unit).Equal(FloorUnits(d)), "FloorUnits(%s) = %s", tt.in, FloorUnits(d))
	}
}

func TestHoursConversions(t *testing.T) {
	from := time.Date(2025, 6, 2, 22, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 3, 6, 30, 0, 0, time.UTC)

	assert.True(t, decimal.RequireFromString("8.5").Equal(HoursBetween(from, to)))
	assert.True(t, decimal.RequireFromString("0.5").Equal(MinutesToHours(30)))
}

// =============================================================================
// RECORDS
// =============================================================================

func TestCategoryHours(t *testing.T) {
	h := NewCategoryHours()
	assert.Len(t, h, len(Categories))
	assert.True(t, h.Total().IsZero())

	h[CategoryOrdinary] = decimal.RequireFromString("3.5")
	h[CategoryEvening] = decimal.RequireFromString("1.25")
	assert.True(t, decimal.RequireFromString("4.75").Equal(h.Total()))
}

func TestCadence_NominalDays(t *testing.T) {
	assert.Equal(t, 7, CadenceWeekly.NominalDays())
	assert.Equal(t, 14, CadenceFortnightly.NominalDays())
	assert.Equal(t, 0, CadenceMonthly.NominalDays())
	assert.Equal(t, 0, Cadence("quarterly").NominalDays())
}

func TestPayPeriod_ContainsAndDays(t *testing.T) {
	p := PayPeriod{StartDate: MustParseDate("2025-06-02"), EndDate: MustParseDate("2025-06-08")}

	assert.Equal(t, 7, p.Days())
	assert.True(t, p.Contains(MustParseDate("2025-06-02")))
	assert.True(t, p.Contains(MustParseDate("2025-06-08")))
	assert.False(t, p.Contains(MustParseDate("2025-06-09")))
	assert.Equal(t, "[2025-06-02, 2025-06-08]", p.String())
}

// =============================================================================
// ERRORS AND DIAGNOSTICS
// =============================================================================

func TestMissingEmployerError(t *testing.T) {
	err := fmt.Errorf("pricing: %w", &MissingEmployerError{
		ShiftID:    "s1",
		Date:       MustParseDate("2025-06-02"),
		EmployerID: "ghost",
	})

	assert.ErrorIs(t, err, ErrEmployerNotFound)
	var missing *MissingEmployerError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "s1", missing.ShiftID)
	assert.Contains(t, err.Error(), `"ghost"`)
}

func TestLogSkips(t *testing.T) {
	// GIVEN
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	var got []Skip

	// WHEN
	fn := LogSkips(logger, func(s Skip) { got = append(got, s) })
	fn.Report(Skip{Reason: SkipMissingRate, Subject: "sunday", Ref: "s1"})

	// THEN
	require.Len(t, got, 1)
	assert.Equal(t, SkipMissingRate, got[0].Reason)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "reason=missing_rate")
	assert.Contains(t, buf.String(), "subject=sunday")
}

func TestSkipFunc_NilIsSafe(t *testing.T) {
	var fn SkipFunc
	assert.NotPanics(t, func() { fn.Report(Skip{Reason: SkipUnknownAllowance}) })
	assert.NotPanics(t, func() { LogSkips(nil, nil).Report(Skip{}) })
}
