package award_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/casual-pay/award"
	"github.com/warp/casual-pay/payroll"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// =============================================================================
// HOLIDAY RESOLVER
// =============================================================================

func testCalendar() award.Calendar {
	return award.Calendar{
		2025: {
			National: []award.Holiday{
				{Date: payroll.MustParseDate("2025-12-25"), Name: "Christmas Day"},
			},
			ByState: map[string][]award.Holiday{
				"VIC": {
					{Date: payroll.MustParseDate("2025-11-04"), Name: "Melbourne Cup", Regional: true},
					{Date: payroll.MustParseDate("2025-03-10"), Name: "Labour Day"},
				},
				"NSW": {
					{Date: payroll.MustParseDate("2025-10-06"), Name: "Labour Day"},
				},
			},
		},
	}
}

func TestCalendar_NationalHoliday_MatchesAnyState(t *testing.T) {
	cal := testCalendar()
	xmas := payroll.MustParseDate("2025-12-25")

	assert.True(t, cal.IsPublicHoliday(xmas, "VIC"))
	assert.True(t, cal.IsPublicHoliday(xmas, "QLD"))

	h, ok := cal.HolidayOn(xmas, "NSW")
	require.True(t, ok)
	assert.Equal(t, "Christmas Day", h.Name)
}

func TestCalendar_StateHoliday_OnlyInThatState(t *testing.T) {
	cal := testCalendar()
	labourDay := payroll.MustParseDate("2025-03-10")

	assert.True(t, cal.IsPublicHoliday(labourDay, "VIC"))
	assert.False(t, cal.IsPublicHoliday(labourDay, "NSW"))
}

func TestCalendar_RegionalHoliday_Excluded(t *testing.T) {
	// GIVEN: Melbourne Cup is flagged regional in VIC
	// THEN: it does not count as a public holiday by default
	cal := testCalendar()
	assert.False(t, cal.IsPublicHoliday(payroll.MustParseDate("2025-11-04"), "VIC"))
}

func TestCalendar_UnknownYear_NoHoliday(t *testing.T) {
	cal := testCalendar()
	assert.False(t, cal.IsPublicHoliday(payroll.MustParseDate("2030-12-25"), "VIC"))
}

// =============================================================================
// BREAK SCHEDULE
// =============================================================================

func testBreaks() award.BreakSchedule {
	return award.BreakSchedule{
		MealBreakMinutes: 30,
		Rules: []award.BreakRule{
			{Low: dec("0"), High: decPtr("5"), MealBreaks: 0},
			{Low: dec("5.01"), High: decPtr("10"), MealBreaks: 1},
			{Low: dec("10.01"), MealBreaks: 2},
		},
	}
}

func TestBreakMinutes(t *testing.T) {
	s := testBreaks()

	tests := []struct {
		hours string
		want  int
	}{
		{"0", 0},
		{"4", 0},
		{"5", 0},
		{"5.5", 30},
		{"8", 30},
		{"10", 30},
		{"10.5", 60},
		{"14", 60},
	}
	for _, tc := range tests {
		t.Run(tc.hours, func(t *testing.T) {
			assert.Equal(t, tc.want, s.BreakMinutes(dec(tc.hours)))
		})
	}
}

func TestBreakMinutes_GapBetweenRules_NoBreak(t *testing.T) {
	// 5.005 hours falls between the 0-5 and 5.01-10 ranges
	assert.Equal(t, 0, testBreaks().BreakMinutes(dec("5.005")))
}

// =============================================================================
// ALLOWANCES
// =============================================================================

func TestNewAllowance_Kinds(t *testing.T) {
	hours := dec("7.6")

	hourly, err := award.NewAllowance("Laundry", award.KindHourly, []decimal.Decimal{dec("0.32")})
	require.NoError(t, err)
	assert.True(t, hourly.Amount(hours).Equal(dec("2.432")))

	perShift, err := award.NewAllowance("First aid", award.KindPerShift, []decimal.Decimal{dec("3.50")})
	require.NoError(t, err)
	assert.True(t, perShift.Amount(hours).Equal(dec("3.50")))

	weekly, err := award.NewAllowance("Tool", award.KindWeekly, []decimal.Decimal{dec("19")})
	require.NoError(t, err)
	assert.True(t, weekly.Amount(hours).Equal(dec("3.8")), "19/38 × 7.6")

	meal, err := award.NewAllowance("Meal", award.KindMeal, []decimal.Decimal{dec("16.62"), dec("15.04")})
	require.NoError(t, err)
	assert.True(t, meal.Amount(hours).Equal(dec("16.62")), "only the first tier is paid")
	assert.Equal(t, award.KindMeal, meal.Kind())
}

func TestNewAllowance_UnknownKind(t *testing.T) {
	_, err := award.NewAllowance("Mystery", award.Kind("daily"), []decimal.Decimal{dec("1")})
	assert.ErrorIs(t, err, award.ErrUnsupportedAllowance)
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfig_Categories_Order(t *testing.T) {
	cfg := &award.Config{CategoryNames: map[payroll.Category]string{
		payroll.CategorySunday:   "Sunday",
		payroll.CategoryOrdinary: "Ordinary hours",
		"night":                  "Night shift",
	}}

	assert.Equal(t, []payroll.Category{payroll.CategoryOrdinary, payroll.CategorySunday, "night"}, cfg.Categories())
	assert.Equal(t, "Ordinary hours", cfg.Describe(payroll.CategoryOrdinary))
	assert.Equal(t, "saturday", cfg.Describe(payroll.CategorySaturday))
}

func TestConfig_Categories_DefaultsToAll(t *testing.T) {
	cfg := &award.Config{}
	assert.Equal(t, payroll.Categories, cfg.Categories())
}

func TestRateTable_Lookup(t *testing.T) {
	rates := award.RateTable{"level_1": {payroll.CategoryOrdinary: dec("30.50")}}

	r, ok := rates.Rate("level_1", payroll.CategoryOrdinary)
	assert.True(t, ok)
	assert.True(t, r.Equal(dec("30.50")))

	_, ok = rates.Rate("level_1", payroll.CategorySunday)
	assert.False(t, ok)
	_, ok = rates.Rate("level_9", payroll.CategoryOrdinary)
	assert.False(t, ok)
}
