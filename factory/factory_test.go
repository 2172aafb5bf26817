package factory_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/casual-pay/award"
	"github.com/warp/casual-pay/factory"
	"github.com/warp/casual-pay/payroll"
)

const configJSON = `{
  "casual": {
    "level_1": {"rates": {"ordinary": 30.50, "evening_mon_fri": 36.60, "saturday": 38.13, "sunday": 45.75, "public_holiday": 68.63}}
  },
  "timeCategories": {
    "ordinary": "Ordinary hours",
    "evening_mon_fri": "Evening (Mon-Fri after 6pm)",
    "saturday": "Saturday",
    "sunday": "Sunday",
    "public_holiday": "Public holiday"
  },
  "allowances": {"items": [
    {"name": "Laundry", "type": "hourly", "rate": 0.32},
    {"name": "First aid", "type": "per-shift", "rate": 3.50},
    {"name": "Meal", "type": "meal", "rate": [16.62, 15.04]},
    {"name": "Vehicle", "type": "per-km", "rate": 0.99}
  ]},
  "breaks": {
    "mealBreak": {"minDuration": 30},
    "breakSchedule": [
      {"hoursRange": [0, 5], "mealBreaks": 0},
      {"hoursRange": [5.01, 10], "mealBreaks": 1},
      {"hoursRange": [10.01, null], "mealBreaks": 2}
    ]
  },
  "publicHolidays": {
    "2025": {
      "national": [{"date": "2025-12-25", "name": "Christmas Day"}],
      "VIC": [
        {"date": "2025-11-04", "name": "Melbourne Cup", "regional": true},
        {"date": "2025-09-26", "name": "AFL Grand Final Friday", "regional": "metro only"}
      ]
    }
  }
}`

func TestParseConfig(t *testing.T) {
	// WHEN
	cfg, skips, err := factory.ParseConfig([]byte(configJSON))
	require.NoError(t, err)

	// THEN: rates and names are loaded
	rate, ok := cfg.Rates.Rate("level_1", payroll.CategorySaturday)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("38.13").Equal(rate))
	assert.Equal(t, "Ordinary hours", cfg.Describe(payroll.CategoryOrdinary))
	assert.Equal(t, payroll.Categories, cfg.Categories())

	// AND: allowances resolve to their kinds
	meal, ok := cfg.Allowance("Meal")
	require.True(t, ok)
	assert.Equal(t, award.KindMeal, meal.Kind())
	assert.True(t, decimal.RequireFromString("16.62").Equal(meal.Amount(decimal.Zero)))

	// AND: the unknown allowance type is skipped, not fatal
	_, ok = cfg.Allowance("Vehicle")
	assert.False(t, ok)
	require.Len(t, skips, 1)
	assert.Equal(t, payroll.SkipUnsupportedAllowance, skips[0].Reason)
	assert.Equal(t, "Vehicle", skips[0].Subject)

	// AND: break schedule keeps the open-ended rule
	require.Len(t, cfg.Breaks.Rules, 3)
	assert.Nil(t, cfg.Breaks.Rules[2].High)
	assert.Equal(t, 60, cfg.Breaks.BreakMinutes(decimal.NewFromInt(12)))
}

func TestParseConfig_RegionalOnlyWhenBoolean(t *testing.T) {
	cfg, _, err := factory.ParseConfig([]byte(configJSON))
	require.NoError(t, err)

	assert.True(t, cfg.Holidays.IsPublicHoliday(payroll.MustParseDate("2025-12-25"), "NSW"))
	assert.False(t, cfg.Holidays.IsPublicHoliday(payroll.MustParseDate("2025-11-04"), "VIC"))
	assert.True(t, cfg.Holidays.IsPublicHoliday(payroll.MustParseDate("2025-09-26"), "VIC"),
		"a string in regional does not mark the holiday regional")
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"casual": `},
		{"no levels", `{"casual": {}}`},
		{"bad break range", `{"casual": {"l1": {"rates": {}}}, "breaks": {"breakSchedule": [{"hoursRange": [5], "mealBreaks": 1}]}}`},
		{"bad holiday date", `{"casual": {"l1": {"rates": {}}}, "publicHolidays": {"2025": {"national": [{"date": "25/12/2025", "name": "x"}]}}}`},
		{"bad holiday year", `{"casual": {"l1": {"rates": {}}}, "publicHolidays": {"next": {}}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := factory.ParseConfig([]byte(tc.doc))
			assert.ErrorIs(t, err, factory.ErrInvalidConfig)
		})
	}
}

func TestParseUser(t *testing.T) {
	doc := `{"employers": [
	  {"id": "0", "name": "Corner Cafe", "level": "level_1", "state": "VIC", "taxFreeThreshold": true,
	   "paycycle": "weekly", "payday": "Thursday", "payPeriodStart": "Mon", "payPeriodDays": 7,
	   "applicableAllowances": [{"name": "Laundry", "enabled": true, "notes": "uniform"}]},
	  {"id": "1", "name": "Night Bar", "level": "level_2", "state": "NSW", "taxFreeThreshold": false,
	   "paycycle": "fortnightly", "payday": "Wednesday", "payPeriodStart": "Wednesday",
	   "hasTFN": false, "foreignResident": true, "taxOffset": 250}
	]}`

	employers, err := factory.ParseUser([]byte(doc))
	require.NoError(t, err)
	require.Len(t, employers, 2)

	cafe := employers[0]
	assert.Equal(t, payroll.EmployerID("0"), cafe.ID)
	assert.Equal(t, time.Monday, cafe.PayPeriodStart)
	assert.Equal(t, time.Thursday, cafe.Payday)
	assert.True(t, cafe.HasTFN, "hasTFN defaults to true")
	require.Len(t, cafe.Allowances, 1)
	assert.Equal(t, "uniform", cafe.Allowances[0].Notes)

	bar := employers[1]
	assert.Equal(t, payroll.CadenceFortnightly, bar.PayCycle)
	assert.False(t, bar.HasTFN)
	assert.True(t, bar.ForeignResident)
	assert.True(t, decimal.NewFromInt(250).Equal(bar.TaxOffset))
}

func TestParseUser_Invalid(t *testing.T) {
	_, err := factory.ParseUser([]byte(`{"employers": [{"id": "0", "level": "l1", "paycycle": "weekly", "payday": "Caturday"}]}`))
	assert.ErrorIs(t, err, factory.ErrInvalidConfig)

	_, err = factory.ParseUser([]byte(`{"employers": [{"name": "no id"}]}`))
	assert.ErrorIs(t, err, factory.ErrInvalidConfig)
}

func TestEmployerJSON_RoundTripKeepsTFN(t *testing.T) {
	e := payroll.EmployerProfile{
		ID: "bar", Name: "Night Bar", Level: "level_2", PayCycle: payroll.CadenceWeekly,
		PayPeriodStart: time.Wednesday, Payday: time.Friday, HasTFN: false,
	}

	back, err := factory.FromEmployerJSON(factory.ToEmployerJSON(e))
	require.NoError(t, err)

	assert.False(t, back.HasTFN)
	assert.Equal(t, time.Wednesday, back.PayPeriodStart)
	assert.Equal(t, time.Friday, back.Payday)
}

func TestParseShifts_AssignsStableIDs(t *testing.T) {
	doc := []byte(`{"shifts": [
	  {"date": "2025-06-02", "employerId": "0", "employer": "Corner Cafe", "start": "09:00", "end": "17:00"},
	  {"id": "keep-me", "date": "2025-06-03", "employerId": "0", "start": "22:00", "end": "06:00"}
	]}`)

	first, err := factory.ParseShifts(doc)
	require.NoError(t, err)
	again, err := factory.ParseShifts(doc)
	require.NoError(t, err)

	require.Len(t, first, 2)
	assert.NotEmpty(t, first[0].ID)
	assert.Equal(t, first[0].ID, again[0].ID)
	assert.Equal(t, "keep-me", first[1].ID)
	assert.Equal(t, payroll.MustParseClock("06:00"), first[1].End)
}

func TestParseShifts_BadClock(t *testing.T) {
	_, err := factory.ParseShifts([]byte(`{"shifts": [{"date": "2025-06-02", "employerId": "0", "start": "9am", "end": "17:00"}]}`))
	assert.ErrorIs(t, err, payroll.ErrInvalidClock)
}

func TestPricedShiftJSON_FieldNames(t *testing.T) {
	p := payroll.PricedShift{
		Shift:         payroll.Shift{ID: "s1", EmployerID: "0", Date: payroll.MustParseDate("2025-06-02"), Start: payroll.MustParseClock("09:00"), End: payroll.MustParseClock("17:00")},
		HoursWorked:   decimal.RequireFromString("7.5"),
		GrossPay:      decimal.RequireFromString("228.75"),
		TotalGrossPay: decimal.RequireFromString("228.75"),
		PayCategories: []payroll.CategoryPay{{Category: payroll.CategoryOrdinary, Hours: decimal.RequireFromString("7.5"), Rate: decimal.RequireFromString("30.5")}},
	}

	raw, err := json.Marshal(factory.ToPricedShiftJSON(p))
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Equal(t, "2025-06-02", generic["date"])
	assert.Equal(t, "0", generic["employerId"])
	assert.Equal(t, 7.5, generic["hoursWorked"])
	assert.Equal(t, 228.75, generic["grossPay"])
	assert.Contains(t, generic, "unpaidBreakMinutes")
}

func TestParsePayPeriods(t *testing.T) {
	doc := []byte(`{"payPeriods": [{"employerId": "0", "periods": [
	  {"startDate": "2025-06-02", "endDate": "2025-06-08", "payDate": "2025-06-12", "shifts": ["2025-06-02"],
	   "payCategories": [{"category": "ordinary", "hours": 7.5}], "totalHours": 7.5, "grossPay": 228.75,
	   "tax": 0, "allowances": [], "allowanceTotal": 0, "totalGrossPay": 228.75, "netPay": 228.75}
	]}]}`)

	byEmployer, err := factory.ParsePayPeriods(doc)
	require.NoError(t, err)

	periods := byEmployer["0"]
	require.Len(t, periods, 1)
	assert.Equal(t, payroll.MustParseDate("2025-06-12"), periods[0].PayDate)
	assert.Equal(t, payroll.EmployerID("0"), periods[0].EmployerID)
	assert.Equal(t, 7, periods[0].Days())
}
