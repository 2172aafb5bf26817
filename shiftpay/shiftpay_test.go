package shiftpay_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/casual-pay/award"
	"github.com/warp/casual-pay/payroll"
	"github.com/warp/casual-pay/shiftpay"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msg ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msg...)...)
}

// Known weekdays in 2025.
var (
	monday    = payroll.MustParseDate("2025-06-02")
	friday    = payroll.MustParseDate("2025-06-06")
	saturday  = payroll.MustParseDate("2025-06-07")
	sunday    = payroll.MustParseDate("2025-06-08")
	christmas = payroll.MustParseDate("2025-12-25") // Thursday
)

func clock(s string) payroll.Clock { return payroll.MustParseClock(s) }

func testConfig(t *testing.T) *award.Config {
	t.Helper()
	laundry, err := award.NewAllowance("Laundry", award.KindHourly, []decimal.Decimal{dec("0.32")})
	require.NoError(t, err)
	firstAid, err := award.NewAllowance("First aid", award.KindPerShift, []decimal.Decimal{dec("3.50")})
	require.NoError(t, err)

	return &award.Config{
		Rates: award.RateTable{
			"level_1": {
				payroll.CategoryOrdinary:      dec("30"),
				payroll.CategoryEvening:       dec("36"),
				payroll.CategorySaturday:      dec("37.5"),
				payroll.CategorySunday:        dec("45"),
				payroll.CategoryPublicHoliday: dec("67.5"),
			},
			"level_2": {
				payroll.CategoryOrdinary: dec("32"),
			},
		},
		CategoryNames: map[payroll.Category]string{
			payroll.CategoryOrdinary: "Ordinary hours",
			payroll.CategoryEvening:  "Evening (Mon-Fri after 6pm)",
		},
		Allowances: map[string]award.Allowance{
			"Laundry":   laundry,
			"First aid": firstAid,
		},
		Breaks: award.BreakSchedule{
			MealBreakMinutes: 30,
			Rules: []award.BreakRule{
				{Low: dec("0"), High: decPtr("5"), MealBreaks: 0},
				{Low: dec("5.01"), High: decPtr("10"), MealBreaks: 1},
				{Low: dec("10.01"), MealBreaks: 2},
			},
		},
		Holidays: award.Calendar{
			2025: {National: []award.Holiday{{Date: christmas, Name: "Christmas Day"}}},
		},
	}
}

func cafe() payroll.EmployerProfile {
	return payroll.EmployerProfile{
		ID:       "cafe",
		Name:     "Corner Cafe",
		Level:    "level_1",
		State:    "VIC",
		PayCycle: payroll.CadenceWeekly,
		HasTFN:   true,
	}
}

func shift(date payroll.Date, start, end string) payroll.Shift {
	return payroll.Shift{ID: "s-" + date.String() + "-" + start, EmployerID: "cafe", Date: date, Start: clock(start), End: clock(end)}
}

// =============================================================================
// CATEGORY SPLITTER
// =============================================================================

func TestSplitCategories(t *testing.T) {
	tests := []struct {
		name    string
		date    payroll.Date
		start   string
		end     string
		holiday bool
		want    map[payroll.Category]string
	}{
		{"weekday daytime", monday, "09:00", "17:00", false, map[payroll.Category]string{payroll.CategoryOrdinary: "8"}},
		{"ends exactly at 18:00", monday, "10:00", "18:00", false, map[payroll.Category]string{payroll.CategoryOrdinary: "8"}},
		{"starts exactly at 18:00", monday, "18:00", "21:00", false, map[payroll.Category]string{payroll.CategoryEvening: "3"}},
		{"straddles 18:00", monday, "17:00", "19:00", false, map[payroll.Category]string{payroll.CategoryOrdinary: "1", payroll.CategoryEvening: "1"}},
		{"overnight from evening", friday, "20:00", "02:00", false, map[payroll.Category]string{payroll.CategoryEvening: "6"}},
		{"saturday", saturday, "10:00", "14:30", false, map[payroll.Category]string{payroll.CategorySaturday: "4.5"}},
		{"sunday overnight stays sunday", sunday, "22:00", "02:00", false, map[payroll.Category]string{payroll.CategorySunday: "4"}},
		{"holiday takes whole shift", christmas, "15:00", "20:00", true, map[payroll.Category]string{payroll.CategoryPublicHoliday: "5"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := shiftpay.SplitCategories(tc.date, clock(tc.start), clock(tc.end), tc.holiday)

			require.Len(t, got, len(payroll.Categories), "every category is present")
			for _, cat := range payroll.Categories {
				want := "0"
				if w, ok := tc.want[cat]; ok {
					want = w
				}
				assertDec(t, want, got[cat], cat)
			}
		})
	}
}

func TestShiftHours_Overnight(t *testing.T) {
	assertDec(t, "8", shiftpay.ShiftHours(monday, clock("22:00"), clock("06:00")))
}

func TestAdjustmentFactor(t *testing.T) {
	assertDec(t, "0.9375", shiftpay.AdjustmentFactor(dec("8"), 30))
	assertDec(t, "1", shiftpay.AdjustmentFactor(dec("4"), 0))
	assertDec(t, "0", shiftpay.AdjustmentFactor(dec("0"), 30), "zero hours")
	assertDec(t, "0", shiftpay.AdjustmentFactor(dec("0.25"), 30), "never negative")
}

// =============================================================================
// SHIFT PAY CALCULATOR
// =============================================================================

func TestPrice_WeekdayWithBreak(t *testing.T) {
	// GIVEN: an 8 hour Monday day shift, which carries one 30 minute break
	calc := shiftpay.NewCalculator(testConfig(t), []payroll.EmployerProfile{cafe()})

	// WHEN
	p, err := calc.Price(shift(monday, "09:00", "17:00"))
	require.NoError(t, err)

	// THEN: 7.5 paid hours at the ordinary rate
	assert.Equal(t, 30, p.UnpaidBreakMinutes)
	assertDec(t, "7.5", p.HoursWorked)
	assertDec(t, "225", p.GrossPay)
	assertDec(t, "30", p.PayRate)
	assertDec(t, "225", p.TotalGrossPay)
	assert.False(t, p.IsPublicHoliday)
	assert.Equal(t, "Corner Cafe", p.Employer)

	require.Len(t, p.PayCategories, 1)
	assert.Equal(t, payroll.CategoryOrdinary, p.PayCategories[0].Category)
	assert.Equal(t, "Ordinary hours", p.PayCategories[0].Description)
}

func TestPrice_BreakIsProportional(t *testing.T) {
	// GIVEN: 14:00-22:00 on a Monday is 4h ordinary and 4h evening
	calc := shiftpay.NewCalculator(testConfig(t), []payroll.EmployerProfile{cafe()})

	p, err := calc.Price(shift(monday, "14:00", "22:00"))
	require.NoError(t, err)

	// THEN: the 30 minute break comes off both categories equally
	require.Len(t, p.PayCategories, 2)
	assertDec(t, "3.75", p.PayCategories[0].Hours)
	assertDec(t, "3.75", p.PayCategories[1].Hours)
	assertDec(t, "247.5", p.GrossPay, "3.75×30 + 3.75×36")
	assertDec(t, "33", p.PayRate)
}

func TestPrice_OvernightShift(t *testing.T) {
	calc := shiftpay.NewCalculator(testConfig(t), []payroll.EmployerProfile{cafe()})

	p, err := calc.Price(shift(monday, "22:00", "06:00"))
	require.NoError(t, err)

	assertDec(t, "7.5", p.HoursWorked)
	require.Len(t, p.PayCategories, 1)
	assert.Equal(t, payroll.CategoryEvening, p.PayCategories[0].Category)
	assertDec(t, "270", p.GrossPay)
}

func TestPrice_Weekend(t *testing.T) {
	calc := shiftpay.NewCalculator(testConfig(t), []payroll.EmployerProfile{cafe()})

	sat, err := calc.Price(shift(saturday, "10:00", "14:00"))
	require.NoError(t, err)
	assertDec(t, "150", sat.GrossPay)
	assert.Equal(t, 0, sat.UnpaidBreakMinutes)

	sun, err := calc.Price(shift(sunday, "10:00", "14:00"))
	require.NoError(t, err)
	assertDec(t, "180", sun.GrossPay)
	assert.Equal(t, "sunday", sun.PayCategories[0].Description, "falls back to the category key")
}

func TestPrice_PublicHolidayOverridesWeekday(t *testing.T) {
	calc := shiftpay.NewCalculator(testConfig(t), []payroll.EmployerProfile{cafe()})

	p, err := calc.Price(shift(christmas, "15:00", "19:00"))
	require.NoError(t, err)

	assert.True(t, p.IsPublicHoliday)
	assert.Equal(t, "Christmas Day", p.HolidayName)
	require.Len(t, p.PayCategories, 1)
	assert.Equal(t, payroll.CategoryPublicHoliday, p.PayCategories[0].Category)
	assertDec(t, "270", p.GrossPay, "4h × 67.5")
}

func TestPrice_Allowances(t *testing.T) {
	// GIVEN: laundry enabled, first aid disabled, and an enabled allowance
	// that has no definition
	emp := cafe()
	emp.Allowances = []payroll.AllowanceRef{
		{Name: "Laundry", Enabled: true, Notes: "uniform"},
		{Name: "First aid", Enabled: false},
		{Name: "Ghost", Enabled: true},
	}
	var skips []payroll.Skip
	calc := shiftpay.NewCalculator(testConfig(t), []payroll.EmployerProfile{emp})
	calc.OnSkip = func(s payroll.Skip) { skips = append(skips, s) }

	// WHEN
	p, err := calc.Price(shift(monday, "09:00", "17:00"))
	require.NoError(t, err)

	// THEN: laundry is paid on the raw 8 hours, not the 7.5 paid hours
	require.Len(t, p.Allowances, 1)
	assert.Equal(t, "Laundry", p.Allowances[0].Name)
	assert.Equal(t, "hourly", p.Allowances[0].Type)
	assert.Equal(t, "uniform", p.Allowances[0].Notes)
	assertDec(t, "2.56", p.Allowances[0].Amount)
	assertDec(t, "2.56", p.AllowanceTotal)
	assertDec(t, "227.56", p.TotalGrossPay)

	// AND: the missing definition is reported, not fatal
	require.Len(t, skips, 1)
	assert.Equal(t, payroll.SkipUnknownAllowance, skips[0].Reason)
	assert.Equal(t, "Ghost", skips[0].Subject)
}

func TestPrice_MissingRateContributesNothing(t *testing.T) {
	// GIVEN: level_2 only has an ordinary rate
	emp := cafe()
	emp.Level = "level_2"
	var skips []payroll.Skip
	calc := shiftpay.NewCalculator(testConfig(t), []payroll.EmployerProfile{emp})
	calc.OnSkip = func(s payroll.Skip) { skips = append(skips, s) }

	// WHEN: 16:00-20:00 is 2h ordinary and 2h evening
	p, err := calc.Price(shift(monday, "16:00", "20:00"))
	require.NoError(t, err)

	// THEN: only the ordinary hours are paid and counted
	assertDec(t, "2", p.HoursWorked)
	assertDec(t, "64", p.GrossPay)
	require.Len(t, p.PayCategories, 1)

	require.Len(t, skips, 1)
	assert.Equal(t, payroll.SkipMissingRate, skips[0].Reason)
}

func TestPrice_UnknownEmployer(t *testing.T) {
	calc := shiftpay.NewCalculator(testConfig(t), []payroll.EmployerProfile{cafe()})

	s := shift(monday, "09:00", "17:00")
	s.EmployerID = "nowhere"
	_, err := calc.Price(s)

	assert.ErrorIs(t, err, payroll.ErrEmployerNotFound)
	var missing *payroll.MissingEmployerError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, s.ID, missing.ShiftID)
}

func TestPriceAll_ContinuesPastFailures(t *testing.T) {
	calc := shiftpay.NewCalculator(testConfig(t), []payroll.EmployerProfile{cafe()})

	bad := shift(friday, "09:00", "12:00")
	bad.EmployerID = "gone"
	shifts := []payroll.Shift{
		shift(monday, "09:00", "17:00"),
		bad,
		shift(saturday, "10:00", "14:00"),
	}

	priced, failures := calc.PriceAll(shifts)

	require.Len(t, priced, 2)
	assert.True(t, priced[0].Date.Equal(monday))
	assert.True(t, priced[1].Date.Equal(saturday))
	require.Len(t, failures, 1)
	assert.Equal(t, bad.ID, failures[0].Shift.ID)
	assert.ErrorIs(t, failures[0].Err, payroll.ErrEmployerNotFound)
}

func TestPrice_CategoryHoursSumToHoursWorked(t *testing.T) {
	calc := shiftpay.NewCalculator(testConfig(t), []payroll.EmployerProfile{cafe()})

	shifts := []payroll.Shift{
		shift(monday, "12:10", "23:55"),
		shift(monday, "17:20", "01:05"),
		shift(friday, "09:00", "09:20"),
		shift(saturday, "06:00", "18:40"),
		shift(christmas, "08:00", "20:00"),
	}
	for _, s := range shifts {
		p, err := calc.Price(s)
		require.NoError(t, err)

		sum := decimal.Zero
		for _, c := range p.PayCategories {
			sum = sum.Add(c.Hours)
		}
		assert.True(t, sum.Sub(p.HoursWorked).Abs().LessThanOrEqual(dec("0.01")),
			"%s: categories %s vs worked %s", s.ID, sum, p.HoursWorked)
		assert.True(t, p.TotalGrossPay.Equal(p.GrossPay.Add(p.AllowanceTotal)) ||
			p.TotalGrossPay.Sub(p.GrossPay.Add(p.AllowanceTotal)).Abs().LessThanOrEqual(dec("0.01")))
	}
}

func TestPrice_IsDeterministic(t *testing.T) {
	calc := shiftpay.NewCalculator(testConfig(t), []payroll.EmployerProfile{cafe()})
	s := shift(monday, "14:00", "22:00")

	a, err := calc.Price(s)
	require.NoError(t, err)
	b, err := calc.Price(s)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}
