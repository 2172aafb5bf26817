package award

import "github.com/warp/casual-pay/payroll"

// =============================================================================
// PUBLIC HOLIDAY CALENDAR
// =============================================================================

// Holiday is one gazetted public holiday.
type Holiday struct {
	Date     payroll.Date
	Name     string
	Regional bool // applies to part of a state only; ignored by the default check
}

// YearHolidays is one calendar year of holidays.
type YearHolidays struct {
	National []Holiday
	ByState  map[string][]Holiday
}

// Calendar maps a year to its holidays.
type Calendar map[int]YearHolidays

// IsPublicHoliday reports whether date is a public holiday in state.
// A year missing from the calendar has no holidays.
func (c Calendar) IsPublicHoliday(date payroll.Date, state string) bool {
	_, ok := c.HolidayOn(date, state)
	return ok
}

// HolidayOn returns the matching holiday, checking national holidays first.
// State holidays flagged Regional never match.
func (c Calendar) HolidayOn(date payroll.Date, state string) (Holiday, bool) {
	year, ok := c[date.Year()]
	if !ok {
		return Holiday{}, false
	}
	for _, h := range year.National {
		if h.Date.Equal(date) {
			return h, true
		}
	}
	for _, h := range year.ByState[state] {
		if h.Regional {
			continue
		}
		if h.Date.Equal(date) {
			return h, true
		}
	}
	return Holiday{}, false
}
