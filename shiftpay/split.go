package shiftpay

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/casual-pay/payroll"
)

// EveningStart is when Monday-Friday hours move to the evening rate.
var EveningStart = payroll.NewClock(18, 0)

// ShiftInterval returns the start and end instants of a shift. An end
// earlier than the start is taken to be on the next day; shifts longer
// than 24 hours cannot be expressed.
func ShiftInterval(date payroll.Date, start, end payroll.Clock) (time.Time, time.Time) {
	from := date.At(start)
	to := date.At(end)
	if to.Before(from) {
		to = to.AddDate(0, 0, 1)
	}
	return from, to
}

// ShiftHours is the unadjusted length of a shift in fractional hours.
func ShiftHours(date payroll.Date, start, end payroll.Clock) decimal.Decimal {
	from, to := ShiftInterval(date, start, end)
	return payroll.HoursBetween(from, to)
}

// SplitCategories distributes a shift's raw hours over the wage categories.
// All categories are present in the result; unused ones are zero.
//
// A public holiday takes the whole shift. Otherwise the day of week of
// date decides: Saturday and Sunday take the whole shift, and weekday
// shifts split at 18:00 on date into ordinary and evening hours.
func SplitCategories(date payroll.Date, start, end payroll.Clock, isHoliday bool) payroll.CategoryHours {
	hours := payroll.NewCategoryHours()
	from, to := ShiftInterval(date, start, end)

	if isHoliday {
		hours[payroll.CategoryPublicHoliday] = payroll.HoursBetween(from, to)
		return hours
	}

	switch date.Weekday() {
	case time.Saturday:
		hours[payroll.CategorySaturday] = payroll.HoursBetween(from, to)
	case time.Sunday:
		hours[payroll.CategorySunday] = payroll.HoursBetween(from, to)
	default:
		evening := date.At(EveningStart)
		switch {
		case !from.Before(evening):
			hours[payroll.CategoryEvening] = payroll.HoursBetween(from, to)
		case !to.After(evening):
			hours[payroll.CategoryOrdinary] = payroll.HoursBetween(from, to)
		default:
			hours[payroll.CategoryOrdinary] = payroll.HoursBetween(from, evening)
			hours[payroll.CategoryEvening] = payroll.HoursBetween(evening, to)
		}
	}
	return hours
}
