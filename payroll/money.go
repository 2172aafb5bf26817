package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rounding and truncation are separate helpers. Display fields
// are rounded; the withholding formula truncates at two points and must not
// be routed through Round2.

var (
	secondsPerHour = decimal.NewFromInt(3600)
	minutesPerHour = decimal.NewFromInt(60)
)

// Round2 rounds half away from zero to the cent.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FloorCents drops fractional cents (toward negative infinity).
func FloorCents(d decimal.Decimal) decimal.Decimal {
	return d.Shift(2).Floor().Shift(-2)
}

// FloorUnits drops everything after the whole currency unit.
func FloorUnits(d decimal.Decimal) decimal.Decimal {
	return d.Floor()
}

// HoursBetween is (to - from) in fractional hours at second resolution.
func HoursBetween(from, to time.Time) decimal.Decimal {
	seconds := int64(to.Sub(from) / time.Second)
	return decimal.NewFromInt(seconds).Div(secondsPerHour)
}

// MinutesToHours converts a whole-minute count to fractional hours.
func MinutesToHours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(minutesPerHour)
}
