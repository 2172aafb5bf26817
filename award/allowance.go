package award

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ALLOWANCES - Tagged variants resolved once at load time
// =============================================================================

// Kind is the allowance type as written in configuration.
type Kind string

const (
	KindHourly   Kind = "hourly"
	KindPerShift Kind = "per-shift"
	KindWeekly   Kind = "weekly"
	KindMeal     Kind = "meal"
)

// HoursPerWeek is the full-time week weekly allowances are quoted against.
var HoursPerWeek = decimal.NewFromInt(38)

// Allowance is a configured allowance definition. The set of
// implementations is closed; see NewAllowance.
type Allowance interface {
	Name() string
	Kind() Kind
	// Amount is the unrounded amount for a shift of the given length.
	Amount(shiftHours decimal.Decimal) decimal.Decimal
	allowance()
}

// HourlyAllowance pays Rate for every hour of the shift.
type HourlyAllowance struct {
	Label string
	Rate  decimal.Decimal
}

func (a HourlyAllowance) Name() string { return a.Label }
func (a HourlyAllowance) Kind() Kind   { return KindHourly }
func (a HourlyAllowance) Amount(hours decimal.Decimal) decimal.Decimal {
	return a.Rate.Mul(hours)
}
func (HourlyAllowance) allowance() {}

// PerShiftAllowance pays a flat Rate once per shift.
type PerShiftAllowance struct {
	Label string
	Rate  decimal.Decimal
}

func (a PerShiftAllowance) Name() string                         { return a.Label }
func (a PerShiftAllowance) Kind() Kind                           { return KindPerShift }
func (a PerShiftAllowance) Amount(decimal.Decimal) decimal.Decimal { return a.Rate }
func (PerShiftAllowance) allowance()                             {}

// WeeklyAllowance is quoted per full week and pro-rated by shift hours.
type WeeklyAllowance struct {
	Label string
	Rate  decimal.Decimal
}

func (a WeeklyAllowance) Name() string { return a.Label }
func (a WeeklyAllowance) Kind() Kind   { return KindWeekly }
func (a WeeklyAllowance) Amount(hours decimal.Decimal) decimal.Decimal {
	return a.Rate.Div(HoursPerWeek).Mul(hours)
}
func (WeeklyAllowance) allowance() {}

// MealAllowance may be configured with several tiers; only the first is paid.
type MealAllowance struct {
	Label string
	Tiers []decimal.Decimal
}

func (a MealAllowance) Name() string { return a.Label }
func (a MealAllowance) Kind() Kind   { return KindMeal }
func (a MealAllowance) Amount(decimal.Decimal) decimal.Decimal {
	if len(a.Tiers) == 0 {
		return decimal.Zero
	}
	return a.Tiers[0]
}
func (MealAllowance) allowance() {}

// NewAllowance resolves a configured definition into its variant.
// rates holds a single value for every kind except meal.
func NewAllowance(name string, kind Kind, rates []decimal.Decimal) (Allowance, error) {
	first := decimal.Zero
	if len(rates) > 0 {
		first = rates[0]
	}
	switch kind {
	case KindHourly:
		return HourlyAllowance{Label: name, Rate: first}, nil
	case KindPerShift:
		return PerShiftAllowance{Label: name, Rate: first}, nil
	case KindWeekly:
		return WeeklyAllowance{Label: name, Rate: first}, nil
	case KindMeal:
		return MealAllowance{Label: name, Tiers: append([]decimal.Decimal(nil), rates...)}, nil
	default:
		return nil, fmt.Errorf("%w: %q for allowance %q", ErrUnsupportedAllowance, kind, name)
	}
}
