/*
Package tax computes PAYG withholding for a pay period.

PURPOSE:
  Given a period's total gross earnings and the employee's withholding
  profile, returns the amount to withhold. Every cadence is reduced to the
  weekly scale and scaled back up.

KEY CONCEPTS:
  - Weekly earnings: whole dollars plus 99 cents (floor(x) + 0.99)
  - Scale:           ordered brackets; first with earnings < limit applies
  - Offset:          annual offset claim reduces weekly tax by 1.9% of it,
                     only when the threshold is claimed
  - No TFN:          flat rate on weekly earnings, scales not consulted

CADENCE CONVERSION:
  weekly       weekly(prepare(e))
  fortnightly  weekly(prepare(e / 2)) * 2
  monthly      weekly(prepare(e * 12 / 52)) * 52 / 12

  Weekly tax is floored to the cent. Fortnightly results are exact cents;
  monthly results are returned at full precision for the caller to round.

USAGE:
  amount, err := tax.ForPeriod(gross, payroll.CadenceFortnightly, tax.ProfileFor(employer))
*/
package tax

import (
	"github.com/shopspring/decimal"
	"github.com/warp/casual-pay/payroll"
)

var (
	centsOnTop = decimal.RequireFromString("0.99")
	two        = decimal.NewFromInt(2)
	twelve     = decimal.NewFromInt(12)
	fiftyTwo   = decimal.NewFromInt(52)
)

// Profile is what withholding depends on besides earnings.
type Profile struct {
	ClaimsThreshold bool
	HasTFN          bool
	ForeignResident bool
	Offset          decimal.Decimal // annual tax offset claimed
}

// ProfileFor reads the withholding inputs off an employer profile.
func ProfileFor(e payroll.EmployerProfile) Profile {
	return Profile{
		ClaimsThreshold: e.TaxFreeThreshold,
		HasTFN:          e.HasTFN,
		ForeignResident: e.ForeignResident,
		Offset:          e.TaxOffset,
	}
}

// Engine holds the scales and flat rates. The zero value is not usable;
// use Default.
type Engine struct {
	Threshold     Table
	NoThreshold   Table
	NoTFNResident decimal.Decimal
	NoTFNForeign  decimal.Decimal
	OffsetFactor  decimal.Decimal
}

// Default returns an engine with the current weekly scales.
func Default() *Engine {
	return &Engine{
		Threshold:     ThresholdTable(),
		NoThreshold:   NoThresholdTable(),
		NoTFNResident: NoTFNResidentRate,
		NoTFNForeign:  NoTFNForeignRate,
		OffsetFactor:  OffsetWeeklyFactor,
	}
}

var defaultEngine = Default()

// ForPeriod withholds on earnings using the default engine.
func ForPeriod(earnings decimal.Decimal, cadence payroll.Cadence, p Profile) (decimal.Decimal, error) {
	return defaultEngine.ForPeriod(earnings, cadence, p)
}

// WeeklyEarnings prepares an amount for the weekly scale.
func (e *Engine) WeeklyEarnings(amount decimal.Decimal) decimal.Decimal {
	return payroll.FloorUnits(amount).Add(centsOnTop)
}

// WeeklyTax is the withholding on already-prepared weekly earnings,
// floored to the cent and never negative.
func (e *Engine) WeeklyTax(x decimal.Decimal, p Profile) decimal.Decimal {
	if !p.HasTFN {
		rate := e.NoTFNResident
		if p.ForeignResident {
			rate = e.NoTFNForeign
		}
		return payroll.FloorCents(x.Mul(rate))
	}

	table := e.NoThreshold
	if p.ClaimsThreshold {
		table = e.Threshold
	}
	b, ok := table.Lookup(x)
	if !ok {
		return decimal.Zero
	}

	tax := b.A.Mul(x).Sub(b.B)
	if p.ClaimsThreshold && p.Offset.IsPositive() {
		tax = decimal.Max(decimal.Zero, tax.Sub(p.Offset.Mul(e.OffsetFactor)))
	}
	tax = payroll.FloorCents(tax)
	if tax.IsNegative() {
		return decimal.Zero
	}
	return tax
}

// WeeklyEquivalent is a week's share of a period's earnings: unchanged
// for weekly, halved for fortnightly, and scaled by 12/52 for monthly.
func (e *Engine) WeeklyEquivalent(earnings decimal.Decimal, cadence payroll.Cadence) (decimal.Decimal, error) {
	switch cadence {
	case payroll.CadenceWeekly:
		return earnings, nil
	case payroll.CadenceFortnightly:
		return earnings.Div(two), nil
	case payroll.CadenceMonthly:
		return earnings.Mul(twelve).Div(fiftyTwo), nil
	default:
		return decimal.Zero, &UnsupportedCadenceError{Cadence: cadence}
	}
}

// ForPeriod withholds on a period's earnings. Zero or negative earnings
// withhold nothing. A cadence other than weekly, fortnightly or monthly
// fails with *UnsupportedCadenceError.
func (e *Engine) ForPeriod(earnings decimal.Decimal, cadence payroll.Cadence, p Profile) (decimal.Decimal, error) {
	weekly, err := e.WeeklyEquivalent(earnings, cadence)
	if err != nil {
		return decimal.Zero, err
	}
	if !earnings.IsPositive() {
		return decimal.Zero, nil
	}

	withheld := e.WeeklyTax(e.WeeklyEarnings(weekly), p)
	switch cadence {
	case payroll.CadenceFortnightly:
		return withheld.Mul(two), nil
	case payroll.CadenceMonthly:
		return withheld.Mul(fiftyTwo).Div(twelve), nil
	default:
		return withheld, nil
	}
}
