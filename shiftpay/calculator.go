/*
Package shiftpay prices individual shifts.

PURPOSE:
  Turns a logged shift into a PricedShift: hours per wage category, unpaid
  break deduction, category pay, allowances and the combined gross. Pricing
  is a pure function of the shift, the employer profile and the award
  Config; the same inputs always give the same figures.

PRICING SEQUENCE (Calculator.Price):
  1. Resolve the public holiday for the employer's state
  2. Split raw hours into categories (split.go)
  3. Look up unpaid break minutes for the raw total (award.BreakSchedule)
  4. Scale every category by the same adjustment factor (breaks.go)
  5. Pay each positive category at the employer level's rate
  6. Add enabled allowances on the unadjusted shift length (allowances.go)

  Intermediate amounts are kept at full precision; output fields are
  rounded to the cent once, at the end.

FAILURES:
  A shift whose employer has no profile fails with
  *payroll.MissingEmployerError. PriceAll records the failure and keeps
  going. Missing rates and allowance definitions are not failures: they
  contribute nothing and are reported through OnSkip.
*/
package shiftpay

import (
	"github.com/shopspring/decimal"
	"github.com/warp/casual-pay/award"
	"github.com/warp/casual-pay/payroll"
)

// Calculator prices shifts against one award configuration.
type Calculator struct {
	Config    *award.Config
	employers map[payroll.EmployerID]payroll.EmployerProfile

	// OnSkip receives lookup misses. May be nil.
	OnSkip payroll.SkipFunc
}

// NewCalculator indexes employers by ID. Later duplicates win.
func NewCalculator(cfg *award.Config, employers []payroll.EmployerProfile) *Calculator {
	idx := make(map[payroll.EmployerID]payroll.EmployerProfile, len(employers))
	for _, e := range employers {
		idx[e.ID] = e
	}
	return &Calculator{Config: cfg, employers: idx}
}

// Employer returns the profile a shift would be priced with.
func (c *Calculator) Employer(id payroll.EmployerID) (payroll.EmployerProfile, bool) {
	e, ok := c.employers[id]
	return e, ok
}

// Price computes the derived pay record for one shift.
func (c *Calculator) Price(shift payroll.Shift) (payroll.PricedShift, error) {
	employer, ok := c.employers[shift.EmployerID]
	if !ok {
		return payroll.PricedShift{}, &payroll.MissingEmployerError{
			ShiftID:    shift.ID,
			Date:       shift.Date,
			EmployerID: shift.EmployerID,
		}
	}

	holiday, isHoliday := c.Config.Holidays.HolidayOn(shift.Date, employer.State)

	raw := SplitCategories(shift.Date, shift.Start, shift.End, isHoliday)
	rawTotal := raw.Total()
	breakMinutes := c.Config.Breaks.BreakMinutes(rawTotal)
	factor := AdjustmentFactor(rawTotal, breakMinutes)

	gross := decimal.Zero
	paidHours := decimal.Zero
	var categories []payroll.CategoryPay

	for _, cat := range payroll.Categories {
		hours := raw[cat]
		if !hours.IsPositive() {
			continue
		}
		rate, ok := c.Config.Rates.Rate(employer.Level, cat)
		if !ok {
			c.OnSkip.Report(payroll.Skip{
				Reason:  payroll.SkipMissingRate,
				Subject: employer.Level + "/" + string(cat),
				Ref:     shiftRef(shift),
			})
			continue
		}

		adjusted := hours.Mul(factor)
		gross = gross.Add(adjusted.Mul(rate))
		paidHours = paidHours.Add(adjusted)

		categories = append(categories, payroll.CategoryPay{
			Category:    cat,
			Hours:       payroll.Round2(adjusted),
			Rate:        rate,
			Description: c.Config.Describe(cat),
		})
	}

	avgRate := decimal.Zero
	if paidHours.IsPositive() {
		avgRate = gross.Div(paidHours)
	}

	allowances := Allowances(shift, employer, c.Config, c.OnSkip)
	allowanceTotal := decimal.Zero
	for _, a := range allowances {
		allowanceTotal = allowanceTotal.Add(a.Amount)
	}

	priced := payroll.PricedShift{
		Shift:              shift,
		HoursWorked:        payroll.Round2(paidHours),
		IsPublicHoliday:    isHoliday,
		PayCategories:      categories,
		PayRate:            payroll.Round2(avgRate),
		GrossPay:           payroll.Round2(gross),
		Allowances:         allowances,
		AllowanceTotal:     payroll.Round2(allowanceTotal),
		TotalGrossPay:      payroll.Round2(gross.Add(allowanceTotal)),
		UnpaidBreakMinutes: breakMinutes,
	}
	if priced.Shift.Employer == "" {
		priced.Shift.Employer = employer.Name
	}
	if isHoliday {
		priced.HolidayName = holiday.Name
	}
	return priced, nil
}

// ShiftFailure is a shift PriceAll could not price.
type ShiftFailure struct {
	Shift payroll.Shift
	Err   error
}

// PriceAll prices every shift in order. Failed shifts are left out of the
// result and returned alongside it; they never abort the batch.
func (c *Calculator) PriceAll(shifts []payroll.Shift) ([]payroll.PricedShift, []ShiftFailure) {
	priced := make([]payroll.PricedShift, 0, len(shifts))
	var failures []ShiftFailure
	for _, s := range shifts {
		p, err := c.Price(s)
		if err != nil {
			failures = append(failures, ShiftFailure{Shift: s, Err: err})
			continue
		}
		priced = append(priced, p)
	}
	return priced, failures
}
