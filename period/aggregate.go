/*
Package period builds and totals an employer's pay periods.

PURPOSE:
  A pay period is the window an employer pays for. This package works out
  those windows from the employer's pay-cycle rules (generate.go) and rolls
  priced shifts up into them: hours by category, gross pay, allowances,
  withholding and net pay (this file).

AGGREGATION:
  1. Select the employer's shifts with StartDate <= date <= EndDate
  2. Sum hours, gross pay and per-category hours from scratch, against
     the period's own categories (the config's for a new period); a
     shift category the period does not track is dropped and reported
  3. Group allowances by name (first-seen type and notes kept)
  4. TotalGrossPay = round2(gross + allowances)
  5. Withhold on TotalGrossPay for the employer's cadence
  6. Scale tax by days/nominal when a weekly or fortnightly period is
     longer than nominal; monthly periods are never scaled
  7. NetPay = TotalGrossPay - Tax

  Aggregate is idempotent: it never reads the totals already on the input
  period, so running it twice over the same shifts gives the same result.

SEE ALSO:
  - tax/:      withholding for a cadence
  - shiftpay/: produces the priced shifts
*/
package period

import (
	"github.com/shopspring/decimal"
	"github.com/warp/casual-pay/award"
	"github.com/warp/casual-pay/payroll"
	"github.com/warp/casual-pay/tax"
)

// Withholder computes the tax for a period's earnings.
type Withholder interface {
	ForPeriod(earnings decimal.Decimal, cadence payroll.Cadence, p tax.Profile) (decimal.Decimal, error)
}

// Aggregator totals periods. A period keeps the categories it already
// lists; Categories fixes them, and their order, for a period with none.
type Aggregator struct {
	Tax        Withholder
	Categories []payroll.Category
	OnSkip     payroll.SkipFunc
}

// NewAggregator uses the default withholding scales and the categories
// named by cfg.
func NewAggregator(cfg *award.Config) *Aggregator {
	return &Aggregator{
		Tax:        tax.Default(),
		Categories: cfg.Categories(),
	}
}

// LengthFactor scales withholding for a period longer than its cadence's
// nominal length. It is 1 for monthly periods and for periods no longer
// than nominal.
func LengthFactor(days int, cadence payroll.Cadence) decimal.Decimal {
	nominal := cadence.NominalDays()
	if nominal == 0 || days <= nominal {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(int64(days)).Div(decimal.NewFromInt(int64(nominal)))
}

// Aggregate returns p with its totals recomputed from shifts. Shifts for
// other employers or outside the period are ignored. p itself is not
// modified.
func (a *Aggregator) Aggregate(p payroll.PayPeriod, e payroll.EmployerProfile, shifts []payroll.PricedShift) (payroll.PayPeriod, error) {
	out := payroll.PayPeriod{
		EmployerID: e.ID,
		StartDate:  p.StartDate,
		EndDate:    p.EndDate,
		PayDate:    p.PayDate,
		Shifts:     []payroll.Date{},
	}

	categories := a.tracked(p)
	byCategory := make(map[payroll.Category]decimal.Decimal, len(categories))
	for _, c := range categories {
		byCategory[c] = decimal.Zero
	}

	hours := decimal.Zero
	gross := decimal.Zero
	allowanceTotal := decimal.Zero
	var allowances []payroll.AllowanceAmount
	allowanceIdx := map[string]int{}

	for _, s := range shifts {
		if s.EmployerID != e.ID || !p.Contains(s.Date) {
			continue
		}
		out.Shifts = append(out.Shifts, s.Date)
		hours = hours.Add(s.HoursWorked)
		gross = gross.Add(s.GrossPay)

		for _, cp := range s.PayCategories {
			cur, ok := byCategory[cp.Category]
			if !ok {
				a.OnSkip.Report(payroll.Skip{
					Reason:  payroll.SkipUnmappedCategory,
					Subject: string(cp.Category),
					Ref:     string(e.ID) + " " + p.String(),
				})
				continue
			}
			byCategory[cp.Category] = cur.Add(cp.Hours)
		}

		for _, al := range s.Allowances {
			allowanceTotal = allowanceTotal.Add(al.Amount)
			if i, ok := allowanceIdx[al.Name]; ok {
				allowances[i].Amount = allowances[i].Amount.Add(al.Amount)
				continue
			}
			allowanceIdx[al.Name] = len(allowances)
			allowances = append(allowances, al)
		}
	}

	for _, c := range categories {
		out.PayCategories = append(out.PayCategories, payroll.CategoryTotal{
			Category: c,
			Hours:    payroll.Round2(byCategory[c]),
		})
	}
	for i := range allowances {
		allowances[i].Amount = payroll.Round2(allowances[i].Amount)
	}

	out.TotalHours = payroll.Round2(hours)
	out.GrossPay = payroll.Round2(gross)
	out.Allowances = allowances
	out.AllowanceTotal = payroll.Round2(allowanceTotal)
	out.TotalGrossPay = payroll.Round2(gross.Add(allowanceTotal))

	withheld, err := a.Tax.ForPeriod(out.TotalGrossPay, e.PayCycle, tax.ProfileFor(e))
	if err != nil {
		return payroll.PayPeriod{}, err
	}
	withheld = withheld.Mul(LengthFactor(out.Days(), e.PayCycle))

	out.Tax = payroll.Round2(withheld)
	out.NetPay = out.TotalGrossPay.Sub(out.Tax)
	return out, nil
}

// tracked returns the categories p is totalled against: its own, in
// order, or the aggregator's for a period that has none yet.
func (a *Aggregator) tracked(p payroll.PayPeriod) []payroll.Category {
	if len(p.PayCategories) == 0 {
		return a.Categories
	}
	out := make([]payroll.Category, 0, len(p.PayCategories))
	seen := make(map[payroll.Category]bool, len(p.PayCategories))
	for _, ct := range p.PayCategories {
		if seen[ct.Category] {
			continue
		}
		seen[ct.Category] = true
		out = append(out, ct.Category)
	}
	return out
}

// AggregateAll recomputes every period in order. The first withholding
// error stops the run.
func (a *Aggregator) AggregateAll(periods []payroll.PayPeriod, e payroll.EmployerProfile, shifts []payroll.PricedShift) ([]payroll.PayPeriod, error) {
	out := make([]payroll.PayPeriod, 0, len(periods))
	for _, p := range periods {
		agg, err := a.Aggregate(p, e, shifts)
		if err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	return out, nil
}
