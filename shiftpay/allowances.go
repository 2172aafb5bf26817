package shiftpay

import (
	"github.com/warp/casual-pay/award"
	"github.com/warp/casual-pay/payroll"
)

// Allowances returns the allowances paid on a shift: every allowance the
// employer has enabled, that has a definition, and that comes to a
// positive amount. Amounts use the raw shift length (allowances are not
// reduced for unpaid breaks) and are rounded to the cent.
//
// An enabled allowance with no definition contributes nothing and is
// reported to onSkip.
func Allowances(shift payroll.Shift, employer payroll.EmployerProfile, cfg *award.Config, onSkip payroll.SkipFunc) []payroll.AllowanceAmount {
	if len(employer.Allowances) == 0 {
		return nil
	}

	hours := ShiftHours(shift.Date, shift.Start, shift.End)

	var out []payroll.AllowanceAmount
	for _, ref := range employer.Allowances {
		if !ref.Enabled {
			continue
		}
		def, ok := cfg.Allowance(ref.Name)
		if !ok {
			onSkip.Report(payroll.Skip{
				Reason:  payroll.SkipUnknownAllowance,
				Subject: ref.Name,
				Ref:     shiftRef(shift),
			})
			continue
		}

		amount := def.Amount(hours)
		if !amount.IsPositive() {
			continue
		}
		out = append(out, payroll.AllowanceAmount{
			Name:   ref.Name,
			Amount: payroll.Round2(amount),
			Type:   string(def.Kind()),
			Notes:  ref.Notes,
		})
	}
	return out
}

func shiftRef(s payroll.Shift) string {
	if s.ID != "" {
		return s.ID
	}
	return string(s.EmployerID) + "@" + s.Date.String() + "T" + s.Start.String()
}
