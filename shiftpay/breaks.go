package shiftpay

import (
	"github.com/shopspring/decimal"
	"github.com/warp/casual-pay/payroll"
)

// AdjustmentFactor is the share of raw hours that is paid once unpaid
// break time is removed. Every category is scaled by the same factor so
// the category mix is preserved. Zero hours gives a zero factor, and the
// factor never goes negative.
func AdjustmentFactor(totalHours decimal.Decimal, breakMinutes int) decimal.Decimal {
	if !totalHours.IsPositive() {
		return decimal.Zero
	}
	paid := totalHours.Sub(payroll.MinutesToHours(breakMinutes))
	if paid.IsNegative() {
		return decimal.Zero
	}
	return paid.Div(totalHours)
}
