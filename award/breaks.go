package award

import "github.com/shopspring/decimal"

// =============================================================================
// BREAK SCHEDULE - Unpaid meal breaks by shift length
// =============================================================================

// BreakRule applies when Low <= hours <= High. A nil High is the
// open-ended "Low or more hours" rule.
type BreakRule struct {
	Low        decimal.Decimal
	High       *decimal.Decimal
	MealBreaks int
}

// Matches reports whether hours falls in the rule's range.
func (r BreakRule) Matches(hours decimal.Decimal) bool {
	if hours.LessThan(r.Low) {
		return false
	}
	return r.High == nil || hours.LessThanOrEqual(*r.High)
}

// BreakSchedule is an ordered list of rules; the first match wins.
type BreakSchedule struct {
	Rules            []BreakRule
	MealBreakMinutes int
}

// BreakMinutes returns the unpaid break minutes for a shift of totalHours,
// or 0 when no rule matches.
func (s BreakSchedule) BreakMinutes(totalHours decimal.Decimal) int {
	for _, r := range s.Rules {
		if r.Matches(totalHours) {
			return r.MealBreaks * s.MealBreakMinutes
		}
	}
	return 0
}
