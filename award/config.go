/*
Package award models the pay rules a casual employee is paid under.

PURPOSE:
  Everything the pricing engine looks up but never computes lives here:
  per-level category rates, category display names, allowance definitions,
  the unpaid meal-break schedule and the public holiday calendar. The
  factory package builds a Config from JSON; nothing here does I/O.

KEY TYPES:
  - Config:        The aggregate read by shiftpay and period
  - RateTable:     level -> category -> hourly rate
  - Allowance:     hourly, per-shift, weekly or meal allowance
  - BreakSchedule: shift length -> unpaid meal-break minutes
  - Calendar:      year -> national/state public holidays

LOOKUP MISSES:
  Missing rates and allowances are reported by the caller as payroll.Skip
  values rather than errors. Config itself only answers (value, ok).
*/
package award

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/casual-pay/payroll"
)

// ErrUnsupportedAllowance is returned by NewAllowance for unknown kinds.
var ErrUnsupportedAllowance = errors.New("unsupported allowance type")

// RateTable maps an employee level to its hourly rate per category.
type RateTable map[string]map[payroll.Category]decimal.Decimal

// Rate returns the hourly rate for a level and category.
func (t RateTable) Rate(level string, category payroll.Category) (decimal.Decimal, bool) {
	rates, ok := t[level]
	if !ok {
		return decimal.Zero, false
	}
	rate, ok := rates[category]
	return rate, ok
}

// Config is the complete set of award rules.
type Config struct {
	Rates         RateTable
	CategoryNames map[payroll.Category]string
	Allowances    map[string]Allowance
	Breaks        BreakSchedule
	Holidays      Calendar

	// LoadSkips are the allowance definitions dropped while loading.
	LoadSkips []payroll.Skip
}

// Describe returns the display name of a category, or the key itself.
func (c *Config) Describe(category payroll.Category) string {
	if name, ok := c.CategoryNames[category]; ok && name != "" {
		return name
	}
	return string(category)
}

// Allowance looks up a definition by name.
func (c *Config) Allowance(name string) (Allowance, bool) {
	a, ok := c.Allowances[name]
	return a, ok
}

// Categories returns the categories a pay period tracks: those named in
// CategoryNames, known categories first in reporting order, then any extra
// keys alphabetically. With no names configured it is payroll.Categories.
func (c *Config) Categories() []payroll.Category {
	if len(c.CategoryNames) == 0 {
		return append([]payroll.Category(nil), payroll.Categories...)
	}

	out := make([]payroll.Category, 0, len(c.CategoryNames))
	known := make(map[payroll.Category]bool, len(payroll.Categories))
	for _, cat := range payroll.Categories {
		known[cat] = true
		if _, ok := c.CategoryNames[cat]; ok {
			out = append(out, cat)
		}
	}

	var extra []payroll.Category
	for cat := range c.CategoryNames {
		if !known[cat] {
			extra = append(extra, cat)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}
