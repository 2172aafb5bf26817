/*
Package payroll holds the records shared by every stage of the pay engine.

PURPOSE:
  A casual employee logs shifts against one or more employers. Each shift is
  priced (wage categories, breaks, allowances), and priced shifts are rolled
  up into the employer's pay periods where withholding tax is applied.
  This package owns the record types that flow between those stages; it has
  no pricing or tax logic of its own.

KEY CONCEPTS IN THIS FILE (types.go):
  - Category:        A wage category with its own hourly rate
  - Cadence:         Pay-period frequency (weekly, fortnightly, monthly)
  - Shift:           A logged, already-validated work shift (input)
  - EmployerProfile: Pay level, jurisdiction, pay cycle and tax settings
  - PricedShift:     A shift with hours, pay and allowances (derived)
  - PayPeriod:       Period totals, tax and net pay (derived)

DESIGN PRINCIPLES:
  1. Precision: money and hours are decimal.Decimal, never float64
  2. Derived records are replaced wholesale on every recompute
  3. Dates are civil dates (see date.go), compared structurally

SEE ALSO:
  - award/:    Rate tables, allowances, breaks, public holidays
  - shiftpay/: Shift pricing
  - tax/:      Withholding schedule
  - period/:   Pay period generation and aggregation
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// WAGE CATEGORIES
// =============================================================================

type Category string

const (
	CategoryOrdinary      Category = "ordinary"
	CategoryEvening       Category = "evening_mon_fri"
	CategorySaturday      Category = "saturday"
	CategorySunday        Category = "sunday"
	CategoryPublicHoliday Category = "public_holiday"
)

// Categories lists every wage category in reporting order.
var Categories = []Category{
	CategoryOrdinary,
	CategoryEvening,
	CategorySaturday,
	CategorySunday,
	CategoryPublicHoliday,
}

// CategoryHours maps each wage category to fractional hours.
type CategoryHours map[Category]decimal.Decimal

// NewCategoryHours returns every category initialised to zero.
func NewCategoryHours() CategoryHours {
	h := make(CategoryHours, len(Categories))
	for _, c := range Categories {
		h[c] = decimal.Zero
	}
	return h
}

// Total sums hours across all categories.
func (h CategoryHours) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range h {
		total = total.Add(v)
	}
	return total
}

// =============================================================================
// CADENCE
// =============================================================================

type Cadence string

const (
	CadenceWeekly      Cadence = "weekly"
	CadenceFortnightly Cadence = "fortnightly"
	CadenceMonthly     Cadence = "monthly"
)

// NominalDays is the statutory period length, 0 for monthly.
func (c Cadence) NominalDays() int {
	switch c {
	case CadenceWeekly:
		return 7
	case CadenceFortnightly:
		return 14
	default:
		return 0
	}
}

// =============================================================================
// INPUT RECORDS
// =============================================================================

type EmployerID string

// Shift is one logged work shift. End before Start means the shift
// finishes on the following day.
type Shift struct {
	ID         string
	EmployerID EmployerID
	Employer   string // display name carried through from the log
	Date       Date
	Start      Clock
	End        Clock
}

// AllowanceRef is an employer's switch for one allowance definition.
type AllowanceRef struct {
	Name    string
	Enabled bool
	Notes   string
}

type EmployerProfile struct {
	ID               EmployerID
	Name             string
	Level            string
	State            string
	PayCycle         Cadence
	PayPeriodStart   time.Weekday
	PayPeriodDays    int
	Payday           time.Weekday
	TaxFreeThreshold bool
	Allowances       []AllowanceRef

	// Withholding inputs. Zero value of HasTFN would mean "no TFN", so
	// constructors and parsers default it to true.
	HasTFN          bool
	ForeignResident bool
	TaxOffset       decimal.Decimal
}

// =============================================================================
// DERIVED RECORDS
// =============================================================================

// CategoryPay is the break-adjusted hours and rate for one category of a shift.
type CategoryPay struct {
	Category    Category
	Hours       decimal.Decimal
	Rate        decimal.Decimal
	Description string
}

// AllowanceAmount is one allowance paid on a shift or summed over a period.
type AllowanceAmount struct {
	Name   string
	Amount decimal.Decimal
	Type   string
	Notes  string
}

// PricedShift is recomputed on every run and never the source of truth.
//
// INVARIANTS:
//   - Sum of PayCategories hours equals HoursWorked (within 0.01)
//   - GrossPay equals sum of hours × rate to the cent
//   - TotalGrossPay = GrossPay + AllowanceTotal
type PricedShift struct {
	Shift

	HoursWorked        decimal.Decimal
	IsPublicHoliday    bool
	HolidayName        string
	PayCategories      []CategoryPay
	PayRate            decimal.Decimal
	GrossPay           decimal.Decimal
	Allowances         []AllowanceAmount
	AllowanceTotal     decimal.Decimal
	TotalGrossPay      decimal.Decimal
	UnpaidBreakMinutes int
}

// CategoryTotal is a period's hours in one category.
type CategoryTotal struct {
	Category Category
	Hours    decimal.Decimal
}

// PayPeriod is an employer pay period with its recomputed totals.
//
// INVARIANTS:
//   - TotalGrossPay = GrossPay + AllowanceTotal
//   - NetPay = TotalGrossPay - Tax
type PayPeriod struct {
	EmployerID EmployerID
	StartDate  Date
	EndDate    Date
	PayDate    Date

	Shifts         []Date
	PayCategories  []CategoryTotal
	TotalHours     decimal.Decimal
	GrossPay       decimal.Decimal
	Allowances     []AllowanceAmount
	AllowanceTotal decimal.Decimal
	TotalGrossPay  decimal.Decimal
	Tax            decimal.Decimal
	NetPay         decimal.Decimal
}

// Contains reports whether d falls within [StartDate, EndDate].
func (p PayPeriod) Contains(d Date) bool {
	return d.AfterOrEqual(p.StartDate) && d.BeforeOrEqual(p.EndDate)
}

// Days is the inclusive length of the period.
func (p PayPeriod) Days() int {
	return DaysBetween(p.StartDate, p.EndDate) + 1
}

func (p PayPeriod) String() string {
	return "[" + p.StartDate.String() + ", " + p.EndDate.String() + "]"
}
