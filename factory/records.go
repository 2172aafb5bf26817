package factory

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/casual-pay/payroll"
)

// Derived records are written with plain JSON numbers; money and hours are
// already rounded to the cent, so float64 carries them without loss.

func num(d decimal.Decimal) float64 { return d.InexactFloat64() }

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

// shiftNamespace scopes the IDs minted for imported shifts.
var shiftNamespace = uuid.MustParse("7d2b6c39-3c1e-4c55-9d0e-0f6f3b9a51c4")

// ShiftID derives a stable ID for a shift that arrived without one. The
// same logged shift at the same position always gets the same ID, so
// re-importing a file does not duplicate it.
func ShiftID(s payroll.Shift, ordinal int) string {
	key := string(s.EmployerID) + "|" + s.Date.String() + "|" + s.Start.String() + "|" + s.End.String() + "|" + strconv.Itoa(ordinal)
	return uuid.NewSHA1(shiftNamespace, []byte(key)).String()
}

// =============================================================================
// SHIFTS (shifts.json)
// =============================================================================

type ShiftsJSON struct {
	Shifts []ShiftJSON `json:"shifts"`
}

type ShiftJSON struct {
	ID         string `json:"id,omitempty"`
	Date       string `json:"date"`
	EmployerID string `json:"employerId"`
	Employer   string `json:"employer,omitempty"`
	Start      string `json:"start"`
	End        string `json:"end"`
}

// ParseShifts parses a shifts.json document, assigning IDs where missing.
func ParseShifts(data []byte) ([]payroll.Shift, error) {
	var doc ShiftsJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	out := make([]payroll.Shift, 0, len(doc.Shifts))
	for i, sj := range doc.Shifts {
		s, err := FromShiftJSON(sj)
		if err != nil {
			return nil, fmt.Errorf("shift %d: %w", i, err)
		}
		if s.ID == "" {
			s.ID = ShiftID(s, i)
		}
		out = append(out, s)
	}
	return out, nil
}

// FromShiftJSON parses one logged shift. The ID is left as given.
func FromShiftJSON(sj ShiftJSON) (payroll.Shift, error) {
	if sj.EmployerID == "" {
		return payroll.Shift{}, fmt.Errorf("%w: employerId is required", ErrInvalidConfig)
	}
	d, err := payroll.ParseDate(sj.Date)
	if err != nil {
		return payroll.Shift{}, err
	}
	start, err := payroll.ParseClock(sj.Start)
	if err != nil {
		return payroll.Shift{}, err
	}
	end, err := payroll.ParseClock(sj.End)
	if err != nil {
		return payroll.Shift{}, err
	}
	return payroll.Shift{
		ID:         sj.ID,
		EmployerID: payroll.EmployerID(sj.EmployerID),
		Employer:   sj.Employer,
		Date:       d,
		Start:      start,
		End:        end,
	}, nil
}

func ToShiftJSON(s payroll.Shift) ShiftJSON {
	return ShiftJSON{
		ID:         s.ID,
		Date:       s.Date.String(),
		EmployerID: string(s.EmployerID),
		Employer:   s.Employer,
		Start:      s.Start.String(),
		End:        s.End.String(),
	}
}

// =============================================================================
// PRICED SHIFTS (shiftspay.json)
// =============================================================================

type PricedShiftsJSON struct {
	Shifts []PricedShiftJSON `json:"shifts"`
}

type PricedShiftJSON struct {
	ShiftJSON
	HoursWorked        float64               `json:"hoursWorked"`
	IsPublicHoliday    bool                  `json:"isPublicHoliday"`
	HolidayName        string                `json:"holidayName,omitempty"`
	PayCategories      []CategoryPayJSON     `json:"payCategories"`
	PayRate            float64               `json:"payRate"`
	GrossPay           float64               `json:"grossPay"`
	Allowances         []AllowanceAmountJSON `json:"allowances,omitempty"`
	AllowanceTotal     float64               `json:"allowanceTotal"`
	TotalGrossPay      float64               `json:"totalGrossPay"`
	UnpaidBreakMinutes int                   `json:"unpaidBreakMinutes"`
}

type CategoryPayJSON struct {
	Category    string  `json:"category"`
	Hours       float64 `json:"hours"`
	Rate        float64 `json:"rate,omitempty"`
	Description string  `json:"description,omitempty"`
}

// AllowanceAmountJSON is an allowance amount paid on a shift or a period.
type AllowanceAmountJSON struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Notes  string  `json:"notes,omitempty"`
	Type   string  `json:"type,omitempty"`
}

func ToPricedShiftJSON(p payroll.PricedShift) PricedShiftJSON {
	out := PricedShiftJSON{
		ShiftJSON:          ToShiftJSON(p.Shift),
		HoursWorked:        num(p.HoursWorked),
		IsPublicHoliday:    p.IsPublicHoliday,
		HolidayName:        p.HolidayName,
		PayCategories:      make([]CategoryPayJSON, 0, len(p.PayCategories)),
		PayRate:            num(p.PayRate),
		GrossPay:           num(p.GrossPay),
		Allowances:         toAllowancesJSON(p.Allowances),
		AllowanceTotal:     num(p.AllowanceTotal),
		TotalGrossPay:      num(p.TotalGrossPay),
		UnpaidBreakMinutes: p.UnpaidBreakMinutes,
	}
	for _, c := range p.PayCategories {
		out.PayCategories = append(out.PayCategories, CategoryPayJSON{
			Category:    string(c.Category),
			Hours:       num(c.Hours),
			Rate:        num(c.Rate),
			Description: c.Description,
		})
	}
	return out
}

func FromPricedShiftJSON(pj PricedShiftJSON) (payroll.PricedShift, error) {
	s, err := FromShiftJSON(pj.ShiftJSON)
	if err != nil {
		return payroll.PricedShift{}, err
	}
	p := payroll.PricedShift{
		Shift:              s,
		HoursWorked:        dec(pj.HoursWorked),
		IsPublicHoliday:    pj.IsPublicHoliday,
		HolidayName:        pj.HolidayName,
		PayRate:            dec(pj.PayRate),
		GrossPay:           dec(pj.GrossPay),
		Allowances:         fromAllowancesJSON(pj.Allowances),
		AllowanceTotal:     dec(pj.AllowanceTotal),
		TotalGrossPay:      dec(pj.TotalGrossPay),
		UnpaidBreakMinutes: pj.UnpaidBreakMinutes,
	}
	for _, c := range pj.PayCategories {
		p.PayCategories = append(p.PayCategories, payroll.CategoryPay{
			Category:    payroll.Category(c.Category),
			Hours:       dec(c.Hours),
			Rate:        dec(c.Rate),
			Description: c.Description,
		})
	}
	return p, nil
}

func toAllowancesJSON(in []payroll.AllowanceAmount) []AllowanceAmountJSON {
	if len(in) == 0 {
		return nil
	}
	out := make([]AllowanceAmountJSON, 0, len(in))
	for _, a := range in {
		out = append(out, AllowanceAmountJSON{Name: a.Name, Amount: num(a.Amount), Notes: a.Notes, Type: a.Type})
	}
	return out
}

func fromAllowancesJSON(in []AllowanceAmountJSON) []payroll.AllowanceAmount {
	if len(in) == 0 {
		return nil
	}
	out := make([]payroll.AllowanceAmount, 0, len(in))
	for _, a := range in {
		out = append(out, payroll.AllowanceAmount{Name: a.Name, Amount: dec(a.Amount), Notes: a.Notes, Type: a.Type})
	}
	return out
}

// =============================================================================
// PAY PERIODS (payperiods.json)
// =============================================================================

type PayPeriodsJSON struct {
	PayPeriods []EmployerPeriodsJSON `json:"payPeriods"`
}

type EmployerPeriodsJSON struct {
	EmployerID string          `json:"employerId"`
	Periods    []PayPeriodJSON `json:"periods"`
}

type PayPeriodJSON struct {
	StartDate      string                `json:"startDate"`
	EndDate        string                `json:"endDate"`
	PayDate        string                `json:"payDate"`
	Shifts         []string              `json:"shifts"`
	PayCategories  []CategoryTotalJSON   `json:"payCategories"`
	TotalHours     float64               `json:"totalHours"`
	GrossPay       float64               `json:"grossPay"`
	Tax            float64               `json:"tax"`
	Allowances     []AllowanceAmountJSON `json:"allowances"`
	AllowanceTotal float64               `json:"allowanceTotal"`
	TotalGrossPay  float64               `json:"totalGrossPay"`
	NetPay         float64               `json:"netPay"`
}

type CategoryTotalJSON struct {
	Category string  `json:"category"`
	Hours    float64 `json:"hours"`
}

// ParsePayPeriods parses a payperiods.json document into periods keyed by
// employer. Only the period bounds are required; totals are recomputed.
func ParsePayPeriods(data []byte) (map[payroll.EmployerID][]payroll.PayPeriod, error) {
	var doc PayPeriodsJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	out := make(map[payroll.EmployerID][]payroll.PayPeriod, len(doc.PayPeriods))
	for _, ep := range doc.PayPeriods {
		id := payroll.EmployerID(ep.EmployerID)
		for _, pj := range ep.Periods {
			p, err := FromPayPeriodJSON(id, pj)
			if err != nil {
				return nil, fmt.Errorf("employer %s: %w", id, err)
			}
			out[id] = append(out[id], p)
		}
	}
	return out, nil
}

func FromPayPeriodJSON(employer payroll.EmployerID, pj PayPeriodJSON) (payroll.PayPeriod, error) {
	start, err := payroll.ParseDate(pj.StartDate)
	if err != nil {
		return payroll.PayPeriod{}, err
	}
	end, err := payroll.ParseDate(pj.EndDate)
	if err != nil {
		return payroll.PayPeriod{}, err
	}
	p := payroll.PayPeriod{
		EmployerID:     employer,
		StartDate:      start,
		EndDate:        end,
		TotalHours:     dec(pj.TotalHours),
		GrossPay:       dec(pj.GrossPay),
		Tax:            dec(pj.Tax),
		Allowances:     fromAllowancesJSON(pj.Allowances),
		AllowanceTotal: dec(pj.AllowanceTotal),
		TotalGrossPay:  dec(pj.TotalGrossPay),
		NetPay:         dec(pj.NetPay),
	}
	if pj.PayDate != "" {
		if p.PayDate, err = payroll.ParseDate(pj.PayDate); err != nil {
			return payroll.PayPeriod{}, err
		}
	}
	for _, s := range pj.Shifts {
		d, err := payroll.ParseDate(s)
		if err != nil {
			return payroll.PayPeriod{}, err
		}
		p.Shifts = append(p.Shifts, d)
	}
	for _, c := range pj.PayCategories {
		p.PayCategories = append(p.PayCategories, payroll.CategoryTotal{Category: payroll.Category(c.Category), Hours: dec(c.Hours)})
	}
	return p, nil
}

func ToPayPeriodJSON(p payroll.PayPeriod) PayPeriodJSON {
	out := PayPeriodJSON{
		StartDate:      p.StartDate.String(),
		EndDate:        p.EndDate.String(),
		PayDate:        p.PayDate.String(),
		Shifts:         make([]string, 0, len(p.Shifts)),
		PayCategories:  make([]CategoryTotalJSON, 0, len(p.PayCategories)),
		TotalHours:     num(p.TotalHours),
		GrossPay:       num(p.GrossPay),
		Tax:            num(p.Tax),
		Allowances:     toAllowancesJSON(p.Allowances),
		AllowanceTotal: num(p.AllowanceTotal),
		TotalGrossPay:  num(p.TotalGrossPay),
		NetPay:         num(p.NetPay),
	}
	if out.Allowances == nil {
		out.Allowances = []AllowanceAmountJSON{}
	}
	for _, d := range p.Shifts {
		out.Shifts = append(out.Shifts, d.String())
	}
	for _, c := range p.PayCategories {
		out.PayCategories = append(out.PayCategories, CategoryTotalJSON{Category: string(c.Category), Hours: num(c.Hours)})
	}
	return out
}
