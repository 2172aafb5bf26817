package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/casual-pay/payroll"
)

// =============================================================================
// USER DOCUMENT (user.json)
// =============================================================================

// UserJSON lists the employee's employers.
type UserJSON struct {
	Employers []EmployerJSON `json:"employers"`
}

// EmployerJSON is one employer profile. Weekdays are full English names
// ("Monday") or their three-letter prefixes.
type EmployerJSON struct {
	ID                   string             `json:"id"`
	Name                 string             `json:"name"`
	Level                string             `json:"level"`
	State                string             `json:"state"`
	TaxFreeThreshold     bool               `json:"taxFreeThreshold"`
	PayCycle             string             `json:"paycycle"`
	Payday               string             `json:"payday"`
	PayPeriodStart       string             `json:"payPeriodStart"`
	PayPeriodDays        int                `json:"payPeriodDays,omitempty"`
	NextPayDate          string             `json:"nextPayDate,omitempty"`
	ApplicableAllowances []AllowanceRefJSON `json:"applicableAllowances,omitempty"`
	HasTFN               *bool              `json:"hasTFN,omitempty"`
	ForeignResident      bool               `json:"foreignResident,omitempty"`
	TaxOffset            *decimal.Decimal   `json:"taxOffset,omitempty"`
}

type AllowanceRefJSON struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Notes   string `json:"notes,omitempty"`
}

// ParseUser parses a user.json document.
func ParseUser(data []byte) ([]payroll.EmployerProfile, error) {
	var doc UserJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	out := make([]payroll.EmployerProfile, 0, len(doc.Employers))
	for _, ej := range doc.Employers {
		e, err := FromEmployerJSON(ej)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// FromEmployerJSON validates and converts one employer. A missing hasTFN
// means the employee has provided their TFN.
func FromEmployerJSON(ej EmployerJSON) (payroll.EmployerProfile, error) {
	if ej.ID == "" {
		return payroll.EmployerProfile{}, fmt.Errorf("%w: employer without an id", ErrInvalidConfig)
	}
	if ej.Level == "" {
		return payroll.EmployerProfile{}, fmt.Errorf("%w: employer %s: level is required", ErrInvalidConfig, ej.ID)
	}
	if ej.PayCycle == "" {
		return payroll.EmployerProfile{}, fmt.Errorf("%w: employer %s: paycycle is required", ErrInvalidConfig, ej.ID)
	}

	start, err := weekdayOr(ej.PayPeriodStart, time.Monday)
	if err != nil {
		return payroll.EmployerProfile{}, fmt.Errorf("%w: employer %s: payPeriodStart: %v", ErrInvalidConfig, ej.ID, err)
	}
	payday, err := weekdayOr(ej.Payday, start)
	if err != nil {
		return payroll.EmployerProfile{}, fmt.Errorf("%w: employer %s: payday: %v", ErrInvalidConfig, ej.ID, err)
	}

	e := payroll.EmployerProfile{
		ID:               payroll.EmployerID(ej.ID),
		Name:             ej.Name,
		Level:            ej.Level,
		State:            ej.State,
		PayCycle:         payroll.Cadence(ej.PayCycle),
		PayPeriodStart:   start,
		PayPeriodDays:    ej.PayPeriodDays,
		Payday:           payday,
		TaxFreeThreshold: ej.TaxFreeThreshold,
		HasTFN:           true,
		ForeignResident:  ej.ForeignResident,
	}
	if ej.HasTFN != nil {
		e.HasTFN = *ej.HasTFN
	}
	if ej.TaxOffset != nil {
		e.TaxOffset = *ej.TaxOffset
	}
	for _, a := range ej.ApplicableAllowances {
		e.Allowances = append(e.Allowances, payroll.AllowanceRef{Name: a.Name, Enabled: a.Enabled, Notes: a.Notes})
	}
	return e, nil
}

// ToEmployerJSON renders a profile in user.json form.
func ToEmployerJSON(e payroll.EmployerProfile) EmployerJSON {
	hasTFN := e.HasTFN
	ej := EmployerJSON{
		ID:               string(e.ID),
		Name:             e.Name,
		Level:            e.Level,
		State:            e.State,
		TaxFreeThreshold: e.TaxFreeThreshold,
		PayCycle:         string(e.PayCycle),
		Payday:           e.Payday.String(),
		PayPeriodStart:   e.PayPeriodStart.String(),
		PayPeriodDays:    e.PayPeriodDays,
		HasTFN:           &hasTFN,
		ForeignResident:  e.ForeignResident,
	}
	if !e.TaxOffset.IsZero() {
		offset := e.TaxOffset
		ej.TaxOffset = &offset
	}
	for _, a := range e.Allowances {
		ej.ApplicableAllowances = append(ej.ApplicableAllowances, AllowanceRefJSON{Name: a.Name, Enabled: a.Enabled, Notes: a.Notes})
	}
	return ej
}

func weekdayOr(s string, fallback time.Weekday) (time.Weekday, error) {
	if s == "" {
		return fallback, nil
	}
	return payroll.ParseWeekday(s)
}
