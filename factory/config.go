/*
Package factory converts the JSON data files into engine types and back.

PURPOSE:
  The pay engine's inputs and outputs are exchanged as JSON documents with
  a fixed layout (config.json, user.json, shifts.json, shiftspay.json,
  payperiods.json). This package owns those layouts: it parses them into
  award, payroll and period types, validates what it can, and renders
  derived records back out. Both stores and the HTTP API use these types
  so there is one JSON shape per record.

CONFIG SCHEMA (config.json):
  {
    "casual": {"level_1": {"rates": {"ordinary": 30.50, "saturday": 38.13}}},
    "timeCategories": {"ordinary": "Ordinary hours"},
    "allowances": {"items": [
      {"name": "Laundry", "type": "hourly", "rate": 0.32},
      {"name": "Meal", "type": "meal", "rate": [16.62, 15.04]}
    ]},
    "breaks": {
      "mealBreak": {"minDuration": 30},
      "breakSchedule": [{"hoursRange": [5.01, 10], "mealBreaks": 1},
                        {"hoursRange": [10.01, null], "mealBreaks": 2}]
    },
    "publicHolidays": {"2025": {
      "national": [{"date": "2025-12-25", "name": "Christmas Day"}],
      "VIC": [{"date": "2025-11-04", "name": "Melbourne Cup", "regional": true}]
    }}
  }

VALIDATION:
  Malformed documents fail with ErrInvalidConfig. Allowances with a type
  the engine does not know are left out and returned as payroll.Skip
  values so the rest of the config still loads.

USAGE:
  cfg, skips, err := factory.ParseConfig(data)

SEE ALSO:
  - award/config.go: the parsed form
  - employer.go, records.go: the other documents
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/warp/casual-pay/award"
	"github.com/warp/casual-pay/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ConfigJSON is the award configuration document.
type ConfigJSON struct {
	Casual         map[string]LevelJSON                `json:"casual"`
	TimeCategories map[string]string                   `json:"timeCategories,omitempty"`
	Allowances     AllowancesJSON                      `json:"allowances"`
	Breaks         BreaksJSON                          `json:"breaks"`
	PublicHolidays map[string]map[string][]HolidayJSON `json:"publicHolidays,omitempty"`
}

// LevelJSON holds one classification level's category rates.
type LevelJSON struct {
	Rates map[string]decimal.Decimal `json:"rates"`
}

type AllowancesJSON struct {
	Items []AllowanceJSON `json:"items"`
}

// AllowanceJSON defines one allowance. Rate is a number, or a list of
// tiers for meal allowances.
type AllowanceJSON struct {
	Name string          `json:"name"`
	Type string          `json:"type"`
	Rate json.RawMessage `json:"rate"`
}

type BreaksJSON struct {
	MealBreak     MealBreakJSON   `json:"mealBreak"`
	BreakSchedule []BreakRuleJSON `json:"breakSchedule"`
}

type MealBreakJSON struct {
	MinDuration int `json:"minDuration"`
}

// BreakRuleJSON is [low, high]; a null high means "low or more hours".
type BreakRuleJSON struct {
	HoursRange []*decimal.Decimal `json:"hoursRange"`
	MealBreaks int                `json:"mealBreaks"`
}

// HolidayJSON is one gazetted day. Regional is usually a boolean but some
// data sources put a region name there; only boolean true marks the
// holiday as regional.
type HolidayJSON struct {
	Date     string `json:"date"`
	Name     string `json:"name"`
	Regional any    `json:"regional,omitempty"`
}

const nationalKey = "national"

// =============================================================================
// PARSING
// =============================================================================

// ParseConfig parses a config.json document.
func ParseConfig(data []byte) (*award.Config, []payroll.Skip, error) {
	var doc ConfigJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return FromConfigJSON(doc)
}

// FromConfigJSON converts a decoded document into an award.Config.
func FromConfigJSON(doc ConfigJSON) (*award.Config, []payroll.Skip, error) {
	if len(doc.Casual) == 0 {
		return nil, nil, fmt.Errorf("%w: no casual levels defined", ErrInvalidConfig)
	}

	cfg := &award.Config{
		Rates:         make(award.RateTable, len(doc.Casual)),
		CategoryNames: make(map[payroll.Category]string, len(doc.TimeCategories)),
		Allowances:    make(map[string]award.Allowance, len(doc.Allowances.Items)),
		Holidays:      make(award.Calendar, len(doc.PublicHolidays)),
	}

	for level, lj := range doc.Casual {
		rates := make(map[payroll.Category]decimal.Decimal, len(lj.Rates))
		for cat, rate := range lj.Rates {
			rates[payroll.Category(cat)] = rate
		}
		cfg.Rates[level] = rates
	}

	for cat, name := range doc.TimeCategories {
		cfg.CategoryNames[payroll.Category(cat)] = name
	}

	var skips []payroll.Skip
	for _, aj := range doc.Allowances.Items {
		if aj.Name == "" {
			return nil, nil, fmt.Errorf("%w: allowance without a name", ErrInvalidConfig)
		}
		rates, err := parseRates(aj.Rate)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: allowance %q: %v", ErrInvalidConfig, aj.Name, err)
		}
		a, err := award.NewAllowance(aj.Name, award.Kind(aj.Type), rates)
		if err != nil {
			skips = append(skips, payroll.Skip{
				Reason:  payroll.SkipUnsupportedAllowance,
				Subject: aj.Name,
				Ref:     aj.Type,
			})
			continue
		}
		cfg.Allowances[aj.Name] = a
	}

	breaks, err := parseBreaks(doc.Breaks)
	if err != nil {
		return nil, nil, err
	}
	cfg.Breaks = breaks

	for yearKey, groups := range doc.PublicHolidays {
		year, err := strconv.Atoi(yearKey)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: holiday year %q", ErrInvalidConfig, yearKey)
		}
		yh := award.YearHolidays{ByState: map[string][]award.Holiday{}}
		for group, list := range groups {
			holidays, err := parseHolidays(list)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: holidays %s/%s: %v", ErrInvalidConfig, yearKey, group, err)
			}
			if group == nationalKey {
				yh.National = holidays
			} else {
				yh.ByState[group] = holidays
			}
		}
		cfg.Holidays[year] = yh
	}

	cfg.LoadSkips = skips
	return cfg, skips, nil
}

func parseRates(raw json.RawMessage) ([]decimal.Decimal, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '[' {
		var tiers []decimal.Decimal
		if err := json.Unmarshal(raw, &tiers); err != nil {
			return nil, err
		}
		return tiers, nil
	}
	var rate decimal.Decimal
	if err := json.Unmarshal(raw, &rate); err != nil {
		return nil, err
	}
	return []decimal.Decimal{rate}, nil
}

func parseBreaks(bj BreaksJSON) (award.BreakSchedule, error) {
	s := award.BreakSchedule{MealBreakMinutes: bj.MealBreak.MinDuration}
	for i, rj := range bj.BreakSchedule {
		if len(rj.HoursRange) != 2 || rj.HoursRange[0] == nil {
			return award.BreakSchedule{}, fmt.Errorf("%w: break rule %d: hoursRange must be [low, high|null]", ErrInvalidConfig, i)
		}
		rule := award.BreakRule{Low: *rj.HoursRange[0], MealBreaks: rj.MealBreaks}
		if hi := rj.HoursRange[1]; hi != nil {
			h := *hi
			rule.High = &h
		}
		s.Rules = append(s.Rules, rule)
	}
	return s, nil
}

func parseHolidays(list []HolidayJSON) ([]award.Holiday, error) {
	out := make([]award.Holiday, 0, len(list))
	for _, hj := range list {
		d, err := payroll.ParseDate(hj.Date)
		if err != nil {
			return nil, err
		}
		regional, _ := hj.Regional.(bool)
		out = append(out, award.Holiday{Date: d, Name: hj.Name, Regional: regional})
	}
	return out, nil
}
