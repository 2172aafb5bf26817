/*
store.go - Persistence interface for the recompute engine

PURPOSE:
  Defines what the engine reads and writes. Shifts, employer profiles and
  the award configuration are the source of truth; priced shifts and pay
  periods are derived and replaced wholesale on every run.

KEY INTERFACES:
  Store:         inputs + replace-all writes for derived records
  DerivedWriter: optional single-step write of a whole run
  RunLog:        optional record of each recompute run

REPLACE SEMANTICS:
  ReplacePricedShifts and ReplacePayPeriods overwrite everything previously
  derived (for one employer, in the pay-period case). There is no partial
  update path: a recompute is always a full recompute. Nothing is written
  until every employer has been aggregated; a store implementing
  DerivedWriter takes all of it in one transaction.

IMPLEMENTATIONS:
  - store/sqlite:   server persistence
  - store/memory:   tests and demos
  - store/jsonfile: the JSON data directory (cmd/payrun)
*/
package engine

import (
	"context"
	"errors"

	"github.com/warp/casual-pay/award"
	"github.com/warp/casual-pay/payroll"
)

// ErrNotFound is returned by stores for a missing shift or employer.
var ErrNotFound = errors.New("not found")

// Store is everything Recompute needs.
type Store interface {
	// Shifts returns every logged shift in log order.
	Shifts(ctx context.Context) ([]payroll.Shift, error)

	Employers(ctx context.Context) ([]payroll.EmployerProfile, error)

	// AwardConfig returns nil with no error when nothing is configured.
	AwardConfig(ctx context.Context) (*award.Config, error)

	// PayPeriods returns the periods already recorded for an employer.
	// Their bounds and tracked categories are reused; their totals are
	// ignored.
	PayPeriods(ctx context.Context, employer payroll.EmployerID) ([]payroll.PayPeriod, error)

	ReplacePricedShifts(ctx context.Context, shifts []payroll.PricedShift) error
	ReplacePayPeriods(ctx context.Context, employer payroll.EmployerID, periods []payroll.PayPeriod) error
}

// DerivedWriter replaces the priced shifts and the listed employers' pay
// periods in one step, so readers see either the old run or the new one.
// Recompute prefers it over the separate Replace calls when available.
type DerivedWriter interface {
	ReplaceDerived(ctx context.Context, priced []payroll.PricedShift, periods map[payroll.EmployerID][]payroll.PayPeriod) error
}

// RunLog records finished runs. Stores that keep history implement it.
type RunLog interface {
	SaveRun(ctx context.Context, run *RunReport) error
}
