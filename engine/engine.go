/*
Package engine runs the full pay recompute over a store.

PURPOSE:
  Ties the pure packages together: load shifts, employers and the award
  config; price every shift; cover each employer's shifts with pay periods;
  aggregate the periods; write both derived record sets back. The result of
  a run is summarised in a RunReport.

RUN SEQUENCE:
  1. Load award config (ErrConfigMissing if none), employers, shifts
  2. shiftpay.Calculator.PriceAll - per-shift failures are recorded
  3. Per employer (by ID): period.Cover existing periods over the
     employer's priced shift dates, Aggregator.AggregateAll
  4. Write priced shifts and every employer's periods together
     (DerivedWriter when the store has it)
  5. RunLog.SaveRun, when the store keeps history

FAILURE MODEL:
  - Missing employer: the shift is left out and listed in the report
  - Lookup misses, including allowances dropped when the config was
    loaded: logged at Warn and listed in the report as skips
  - Unsupported cadence or a store error: the run stops and Recompute
    returns the error; the report records it. Derived records are left
    as the last successful run wrote them

CONCURRENCY:
  Runs are serialised by a mutex so a scheduled run and a manual trigger
  never interleave their writes.
*/
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/casual-pay/payroll"
	"github.com/warp/casual-pay/period"
	"github.com/warp/casual-pay/shiftpay"
)

// ErrConfigMissing is returned when the store has no award configuration.
var ErrConfigMissing = errors.New("award configuration not loaded")

type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Failure is a shift that could not be priced.
type Failure struct {
	ShiftID    string
	Date       payroll.Date
	EmployerID payroll.EmployerID
	Error      string
}

// RunReport summarises one recompute.
type RunReport struct {
	ID             string
	StartedAt      time.Time
	CompletedAt    time.Time
	Status         RunStatus
	ShiftsPriced   int
	PeriodsUpdated int
	Failures       []Failure
	Skips          []payroll.Skip
	Error          string
}

// Engine recomputes derived pay records.
type Engine struct {
	Store Store

	// Tax overrides the default withholding scales. May be nil.
	Tax period.Withholder

	Logger *slog.Logger

	mu  sync.Mutex
	now func() time.Time
}

// New returns an engine over store. A nil logger uses slog.Default().
func New(store Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Store: store, Logger: logger, now: time.Now}
}

// Recompute reprices every shift and rebuilds every pay period. The
// returned report is non-nil even when err is not.
func (e *Engine) Recompute(ctx context.Context) (*RunReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now
	if now == nil {
		now = time.Now
	}
	report := &RunReport{ID: uuid.NewString(), StartedAt: now().UTC()}

	err := e.run(ctx, report)

	report.CompletedAt = now().UTC()
	report.Status = RunCompleted
	if err != nil {
		report.Status = RunFailed
		report.Error = err.Error()
		e.Logger.Error("recompute failed", slog.String("run", report.ID), slog.Any("error", err))
	} else {
		e.Logger.Info("recompute completed",
			slog.String("run", report.ID),
			slog.Int("priced", report.ShiftsPriced),
			slog.Int("failed", len(report.Failures)),
			slog.Int("periods", report.PeriodsUpdated),
			slog.Int("skips", len(report.Skips)),
		)
	}

	if runs, ok := e.Store.(RunLog); ok {
		if saveErr := runs.SaveRun(ctx, report); saveErr != nil {
			e.Logger.Warn("failed to record run", slog.String("run", report.ID), slog.Any("error", saveErr))
		}
	}
	return report, err
}

func (e *Engine) run(ctx context.Context, report *RunReport) error {
	cfg, err := e.Store.AwardConfig(ctx)
	if err != nil {
		return fmt.Errorf("load award config: %w", err)
	}
	if cfg == nil {
		return ErrConfigMissing
	}
	employers, err := e.Store.Employers(ctx)
	if err != nil {
		return fmt.Errorf("load employers: %w", err)
	}
	shifts, err := e.Store.Shifts(ctx)
	if err != nil {
		return fmt.Errorf("load shifts: %w", err)
	}

	onSkip := payroll.LogSkips(e.Logger, func(s payroll.Skip) {
		report.Skips = append(report.Skips, s)
	})
	for _, s := range cfg.LoadSkips {
		onSkip.Report(s)
	}

	calc := shiftpay.NewCalculator(cfg, employers)
	calc.OnSkip = onSkip
	priced, failures := calc.PriceAll(shifts)
	for _, f := range failures {
		e.Logger.Warn("shift not priced",
			slog.String("shift", f.Shift.ID),
			slog.String("date", f.Shift.Date.String()),
			slog.Any("error", f.Err),
		)
		report.Failures = append(report.Failures, Failure{
			ShiftID:    f.Shift.ID,
			Date:       f.Shift.Date,
			EmployerID: f.Shift.EmployerID,
			Error:      f.Err.Error(),
		})
	}

	agg := period.NewAggregator(cfg)
	if e.Tax != nil {
		agg.Tax = e.Tax
	}
	agg.OnSkip = onSkip

	sorted := append([]payroll.EmployerProfile(nil), employers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	// Every employer is aggregated before anything is written.
	periods := make(map[payroll.EmployerID][]payroll.PayPeriod, len(sorted))
	updated := 0
	for _, emp := range sorted {
		var dates []payroll.Date
		for _, p := range priced {
			if p.EmployerID == emp.ID {
				dates = append(dates, p.Date)
			}
		}

		existing, err := e.Store.PayPeriods(ctx, emp.ID)
		if err != nil {
			return fmt.Errorf("load pay periods for %s: %w", emp.ID, err)
		}
		if len(existing) == 0 && len(dates) == 0 {
			continue
		}

		covered, err := period.Cover(existing, emp, dates)
		if err != nil {
			return fmt.Errorf("employer %s: %w", emp.ID, err)
		}
		totals, err := agg.AggregateAll(covered, emp, priced)
		if err != nil {
			return fmt.Errorf("employer %s: %w", emp.ID, err)
		}
		periods[emp.ID] = totals
		updated += len(totals)
	}

	if err := e.save(ctx, sorted, priced, periods); err != nil {
		return err
	}
	report.ShiftsPriced = len(priced)
	report.PeriodsUpdated = updated
	return nil
}

// save writes a finished run's derived records.
func (e *Engine) save(ctx context.Context, employers []payroll.EmployerProfile, priced []payroll.PricedShift, periods map[payroll.EmployerID][]payroll.PayPeriod) error {
	if w, ok := e.Store.(DerivedWriter); ok {
		if err := w.ReplaceDerived(ctx, priced, periods); err != nil {
			return fmt.Errorf("save derived records: %w", err)
		}
		return nil
	}

	if err := e.Store.ReplacePricedShifts(ctx, priced); err != nil {
		return fmt.Errorf("save priced shifts: %w", err)
	}
	for _, emp := range employers {
		totals, ok := periods[emp.ID]
		if !ok {
			continue
		}
		if err := e.Store.ReplacePayPeriods(ctx, emp.ID, totals); err != nil {
			return fmt.Errorf("save pay periods for %s: %w", emp.ID, err)
		}
	}
	return nil
}
