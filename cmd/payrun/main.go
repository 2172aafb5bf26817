/*
main.go - Batch pay run over a data directory

PURPOSE:
  Reprices every shift in a data directory and rewrites its derived
  documents, without a server or database.

INPUTS (in -data):
  config.json, user.json, shifts.json, payperiods.json (optional)

OUTPUTS (in -data):
  shiftspay.json, payperiods.json

COMMAND-LINE FLAGS:
  -data      Data directory (default ./data)
  -timesheet xlsx timesheet whose shifts are priced alongside shifts.json
  -export    Also write pay periods to this xlsx file
  -v         Debug logging

EXIT STATUS:
  0 on success, 1 if the run failed. Shifts that could not be priced are
  listed but do not fail the run.

EXAMPLES:
  ./payrun -data=./data
  ./payrun -data=./data -timesheet=june.xlsx -export=periods.xlsx
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/warp/casual-pay/engine"
	"github.com/warp/casual-pay/payroll"
	"github.com/warp/casual-pay/store/jsonfile"
	"github.com/warp/casual-pay/store/xlsx"
)

// withTimesheet adds imported shifts to the directory's shifts.json.
type withTimesheet struct {
	*jsonfile.Dir
	extra []payroll.Shift
}

func (w withTimesheet) Shifts(ctx context.Context) ([]payroll.Shift, error) {
	shifts, err := w.Dir.Shifts(ctx)
	if err != nil {
		return nil, err
	}
	return append(shifts, w.extra...), nil
}

func main() {
	dataDir := flag.String("data", "./data", "Data directory")
	timesheet := flag.String("timesheet", "", "xlsx timesheet to price with shifts.json")
	export := flag.String("export", "", "Write pay periods to this xlsx file")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(context.Background(), logger, *dataDir, *timesheet, *export); err != nil {
		log.Printf("[PayRun] %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, dataDir, timesheet, export string) error {
	dir := jsonfile.Open(dataDir)
	var store engine.Store = dir

	if timesheet != "" {
		f, err := os.Open(timesheet)
		if err != nil {
			return err
		}
		extra, err := xlsx.ReadShifts(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", timesheet, err)
		}
		log.Printf("[PayRun] %d shifts from %s", len(extra), timesheet)
		store = withTimesheet{Dir: dir, extra: extra}
	}

	report, err := engine.New(store, logger).Recompute(ctx)
	if err != nil {
		return err
	}
	for _, s := range report.Skips {
		if s.Reason == payroll.SkipUnsupportedAllowance {
			log.Printf("[PayRun] Config: skipped allowance %q (type %s)", s.Subject, s.Ref)
		}
	}
	for _, f := range report.Failures {
		log.Printf("[PayRun] Not priced: shift %s on %s (%s)", f.ShiftID, f.Date, f.Error)
	}
	log.Printf("[PayRun] %d shifts priced, %d pay periods written to %s",
		report.ShiftsPriced, report.PeriodsUpdated, dataDir)

	if export == "" {
		return nil
	}
	return exportPeriods(ctx, dir, export)
}

func exportPeriods(ctx context.Context, dir *jsonfile.Dir, path string) error {
	employers, err := dir.Employers(ctx)
	if err != nil {
		return err
	}
	byEmployer := make(map[payroll.EmployerID][]payroll.PayPeriod, len(employers))
	for _, e := range employers {
		periods, err := dir.PayPeriods(ctx, e.ID)
		if err != nil {
			return err
		}
		byEmployer[e.ID] = periods
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := xlsx.WritePayPeriods(f, byEmployer); err != nil {
		f.Close()
		return err
	}
	log.Printf("[PayRun] Pay periods exported to %s", path)
	return f.Close()
}
