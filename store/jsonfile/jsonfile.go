/*
Package jsonfile keeps pay data in a directory of JSON documents.

FILES:
  config.json      award configuration (read)
  user.json        employer profiles (read)
  shifts.json      logged shifts (read)
  shiftspay.json   priced shifts (written)
  payperiods.json  pay periods (read, then rewritten)

A missing input file is treated as empty, except config.json whose absence
makes AwardConfig return nil. Outputs are written with two-space indent
through a temp file and rename, so a reader never sees half a document.

USAGE:
  dir := jsonfile.Open("./data")
  report, err := engine.New(dir, logger).Recompute(ctx)
*/
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/warp/casual-pay/award"
	"github.com/warp/casual-pay/factory"
	"github.com/warp/casual-pay/payroll"
)

const (
	ConfigFile     = "config.json"
	UserFile       = "user.json"
	ShiftsFile     = "shifts.json"
	ShiftsPayFile  = "shiftspay.json"
	PayPeriodsFile = "payperiods.json"
)

// Dir implements engine.Store over a data directory.
type Dir struct {
	Path string

	mu      sync.Mutex
	periods map[payroll.EmployerID][]payroll.PayPeriod
}

func Open(path string) *Dir {
	return &Dir{Path: path}
}

func (d *Dir) read(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(d.Path, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

func (d *Dir) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(d.Path, "."+name+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return os.Rename(tmp.Name(), filepath.Join(d.Path, name))
}

func (d *Dir) Shifts(_ context.Context) ([]payroll.Shift, error) {
	data, err := d.read(ShiftsFile)
	if err != nil || data == nil {
		return nil, err
	}
	return factory.ParseShifts(data)
}

func (d *Dir) Employers(_ context.Context) ([]payroll.EmployerProfile, error) {
	data, err := d.read(UserFile)
	if err != nil || data == nil {
		return nil, err
	}
	return factory.ParseUser(data)
}

// ConfigDoc returns config.json as stored, or nil if there is none.
func (d *Dir) ConfigDoc() ([]byte, error) {
	return d.read(ConfigFile)
}

func (d *Dir) AwardConfig(_ context.Context) (*award.Config, error) {
	data, err := d.read(ConfigFile)
	if err != nil || data == nil {
		return nil, err
	}
	cfg, _, err := factory.ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ConfigFile, err)
	}
	return cfg, nil
}

// loadPeriods reads payperiods.json once; later writes go to the cache.
func (d *Dir) loadPeriods() error {
	if d.periods != nil {
		return nil
	}
	data, err := d.read(PayPeriodsFile)
	if err != nil {
		return err
	}
	d.periods = make(map[payroll.EmployerID][]payroll.PayPeriod)
	if data == nil {
		return nil
	}
	parsed, err := factory.ParsePayPeriods(data)
	if err != nil {
		return fmt.Errorf("%s: %w", PayPeriodsFile, err)
	}
	d.periods = parsed
	return nil
}

func (d *Dir) PayPeriods(_ context.Context, employer payroll.EmployerID) ([]payroll.PayPeriod, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.loadPeriods(); err != nil {
		return nil, err
	}
	return append([]payroll.PayPeriod(nil), d.periods[employer]...), nil
}

// ReplacePricedShifts rewrites shiftspay.json.
func (d *Dir) ReplacePricedShifts(_ context.Context, shifts []payroll.PricedShift) error {
	doc := factory.PricedShiftsJSON{Shifts: make([]factory.PricedShiftJSON, 0, len(shifts))}
	for _, p := range shifts {
		doc.Shifts = append(doc.Shifts, factory.ToPricedShiftJSON(p))
	}
	return d.write(ShiftsPayFile, doc)
}

// ReplacePayPeriods replaces one employer's periods and rewrites
// payperiods.json with every employer, ordered by ID.
func (d *Dir) ReplacePayPeriods(_ context.Context, employer payroll.EmployerID, periods []payroll.PayPeriod) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.loadPeriods(); err != nil {
		return err
	}
	d.periods[employer] = append([]payroll.PayPeriod(nil), periods...)

	ids := make([]payroll.EmployerID, 0, len(d.periods))
	for id := range d.periods {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	doc := factory.PayPeriodsJSON{PayPeriods: make([]factory.EmployerPeriodsJSON, 0, len(ids))}
	for _, id := range ids {
		ep := factory.EmployerPeriodsJSON{EmployerID: string(id), Periods: []factory.PayPeriodJSON{}}
		for _, p := range d.periods[id] {
			ep.Periods = append(ep.Periods, factory.ToPayPeriodJSON(p))
		}
		doc.PayPeriods = append(doc.PayPeriods, ep)
	}
	return d.write(PayPeriodsFile, doc)
}
