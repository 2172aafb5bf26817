// Package memory is an in-memory store for tests and demos.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/casual-pay/award"
	"github.com/warp/casual-pay/engine"
	"github.com/warp/casual-pay/factory"
	"github.com/warp/casual-pay/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu        sync.RWMutex
	shifts    []payroll.Shift
	employers map[payroll.EmployerID]payroll.EmployerProfile
	configDoc []byte
	config    *award.Config
	priced    []payroll.PricedShift
	periods   map[payroll.EmployerID][]payroll.PayPeriod
	runs      []engine.RunReport
	revision  int64
}

func New() *Store {
	return &Store{
		employers: make(map[payroll.EmployerID]payroll.EmployerProfile),
		periods:   make(map[payroll.EmployerID][]payroll.PayPeriod),
	}
}

// =============================================================================
// INPUTS
// =============================================================================

func (s *Store) Shifts(_ context.Context) ([]payroll.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]payroll.Shift(nil), s.shifts...), nil
}

// SaveShifts inserts shifts, replacing any with the same ID in place.
func (s *Store) SaveShifts(_ context.Context, shifts []payroll.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sh := range shifts {
		replaced := false
		for i := range s.shifts {
			if s.shifts[i].ID == sh.ID {
				s.shifts[i] = sh
				replaced = true
				break
			}
		}
		if !replaced {
			s.shifts = append(s.shifts, sh)
		}
	}
	s.revision++
	return nil
}

func (s *Store) DeleteShift(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.shifts {
		if s.shifts[i].ID == id {
			s.shifts = append(s.shifts[:i], s.shifts[i+1:]...)
			s.revision++
			return nil
		}
	}
	return engine.ErrNotFound
}

// Employers returns profiles ordered by ID.
func (s *Store) Employers(_ context.Context) ([]payroll.EmployerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]payroll.EmployerProfile, 0, len(s.employers))
	for _, e := range s.employers {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveEmployer(_ context.Context, e payroll.EmployerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employers[e.ID] = e
	s.revision++
	return nil
}

func (s *Store) DeleteEmployer(_ context.Context, id payroll.EmployerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employers[id]; !ok {
		return engine.ErrNotFound
	}
	delete(s.employers, id)
	delete(s.periods, id)
	s.revision++
	return nil
}

func (s *Store) AwardConfig(_ context.Context) (*award.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config, nil
}

// AwardConfigDoc returns the document last saved, or nil.
func (s *Store) AwardConfigDoc(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.configDoc...), nil
}

// SaveAwardConfig validates and stores a config.json document. Skips from
// parsing are returned for the caller to report.
func (s *Store) SaveAwardConfig(_ context.Context, doc []byte) ([]payroll.Skip, error) {
	cfg, skips, err := factory.ParseConfig(doc)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.configDoc = append([]byte(nil), doc...)
	s.config = cfg
	s.revision++
	return skips, nil
}

// Revision increases on every change to shifts, employers or config.
func (s *Store) Revision(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision, nil
}

// =============================================================================
// DERIVED RECORDS
// =============================================================================

func (s *Store) PricedShifts(_ context.Context) ([]payroll.PricedShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]payroll.PricedShift(nil), s.priced...), nil
}

func (s *Store) ReplacePricedShifts(_ context.Context, shifts []payroll.PricedShift) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priced = append([]payroll.PricedShift(nil), shifts...)
	return nil
}

func (s *Store) PayPeriods(_ context.Context, employer payroll.EmployerID) ([]payroll.PayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]payroll.PayPeriod(nil), s.periods[employer]...), nil
}

func (s *Store) ReplacePayPeriods(_ context.Context, employer payroll.EmployerID, periods []payroll.PayPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periods[employer] = append([]payroll.PayPeriod(nil), periods...)
	return nil
}

// ReplaceDerived implements engine.DerivedWriter.
func (s *Store) ReplaceDerived(_ context.Context, priced []payroll.PricedShift, periods map[payroll.EmployerID][]payroll.PayPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priced = append([]payroll.PricedShift(nil), priced...)
	for id, ps := range periods {
		s.periods[id] = append([]payroll.PayPeriod(nil), ps...)
	}
	return nil
}

// SaveRun implements engine.RunLog.
func (s *Store) SaveRun(_ context.Context, run *engine.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *run)
	return nil
}

// Runs returns up to limit runs, newest first. limit <= 0 means all.
func (s *Store) Runs(_ context.Context, limit int) ([]engine.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]engine.RunReport, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		out = append(out, s.runs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Reset drops every record.
func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shifts = nil
	s.employers = make(map[payroll.EmployerID]payroll.EmployerProfile)
	s.configDoc = nil
	s.config = nil
	s.priced = nil
	s.periods = make(map[payroll.EmployerID][]payroll.PayPeriod)
	s.runs = nil
	s.revision++
	return nil
}
