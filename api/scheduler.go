/*
scheduler.go - Automated recompute scheduler

PURPOSE:
  Periodically checks whether shifts, employers or the award config have
  changed since the last recompute and, if so, reprices everything.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Compares the store revision with the one seen by the last run
  - A failed run still records the revision, so a broken config is not
    retried every tick; the next edit triggers a new attempt
  - Runs are recorded by the engine for audit and UI display

CONFIGURATION:
  - CheckInterval: How often to check (default: 30 seconds)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRecomputeScheduler(store, eng)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerRecompute endpoint (manual recompute)
  - engine/engine.go: Recompute
*/
package api

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/warp/casual-pay/engine"
)

// Revisioner reports a counter that changes whenever recompute inputs do.
type Revisioner interface {
	Revision(ctx context.Context) (int64, error)
}

// RecomputeScheduler reruns the engine when its inputs change.
type RecomputeScheduler struct {
	Store         Revisioner
	Engine        *engine.Engine
	CheckInterval time.Duration
	Enabled       bool

	ticker  *time.Ticker
	stop    chan bool
	wg      sync.WaitGroup
	mu      sync.Mutex
	checkMu sync.Mutex

	seen    int64
	hasSeen bool
}

// NewRecomputeScheduler creates a new scheduler.
func NewRecomputeScheduler(store Revisioner, eng *engine.Engine) *RecomputeScheduler {
	return &RecomputeScheduler{
		Store:         store,
		Engine:        eng,
		CheckInterval: 30 * time.Second,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *RecomputeScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled || rs.CheckInterval <= 0 {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler.
func (rs *RecomputeScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *RecomputeScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.checkAndProcess()

	for {
		select {
		case <-rs.ticker.C:
			rs.checkAndProcess()
		case <-rs.stop:
			return
		}
	}
}

// checkAndProcess recomputes if the revision moved. It reports whether a
// run was attempted.
func (rs *RecomputeScheduler) checkAndProcess() bool {
	rs.checkMu.Lock()
	defer rs.checkMu.Unlock()

	ctx := context.Background()

	rev, err := rs.Store.Revision(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error reading revision: %v", err)
		return false
	}
	if rs.hasSeen && rev == rs.seen {
		return false
	}

	log.Printf("[Scheduler] Inputs changed (revision %d), recomputing", rev)

	// Edits made during the run bump the revision again; the next tick sees them.
	rs.seen, rs.hasSeen = rev, true

	report, err := rs.Engine.Recompute(ctx)
	switch {
	case errors.Is(err, engine.ErrConfigMissing):
		log.Println("[Scheduler] No award configuration loaded; waiting for one")
	case err != nil:
		log.Printf("[Scheduler] Recompute failed: %v", err)
	default:
		log.Printf("[Scheduler] Completed run %s: %d priced, %d failed, %d periods, %d skips",
			report.ID, report.ShiftsPriced, len(report.Failures), report.PeriodsUpdated, len(report.Skips))
	}
	return true
}

// RunNow triggers an immediate check (for testing/admin).
func (rs *RecomputeScheduler) RunNow() bool {
	return rs.checkAndProcess()
}
