/*
Package sqlite provides a SQLite-backed store for the pay engine.

PURPOSE:
  Persists everything the server needs between restarts: logged shifts,
  employer profiles, the award configuration document, the derived priced
  shifts and pay periods, and a history of recompute runs.

INTERFACES IMPLEMENTED:
  engine.Store:  inputs and replace-all derived writes
  engine.RunLog: recompute history
  api.Store:     CRUD used by the HTTP handlers

KEY TABLES:
  shifts:         logged shifts, rowid keeps log order
  employers:      employer profiles as user.json entries
  award_config:   single-row config.json document
  priced_shifts:  derived, replaced on every run
  pay_periods:    derived, replaced per employer on every run
  recompute_runs: one row per run
  meta:           input revision counter

RECORD ENCODING:
  Rows carry their key columns plus a JSON document in the factory layout
  (the same shape the data files and API use). Keeping one encoding means
  a priced shift read from here is indistinguishable from one read from
  shiftspay.json.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

USAGE:
  store, err := sqlite.New("./data/casualpay.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/casual-pay/award"
	"github.com/warp/casual-pay/engine"
	"github.com/warp/casual-pay/factory"
	"github.com/warp/casual-pay/payroll"
)

// Store implements the engine and API storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		employer_id TEXT NOT NULL,
		date TEXT NOT NULL,
		doc_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shifts_employer_date
		ON shifts(employer_id, date);

	CREATE TABLE IF NOT EXISTS employers (
		id TEXT PRIMARY KEY,
		doc_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS award_config (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		doc_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Derived: replaced wholesale on every recompute
	CREATE TABLE IF NOT EXISTS priced_shifts (
		seq INTEGER PRIMARY KEY,
		shift_id TEXT NOT NULL,
		employer_id TEXT NOT NULL,
		date TEXT NOT NULL,
		doc_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pay_periods (
		employer_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		pay_date TEXT NOT NULL,
		doc_json TEXT NOT NULL,
		PRIMARY KEY (employer_id, start_date)
	);

	CREATE INDEX IF NOT EXISTS idx_pay_periods_pay_date
		ON pay_periods(pay_date);

	CREATE TABLE IF NOT EXISTS recompute_runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		shifts_priced INTEGER NOT NULL DEFAULT 0,
		periods_updated INTEGER NOT NULL DEFAULT 0,
		failures_json TEXT,
		skips_json TEXT,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_recompute_runs_started
		ON recompute_runs(started_at);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);

	INSERT OR IGNORE INTO meta (key, value) VALUES ('revision', 0);
	`

	_, err := s.db.Exec(schema)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func bumpRevision(ctx context.Context, db execer) error {
	_, err := db.ExecContext(ctx, `UPDATE meta SET value = value + 1 WHERE key = 'revision'`)
	return err
}

// runTimeLayout is fixed width so started_at sorts as text.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// =============================================================================
// SHIFTS
// =============================================================================

// Shifts returns every logged shift in insertion order.
func (s *Store) Shifts(ctx context.Context) ([]payroll.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT doc_json FROM shifts ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	var out []payroll.Shift
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var sj factory.ShiftJSON
		if err := json.Unmarshal([]byte(doc), &sj); err != nil {
			return nil, fmt.Errorf("corrupt shift row: %w", err)
		}
		sh, err := factory.FromShiftJSON(sj)
		if err != nil {
			return nil, fmt.Errorf("corrupt shift row: %w", err)
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

// SaveShifts inserts shifts atomically; an existing ID is overwritten in
// place and keeps its position.
func (s *Store) SaveShifts(ctx context.Context, shifts []payroll.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO shifts (id, employer_id, date, doc_json, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employer_id = excluded.employer_id,
			date = excluded.date,
			doc_json = excluded.doc_json
	`
	ts := now()
	for _, sh := range shifts {
		doc, err := json.Marshal(factory.ToShiftJSON(sh))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, sh.ID, string(sh.EmployerID), sh.Date.String(), string(doc), ts); err != nil {
			return fmt.Errorf("failed to save shift %s: %w", sh.ID, err)
		}
	}
	if err := bumpRevision(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) DeleteShift(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteRow(ctx, `DELETE FROM shifts WHERE id = ?`, id)
}

func (s *Store) deleteRow(ctx context.Context, query string, args ...any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return engine.ErrNotFound
	}
	if err := bumpRevision(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// EMPLOYERS
// =============================================================================

func (s *Store) Employers(ctx context.Context) ([]payroll.EmployerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT doc_json FROM employers ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query employers: %w", err)
	}
	defer rows.Close()

	var out []payroll.EmployerProfile
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var ej factory.EmployerJSON
		if err := json.Unmarshal([]byte(doc), &ej); err != nil {
			return nil, fmt.Errorf("corrupt employer row: %w", err)
		}
		e, err := factory.FromEmployerJSON(ej)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) SaveEmployer(ctx context.Context, e payroll.EmployerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := json.Marshal(factory.ToEmployerJSON(e))
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO employers (id, doc_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET doc_json = excluded.doc_json, updated_at = excluded.updated_at
	`, string(e.ID), string(doc), now())
	if err != nil {
		return fmt.Errorf("failed to save employer: %w", err)
	}
	if err := bumpRevision(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteEmployer removes the profile and its derived pay periods.
func (s *Store) DeleteEmployer(ctx context.Context, id payroll.EmployerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM pay_periods WHERE employer_id = ?`, string(id)); err != nil {
		return err
	}
	return s.deleteRow(ctx, `DELETE FROM employers WHERE id = ?`, string(id))
}

// =============================================================================
// AWARD CONFIG
// =============================================================================

// AwardConfig parses the stored config document, or returns nil if none
// has been saved.
func (s *Store) AwardConfig(ctx context.Context) (*award.Config, error) {
	doc, err := s.AwardConfigDoc(ctx)
	if err != nil || doc == nil {
		return nil, err
	}
	cfg, _, err := factory.ParseConfig(doc)
	return cfg, err
}

func (s *Store) AwardConfigDoc(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc_json FROM award_config WHERE id = 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(doc), nil
}

// SaveAwardConfig validates doc and stores it as the current config.
func (s *Store) SaveAwardConfig(ctx context.Context, doc []byte) ([]payroll.Skip, error) {
	_, skips, err := factory.ParseConfig(doc)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO award_config (id, doc_json, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET doc_json = excluded.doc_json, updated_at = excluded.updated_at
	`, string(doc), now())
	if err != nil {
		return nil, fmt.Errorf("failed to save award config: %w", err)
	}
	if err := bumpRevision(ctx, tx); err != nil {
		return nil, err
	}
	return skips, tx.Commit()
}

// Revision increases on every write to shifts, employers or config.
func (s *Store) Revision(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rev int64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'revision'`).Scan(&rev)
	return rev, err
}

// =============================================================================
// DERIVED RECORDS
// =============================================================================

func (s *Store) PricedShifts(ctx context.Context) ([]payroll.PricedShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT doc_json FROM priced_shifts ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query priced shifts: %w", err)
	}
	defer rows.Close()

	var out []payroll.PricedShift
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var pj factory.PricedShiftJSON
		if err := json.Unmarshal([]byte(doc), &pj); err != nil {
			return nil, fmt.Errorf("corrupt priced shift row: %w", err)
		}
		p, err := factory.FromPricedShiftJSON(pj)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ReplacePricedShifts(ctx context.Context, shifts []payroll.PricedShift) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return replacePricedShifts(ctx, tx, shifts)
	})
}

func replacePricedShifts(ctx context.Context, tx *sql.Tx, shifts []payroll.PricedShift) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM priced_shifts`); err != nil {
		return err
	}
	for i, p := range shifts {
		doc, err := json.Marshal(factory.ToPricedShiftJSON(p))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO priced_shifts (seq, shift_id, employer_id, date, doc_json) VALUES (?, ?, ?, ?, ?)`,
			i, p.ID, string(p.EmployerID), p.Date.String(), string(doc))
		if err != nil {
			return fmt.Errorf("failed to save priced shift %s: %w", p.ID, err)
		}
	}
	return nil
}

// PayPeriods returns an employer's periods ordered by start date.
func (s *Store) PayPeriods(ctx context.Context, employer payroll.EmployerID) ([]payroll.PayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_json FROM pay_periods WHERE employer_id = ? ORDER BY start_date ASC`, string(employer))
	if err != nil {
		return nil, fmt.Errorf("failed to query pay periods: %w", err)
	}
	defer rows.Close()

	var out []payroll.PayPeriod
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var pj factory.PayPeriodJSON
		if err := json.Unmarshal([]byte(doc), &pj); err != nil {
			return nil, fmt.Errorf("corrupt pay period row: %w", err)
		}
		p, err := factory.FromPayPeriodJSON(employer, pj)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ReplacePayPeriods(ctx context.Context, employer payroll.EmployerID, periods []payroll.PayPeriod) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return replacePayPeriods(ctx, tx, employer, periods)
	})
}

// ReplaceDerived implements engine.DerivedWriter: priced shifts and every
// listed employer's periods are committed together or not at all.
func (s *Store) ReplaceDerived(ctx context.Context, priced []payroll.PricedShift, periods map[payroll.EmployerID][]payroll.PayPeriod) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := replacePricedShifts(ctx, tx, priced); err != nil {
			return err
		}
		for employer, ps := range periods {
			if err := replacePayPeriods(ctx, tx, employer, ps); err != nil {
				return err
			}
		}
		return nil
	})
}

func replacePayPeriods(ctx context.Context, tx *sql.Tx, employer payroll.EmployerID, periods []payroll.PayPeriod) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM pay_periods WHERE employer_id = ?`, string(employer)); err != nil {
		return err
	}
	for _, p := range periods {
		doc, err := json.Marshal(factory.ToPayPeriodJSON(p))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO pay_periods (employer_id, start_date, end_date, pay_date, doc_json)
			VALUES (?, ?, ?, ?, ?)
		`, string(employer), p.StartDate.String(), p.EndDate.String(), p.PayDate.String(), string(doc))
		if err != nil {
			return fmt.Errorf("failed to save pay period %s: %w", p, err)
		}
	}
	return nil
}

// inTx runs fn in a write transaction, committing only if it succeeds.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// RECOMPUTE RUNS (engine.RunLog)
// =============================================================================

func (s *Store) SaveRun(ctx context.Context, r *engine.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	failures, err := json.Marshal(r.Failures)
	if err != nil {
		return err
	}
	skips, err := json.Marshal(r.Skips)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recompute_runs (id, status, shifts_priced, periods_updated,
			failures_json, skips_json, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			shifts_priced = excluded.shifts_priced,
			periods_updated = excluded.periods_updated,
			failures_json = excluded.failures_json,
			skips_json = excluded.skips_json,
			error = excluded.error,
			completed_at = excluded.completed_at
	`,
		r.ID, string(r.Status), r.ShiftsPriced, r.PeriodsUpdated,
		string(failures), string(skips), nullString(r.Error),
		r.StartedAt.UTC().Format(runTimeLayout), r.CompletedAt.UTC().Format(runTimeLayout),
	)
	return err
}

// Runs returns up to limit runs, newest first. limit <= 0 means all.
func (s *Store) Runs(ctx context.Context, limit int) ([]engine.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, status, shifts_priced, periods_updated, failures_json, skips_json,
			error, started_at, completed_at
		FROM recompute_runs
		ORDER BY started_at DESC
	`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []engine.RunReport
	for rows.Next() {
		var r engine.RunReport
		var status string
		var failures, skips, runErr, startedAt, completedAt sql.NullString
		if err := rows.Scan(&r.ID, &status, &r.ShiftsPriced, &r.PeriodsUpdated,
			&failures, &skips, &runErr, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		r.Status = engine.RunStatus(status)
		r.Error = runErr.String
		r.StartedAt, _ = time.Parse(runTimeLayout, startedAt.String)
		r.CompletedAt, _ = time.Parse(runTimeLayout, completedAt.String)
		if failures.Valid {
			_ = json.Unmarshal([]byte(failures.String), &r.Failures)
		}
		if skips.Valid {
			_ = json.Unmarshal([]byte(skips.String), &r.Skips)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Reset drops every record. Used by tests and the dev reset endpoint.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"shifts", "employers", "award_config", "priced_shifts", "pay_periods", "recompute_runs"}
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("failed to reset %s: %w", t, err)
		}
	}
	return bumpRevision(ctx, s.db)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

