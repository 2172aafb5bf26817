/*
handlers.go - HTTP API handlers for the casual pay engine

PURPOSE:
  Exposes the pay engine via REST API. Handles HTTP request/response and
  JSON serialization, and delegates to the store, engine and tax packages.

ENDPOINTS:
  Employers:
    GET    /api/employers                     List employer profiles
    POST   /api/employers                     Create employer (user.json entry)
    GET    /api/employers/{id}                Get employer
    PUT    /api/employers/{id}                Replace employer
    DELETE /api/employers/{id}                Delete employer and its periods
    GET    /api/employers/{id}/pay-periods    Pay periods for one employer

  Shifts:
    GET    /api/shifts                        Logged shifts (?employerId&from&to)
    POST   /api/shifts                        Log shifts (shifts.json body)
    POST   /api/shifts/import                 Import an xlsx timesheet
    DELETE /api/shifts/{id}                   Remove a shift

  Derived records:
    GET    /api/priced-shifts                 Priced shifts (?employerId&from&to)
    GET    /api/pay-periods                   All pay periods (payperiods.json)
    GET    /api/pay-periods/export            Pay periods as an xlsx workbook

  Award configuration:
    GET    /api/config                        Current config.json document
    PUT    /api/config                        Replace config.json

  Recompute:
    POST   /api/recompute                     Run a recompute now
    GET    /api/runs                          Recent runs (?limit)

  Tax:
    POST   /api/tax/quote                     PAYG withholding for an amount

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: shifts, employers, config and derived records
  - Engine: runs the recompute against the same store

  Writes to shifts, employers and config do not recompute inline. The
  RecomputeScheduler notices the store revision change; POST /recompute
  runs one immediately.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid document, date, clock or cadence
  - 404: Employer, shift or config not found
  - 409: Duplicate employer; recompute without a config
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. Every endpoint is public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - factory/: the JSON documents shared with the data files
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/warp/casual-pay/engine"
	"github.com/warp/casual-pay/factory"
	"github.com/warp/casual-pay/payroll"
	"github.com/warp/casual-pay/store/xlsx"
	"github.com/warp/casual-pay/tax"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the persistence the API needs. store/sqlite and store/memory
// implement it.
type Store interface {
	engine.Store
	engine.RunLog

	SaveShifts(ctx context.Context, shifts []payroll.Shift) error
	DeleteShift(ctx context.Context, id string) error
	SaveEmployer(ctx context.Context, e payroll.EmployerProfile) error
	DeleteEmployer(ctx context.Context, id payroll.EmployerID) error
	AwardConfigDoc(ctx context.Context) ([]byte, error)
	SaveAwardConfig(ctx context.Context, doc []byte) ([]payroll.Skip, error)
	Revision(ctx context.Context) (int64, error)
	PricedShifts(ctx context.Context) ([]payroll.PricedShift, error)
	Runs(ctx context.Context, limit int) ([]engine.RunReport, error)
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  Store
	Engine *engine.Engine
	Tax    *tax.Engine

	// MaxUploadBytes caps config and timesheet bodies.
	MaxUploadBytes int64
}

// NewHandler creates a new handler with the given store and engine.
func NewHandler(store Store, eng *engine.Engine) *Handler {
	return &Handler{
		Store:          store,
		Engine:         eng,
		Tax:            tax.Default(),
		MaxUploadBytes: 10 << 20,
	}
}

// =============================================================================
// EMPLOYER HANDLERS
// =============================================================================

// ListEmployers returns all employer profiles.
func (h *Handler) ListEmployers(w http.ResponseWriter, r *http.Request) {
	employers, err := h.Store.Employers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employers", err)
		return
	}

	doc := factory.UserJSON{Employers: make([]factory.EmployerJSON, 0, len(employers))}
	for _, e := range employers {
		doc.Employers = append(doc.Employers, factory.ToEmployerJSON(e))
	}
	writeJSON(w, http.StatusOK, doc)
}

// GetEmployer returns a single employer.
func (h *Handler) GetEmployer(w http.ResponseWriter, r *http.Request) {
	e, err := h.findEmployer(r.Context(), payroll.EmployerID(chi.URLParam(r, "id")))
	if err != nil {
		writeStoreError(w, "Employer not found", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.ToEmployerJSON(e))
}

// CreateEmployer adds an employer profile. The id must be new.
func (h *Handler) CreateEmployer(w http.ResponseWriter, r *http.Request) {
	var req factory.EmployerJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	e, err := factory.FromEmployerJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employer", err)
		return
	}

	if _, err := h.findEmployer(r.Context(), e.ID); err == nil {
		writeError(w, http.StatusConflict, "Employer already exists", nil)
		return
	} else if !errors.Is(err, engine.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to load employers", err)
		return
	}

	if err := h.Store.SaveEmployer(r.Context(), e); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employer", err)
		return
	}
	writeJSON(w, http.StatusCreated, factory.ToEmployerJSON(e))
}

// UpdateEmployer replaces a profile. The path id wins over the body.
func (h *Handler) UpdateEmployer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.findEmployer(r.Context(), payroll.EmployerID(id)); err != nil {
		writeStoreError(w, "Employer not found", err)
		return
	}

	var req factory.EmployerJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ID = id
	e, err := factory.FromEmployerJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employer", err)
		return
	}

	if err := h.Store.SaveEmployer(r.Context(), e); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update employer", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.ToEmployerJSON(e))
}

// DeleteEmployer removes an employer and its pay periods.
func (h *Handler) DeleteEmployer(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteEmployer(r.Context(), payroll.EmployerID(chi.URLParam(r, "id"))); err != nil {
		writeStoreError(w, "Employer not found", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) findEmployer(ctx context.Context, id payroll.EmployerID) (payroll.EmployerProfile, error) {
	employers, err := h.Store.Employers(ctx)
	if err != nil {
		return payroll.EmployerProfile{}, err
	}
	for _, e := range employers {
		if e.ID == id {
			return e, nil
		}
	}
	return payroll.EmployerProfile{}, engine.ErrNotFound
}

// =============================================================================
// SHIFT HANDLERS
// =============================================================================

// ListShifts returns logged shifts, optionally filtered.
// GET /api/shifts?employerId=cafe&from=2025-06-01&to=2025-06-30
func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}
	shifts, err := h.Store.Shifts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shifts", err)
		return
	}

	doc := factory.ShiftsJSON{Shifts: []factory.ShiftJSON{}}
	for _, s := range shifts {
		if f.match(s) {
			doc.Shifts = append(doc.Shifts, factory.ToShiftJSON(s))
		}
	}
	writeJSON(w, http.StatusOK, doc)
}

// CreateShifts logs the shifts in a shifts.json body. Shifts without an id
// get a stable one, so retrying the request does not duplicate them.
func (h *Handler) CreateShifts(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.MaxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}
	shifts, err := factory.ParseShifts(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shifts", err)
		return
	}
	h.saveShifts(w, r, shifts)
}

// ImportShifts logs the shifts in an xlsx timesheet, sent either as the raw
// body or as the "file" field of a multipart form.
func (h *Handler) ImportShifts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "Missing file field", err)
			return
		}
		defer file.Close()
		src = file
	}

	shifts, err := xlsx.ReadShifts(src)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid timesheet", err)
		return
	}
	h.saveShifts(w, r, shifts)
}

func (h *Handler) saveShifts(w http.ResponseWriter, r *http.Request, shifts []payroll.Shift) {
	if len(shifts) == 0 {
		writeError(w, http.StatusBadRequest, "No shifts in request", nil)
		return
	}
	if err := h.Store.SaveShifts(r.Context(), shifts); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save shifts", err)
		return
	}

	resp := ShiftsSavedResponse{Saved: len(shifts), IDs: make([]string, 0, len(shifts))}
	for _, s := range shifts {
		resp.IDs = append(resp.IDs, s.ID)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// DeleteShift removes one logged shift.
func (h *Handler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteShift(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, "Shift not found", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// DERIVED RECORD HANDLERS
// =============================================================================

// ListPricedShifts returns the priced shifts from the last recompute.
func (h *Handler) ListPricedShifts(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}
	priced, err := h.Store.PricedShifts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list priced shifts", err)
		return
	}

	doc := factory.PricedShiftsJSON{Shifts: []factory.PricedShiftJSON{}}
	for _, p := range priced {
		if f.match(p.Shift) {
			doc.Shifts = append(doc.Shifts, factory.ToPricedShiftJSON(p))
		}
	}
	writeJSON(w, http.StatusOK, doc)
}

// ListPayPeriods returns every employer's periods in payperiods.json form.
func (h *Handler) ListPayPeriods(w http.ResponseWriter, r *http.Request) {
	all, err := h.allPayPeriods(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pay periods", err)
		return
	}

	doc := factory.PayPeriodsJSON{PayPeriods: make([]factory.EmployerPeriodsJSON, 0, len(all))}
	for _, ep := range all {
		doc.PayPeriods = append(doc.PayPeriods, toEmployerPeriodsJSON(ep.id, ep.periods))
	}
	writeJSON(w, http.StatusOK, doc)
}

// GetEmployerPayPeriods returns one employer's periods.
func (h *Handler) GetEmployerPayPeriods(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployerID(chi.URLParam(r, "id"))
	if _, err := h.findEmployer(r.Context(), id); err != nil {
		writeStoreError(w, "Employer not found", err)
		return
	}
	periods, err := h.Store.PayPeriods(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pay periods", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployerPeriodsJSON(id, periods))
}

// ExportPayPeriods streams every pay period as an xlsx workbook.
func (h *Handler) ExportPayPeriods(w http.ResponseWriter, r *http.Request) {
	all, err := h.allPayPeriods(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pay periods", err)
		return
	}
	byEmployer := make(map[payroll.EmployerID][]payroll.PayPeriod, len(all))
	for _, ep := range all {
		byEmployer[ep.id] = ep.periods
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="payperiods.xlsx"`)
	if err := xlsx.WritePayPeriods(w, byEmployer); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to export pay periods", err)
	}
}

type employerPeriods struct {
	id      payroll.EmployerID
	periods []payroll.PayPeriod
}

// allPayPeriods returns periods for every known employer, in employer order.
func (h *Handler) allPayPeriods(ctx context.Context) ([]employerPeriods, error) {
	employers, err := h.Store.Employers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]employerPeriods, 0, len(employers))
	for _, e := range employers {
		periods, err := h.Store.PayPeriods(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, employerPeriods{id: e.ID, periods: periods})
	}
	return out, nil
}

func toEmployerPeriodsJSON(id payroll.EmployerID, periods []payroll.PayPeriod) factory.EmployerPeriodsJSON {
	ep := factory.EmployerPeriodsJSON{EmployerID: string(id), Periods: make([]factory.PayPeriodJSON, 0, len(periods))}
	for _, p := range periods {
		ep.Periods = append(ep.Periods, factory.ToPayPeriodJSON(p))
	}
	return ep
}

// =============================================================================
// AWARD CONFIG HANDLERS
// =============================================================================

// GetConfig returns the stored config.json document as saved.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Store.AwardConfigDoc(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load config", err)
		return
	}
	if len(doc) == 0 {
		writeError(w, http.StatusNotFound, "No award configuration loaded", nil)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// PutConfig validates and replaces the award configuration.
func (h *Handler) PutConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.MaxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}
	skips, err := h.Store.SaveAwardConfig(r.Context(), body)
	if err != nil {
		writeError(w, statusFor(err), "Invalid award configuration", err)
		return
	}
	writeJSON(w, http.StatusOK, ConfigSavedResponse{Status: "ok", Skips: toSkipDTOs(skips)})
}

// =============================================================================
// RECOMPUTE HANDLERS
// =============================================================================

// TriggerRecompute runs a full recompute and returns its report.
func (h *Handler) TriggerRecompute(w http.ResponseWriter, r *http.Request) {
	report, err := h.Engine.Recompute(r.Context())
	if err != nil {
		writeJSON(w, statusFor(err), toRunReportDTO(report))
		return
	}
	writeJSON(w, http.StatusOK, toRunReportDTO(report))
}

// ListRuns returns recent recompute runs, newest first.
// GET /api/runs?limit=20
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	runs, err := h.Store.Runs(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get recompute runs", err)
		return
	}

	dtos := make([]RunReportDTO, 0, len(runs))
	for i := range runs {
		dtos = append(dtos, toRunReportDTO(&runs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// =============================================================================
// TAX HANDLERS
// =============================================================================

// QuoteTax returns the PAYG withholding for one pay of the given cadence.
func (h *Handler) QuoteTax(w http.ResponseWriter, r *http.Request) {
	var req TaxQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Earnings.IsNegative() {
		writeError(w, http.StatusBadRequest, "Earnings must not be negative", nil)
		return
	}

	profile := tax.Profile{
		ClaimsThreshold: req.TaxFreeThreshold,
		HasTFN:          true,
		ForeignResident: req.ForeignResident,
	}
	if req.HasTFN != nil {
		profile.HasTFN = *req.HasTFN
	}
	if req.TaxOffset != nil {
		profile.Offset = *req.TaxOffset
	}

	cadence := payroll.Cadence(req.Cadence)
	weekly, err := h.Tax.WeeklyEquivalent(req.Earnings, cadence)
	if err != nil {
		writeError(w, statusFor(err), "Cannot compute withholding", err)
		return
	}
	withheld, err := h.Tax.ForPeriod(req.Earnings, cadence, profile)
	if err != nil {
		writeError(w, statusFor(err), "Cannot compute withholding", err)
		return
	}
	withheld = payroll.Round2(withheld)

	writeJSON(w, http.StatusOK, TaxQuoteResponse{
		Earnings:       req.Earnings.InexactFloat64(),
		Cadence:        req.Cadence,
		WeeklyEarnings: h.Tax.WeeklyEarnings(weekly).InexactFloat64(),
		Tax:            withheld.InexactFloat64(),
		NetPay:         req.Earnings.Sub(withheld).InexactFloat64(),
	})
}


// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// shiftFilter narrows a shift listing by employer and date range.
type shiftFilter struct {
	employer payroll.EmployerID
	from, to payroll.Date
}

func parseFilter(r *http.Request) (shiftFilter, error) {
	q := r.URL.Query()
	f := shiftFilter{employer: payroll.EmployerID(q.Get("employerId"))}
	var err error
	if v := q.Get("from"); v != "" {
		if f.from, err = payroll.ParseDate(v); err != nil {
			return f, err
		}
	}
	if v := q.Get("to"); v != "" {
		if f.to, err = payroll.ParseDate(v); err != nil {
			return f, err
		}
	}
	return f, nil
}

func (f shiftFilter) match(s payroll.Shift) bool {
	if f.employer != "" && s.EmployerID != f.employer {
		return false
	}
	if !f.from.IsZero() && s.Date.Before(f.from) {
		return false
	}
	if !f.to.IsZero() && s.Date.After(f.to) {
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeStoreError maps a store lookup error to 404 or 500.
func writeStoreError(w http.ResponseWriter, notFound string, err error) {
	if errors.Is(err, engine.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFound, nil)
		return
	}
	writeError(w, http.StatusInternalServerError, "Store error", err)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, engine.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrConfigMissing):
		return http.StatusConflict
	case errors.Is(err, factory.ErrInvalidConfig),
		errors.Is(err, tax.ErrUnsupportedCadence),
		errors.Is(err, payroll.ErrInvalidDate),
		errors.Is(err, payroll.ErrInvalidClock),
		errors.Is(err, payroll.ErrInvalidWeekday):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func toSkipDTOs(skips []payroll.Skip) []SkipDTO {
	out := make([]SkipDTO, 0, len(skips))
	for _, s := range skips {
		out = append(out, SkipDTO{Reason: string(s.Reason), Subject: s.Subject, Ref: s.Ref})
	}
	return out
}

func toRunReportDTO(r *engine.RunReport) RunReportDTO {
	if r == nil {
		return RunReportDTO{Status: string(engine.RunFailed)}
	}
	dto := RunReportDTO{
		ID:             r.ID,
		Status:         string(r.Status),
		ShiftsPriced:   r.ShiftsPriced,
		PeriodsUpdated: r.PeriodsUpdated,
		Failures:       make([]FailureDTO, 0, len(r.Failures)),
		Skips:          toSkipDTOs(r.Skips),
		Error:          r.Error,
		StartedAt:      r.StartedAt.Format(timeLayout),
	}
	if !r.CompletedAt.IsZero() {
		dto.CompletedAt = r.CompletedAt.Format(timeLayout)
	}
	for _, f := range r.Failures {
		dto.Failures = append(dto.Failures, FailureDTO{
			ShiftID:    f.ShiftID,
			Date:       f.Date.String(),
			EmployerID: string(f.EmployerID),
			Error:      f.Error,
		})
	}
	return dto
}
