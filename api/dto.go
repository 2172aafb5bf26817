/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures the API adds on top of the data-file
  documents. Employers, shifts, priced shifts and pay periods travel in the
  factory package's user.json / shifts.json / shiftspay.json /
  payperiods.json layouts, so a client can post a file straight from disk.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Recompute:
    RunReportDTO, FailureDTO, SkipDTO

  Config:
    ConfigSavedResponse

  Shifts:
    ShiftsSavedResponse

  Tax:
    TaxQuoteRequest, TaxQuoteResponse

VALIDATION:
  Validation is done in handlers and the factory package, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/: document types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

const timeLayout = time.RFC3339

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// RECOMPUTE
// =============================================================================

type RunReportDTO struct {
	ID             string       `json:"id"`
	Status         string       `json:"status"`
	ShiftsPriced   int          `json:"shifts_priced"`
	PeriodsUpdated int          `json:"periods_updated"`
	Failures       []FailureDTO `json:"failures"`
	Skips          []SkipDTO    `json:"skips"`
	Error          string       `json:"error,omitempty"`
	StartedAt      string       `json:"started_at"`
	CompletedAt    string       `json:"completed_at,omitempty"`
}

// FailureDTO is a shift left out of a run.
type FailureDTO struct {
	ShiftID    string `json:"shift_id"`
	Date       string `json:"date"`
	EmployerID string `json:"employer_id"`
	Error      string `json:"error"`
}

// SkipDTO is a configuration lookup that contributed nothing.
type SkipDTO struct {
	Reason  string `json:"reason"`
	Subject string `json:"subject"`
	Ref     string `json:"ref,omitempty"`
}

// =============================================================================
// CONFIG / SHIFTS
// =============================================================================

type ConfigSavedResponse struct {
	Status string    `json:"status"`
	Skips  []SkipDTO `json:"skips"`
}

type ShiftsSavedResponse struct {
	Saved int      `json:"saved"`
	IDs   []string `json:"ids"`
}

// =============================================================================
// TAX
// =============================================================================

// TaxQuoteRequest asks for the withholding on one pay. HasTFN defaults to
// true when omitted.
type TaxQuoteRequest struct {
	Earnings         decimal.Decimal  `json:"earnings"`
	Cadence          string           `json:"cadence"`
	TaxFreeThreshold bool             `json:"taxFreeThreshold"`
	HasTFN           *bool            `json:"hasTFN,omitempty"`
	ForeignResident  bool             `json:"foreignResident,omitempty"`
	TaxOffset        *decimal.Decimal `json:"taxOffset,omitempty"`
}

type TaxQuoteResponse struct {
	Earnings       float64 `json:"earnings"`
	Cadence        string  `json:"cadence"`
	WeeklyEarnings float64 `json:"weeklyEarnings"`
	Tax            float64 `json:"tax"`
	NetPay         float64 `json:"netPay"`
}
