package payroll

import (
	"context"
	"log/slog"
)

// SkipReason says which configuration lookup came back empty.
type SkipReason string

const (
	SkipUnknownAllowance     SkipReason = "unknown_allowance"     // enabled by employer, absent from definitions
	SkipUnsupportedAllowance SkipReason = "unsupported_allowance" // definition with an unrecognised type
	SkipMissingRate          SkipReason = "missing_rate"          // no rate for the level/category
	SkipUnmappedCategory     SkipReason = "unmapped_category"     // shift category absent from the period
)

// Skip records a lookup miss that was treated as "contribute nothing".
// The pay figures are unchanged by a skip; it exists so misconfiguration
// is visible to operators.
type Skip struct {
	Reason  SkipReason
	Subject string // allowance name, category, ...
	Ref     string // shift ID, period, employer ...
}

// SkipFunc receives skips as they happen. A nil SkipFunc is valid.
type SkipFunc func(Skip)

// Report calls fn if it is set.
func (fn SkipFunc) Report(s Skip) {
	if fn != nil {
		fn(s)
	}
}

// LogSkips returns a SkipFunc that logs each skip at Warn, then forwards it.
func LogSkips(logger *slog.Logger, next SkipFunc) SkipFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(s Skip) {
		logger.LogAttrs(context.Background(), slog.LevelWarn, "lookup skipped",
			slog.String("reason", string(s.Reason)),
			slog.String("subject", s.Subject),
			slog.String("ref", s.Ref),
		)
		next.Report(s)
	}
}
