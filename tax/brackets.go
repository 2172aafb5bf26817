package tax

import "github.com/shopspring/decimal"

// =============================================================================
// WITHHOLDING SCALES - Weekly coefficients, scale 2 and scale 1
// =============================================================================

// Bracket is one row of a weekly withholding scale: for weekly earnings x
// below UpperLimit, tax = A*x - B.
type Bracket struct {
	UpperLimit decimal.Decimal
	Unbounded  bool // last row; UpperLimit is ignored
	A          decimal.Decimal
	B          decimal.Decimal
}

// Table is an ordered withholding scale. The last bracket must be Unbounded.
type Table []Bracket

// Lookup returns the first bracket whose upper limit exceeds x.
func (t Table) Lookup(x decimal.Decimal) (Bracket, bool) {
	for _, b := range t {
		if b.Unbounded || x.LessThan(b.UpperLimit) {
			return b, true
		}
	}
	return Bracket{}, false
}

func row(limit, a, b string) Bracket {
	return Bracket{
		UpperLimit: decimal.RequireFromString(limit),
		A:          decimal.RequireFromString(a),
		B:          decimal.RequireFromString(b),
	}
}

func top(a, b string) Bracket {
	return Bracket{
		Unbounded: true,
		A:         decimal.RequireFromString(a),
		B:         decimal.RequireFromString(b),
	}
}

var thresholdScale = Table{
	row("361", "0", "0"),
	row("500", "0.16", "57.8462"),
	row("625", "0.26", "107.8462"),
	row("721", "0.18", "57.8462"),
	row("865", "0.189", "64.3365"),
	row("1282", "0.3227", "180.0385"),
	row("2596", "0.32", "176.5769"),
	row("3653", "0.39", "358.3077"),
	top("0.47", "650.6154"),
}

var noThresholdScale = Table{
	row("150", "0.16", "0.16"),
	row("371", "0.2117", "7.755"),
	row("515", "0.189", "-0.6702"),
	row("932", "0.3227", "68.2367"),
	row("2246", "0.32", "65.7202"),
	row("3303", "0.39", "222.951"),
	top("0.47", "487.2587"),
}

// ThresholdTable is the scale for employees claiming the tax-free threshold.
// Each call returns a fresh copy.
func ThresholdTable() Table { return append(Table(nil), thresholdScale...) }

// NoThresholdTable is the scale for employees not claiming the threshold.
func NoThresholdTable() Table { return append(Table(nil), noThresholdScale...) }

// Flat no-TFN withholding rates.
var (
	NoTFNResidentRate = decimal.RequireFromString("0.47")
	NoTFNForeignRate  = decimal.RequireFromString("0.45")
)

// OffsetWeeklyFactor converts an annual offset claim into a weekly reduction.
var OffsetWeeklyFactor = decimal.RequireFromString("0.019")
