package tax

import (
	"errors"
	"fmt"

	"github.com/warp/casual-pay/payroll"
)

// ErrUnsupportedCadence is returned for a pay cycle with no withholding rule.
var ErrUnsupportedCadence = errors.New("unsupported pay cadence")

// UnsupportedCadenceError names the cadence that was rejected.
type UnsupportedCadenceError struct {
	Cadence payroll.Cadence
}

func (e *UnsupportedCadenceError) Error() string {
	return fmt.Sprintf("unsupported pay cadence %q", e.Cadence)
}

func (e *UnsupportedCadenceError) Unwrap() error {
	return ErrUnsupportedCadence
}
