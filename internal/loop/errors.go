package loop

import (
	"errors"
	"fmt"
)

// Domain errors shared by control laws, steppers and the drivers. Callers
// match them with errors.Is after unwrapping any *StepError.
var (
	// ErrNonPositiveDim reports a constructor called with dimension <= 0.
	ErrNonPositiveDim = errors.New("loop: dimension must be positive")

	// ErrDimensionMismatch reports vectors or matrices whose sizes do not
	// agree with the declared dimensions.
	ErrDimensionMismatch = errors.New("loop: dimension mismatch")

	// ErrSensitivityUnsupported reports a sensitivity request against a
	// law that does not define one.
	ErrSensitivityUnsupported = errors.New("loop: control law defines no such sensitivity")

	// ErrInvalidState reports NaN or Inf in a state vector.
	ErrInvalidState = errors.New("loop: invalid state (NaN or Inf)")

	// ErrStepTooSmall reports an adaptive stepper that shrank dt below
	// the configured minimum without meeting the tolerance.
	ErrStepTooSmall = errors.New("loop: adaptive step below minimum dt")

	// ErrUnknownParam reports a SetParam call with a name the target
	// does not expose.
	ErrUnknownParam = errors.New("loop: unknown parameter")
)

// StepError ties a failure to the step index and simulation time where it
// occurred.
type StepError struct {
	Step int
	Time float64
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
