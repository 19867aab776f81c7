package law

import (
	"fmt"
	"sort"

	"ctrllab/internal/loop"
)

// Schedule plays back a time-indexed control table with zero-order hold:
// between knots the most recent control applies, before the first knot the
// first, after the last knot the last.
type Schedule struct {
	times  []float64
	values []loop.Control
}

// NewSchedule builds a schedule from parallel knot slices. Times must be
// strictly increasing and every value must share one dimension.
func NewSchedule(times []float64, values []loop.Control) (*Schedule, error) {
	if len(times) == 0 || len(times) != len(values) {
		return nil, fmt.Errorf("%w: %d times against %d values",
			loop.ErrDimensionMismatch, len(times), len(values))
	}
	d := len(values[0])
	if d == 0 {
		return nil, fmt.Errorf("%w: empty control at knot 0", loop.ErrNonPositiveDim)
	}
	s := &Schedule{
		times:  make([]float64, len(times)),
		values: make([]loop.Control, len(values)),
	}
	copy(s.times, times)
	for i, v := range values {
		if i > 0 && times[i] <= times[i-1] {
			return nil, fmt.Errorf("schedule times not increasing at knot %d (%g after %g)",
				i, times[i], times[i-1])
		}
		if len(v) != d {
			return nil, fmt.Errorf("%w: knot %d has %d values, knot 0 has %d",
				loop.ErrDimensionMismatch, i, len(v), d)
		}
		s.values[i] = v.Clone()
	}
	return s, nil
}

// ControlDim returns the shared dimension of the knot values.
func (s *Schedule) ControlDim() int { return len(s.values[0]) }

// Compute returns a copy of the control in force at time t; x is ignored.
func (s *Schedule) Compute(x loop.State, t float64) (loop.Control, error) {
	// first knot with time > t; the one before it is in force
	i := sort.SearchFloat64s(s.times, t)
	if i < len(s.times) && s.times[i] == t {
		return s.values[i].Clone(), nil
	}
	if i == 0 {
		return s.values[0].Clone(), nil
	}
	return s.values[i-1].Clone(), nil
}

// Clone returns an independent deep copy of the whole table.
func (s *Schedule) Clone() loop.Law {
	c := &Schedule{
		times:  make([]float64, len(s.times)),
		values: make([]loop.Control, len(s.values)),
	}
	copy(c.times, s.times)
	for i, v := range s.values {
		c.values[i] = v.Clone()
	}
	return c
}

// Knots returns the number of entries in the table.
func (s *Schedule) Knots() int { return len(s.times) }
