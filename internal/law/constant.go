package law

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"ctrllab/internal/loop"
)

// Constant holds a fixed control vector and returns it at every (state,
// time). It is the open-loop baseline the other laws are compared against
// and the natural carrier for trim points and manual inputs.
type Constant struct {
	u loop.Control

	// du0 caches d(u)/d(u0), the identity: the output IS the stored
	// vector. Built once at construction, treated as read-only after.
	du0 *mat.Dense
}

// NewConstant returns a d-dimensional law initialized to the zero vector.
func NewConstant(d int) (*Constant, error) {
	if d <= 0 {
		return nil, fmt.Errorf("%w: control dim %d", loop.ErrNonPositiveDim, d)
	}
	return &Constant{
		u:   make(loop.Control, d),
		du0: loop.Identity(d),
	}, nil
}

// NewConstantFrom returns a law holding a copy of u.
func NewConstantFrom(u loop.Control) (*Constant, error) {
	c, err := NewConstant(len(u))
	if err != nil {
		return nil, err
	}
	copy(c.u, u)
	return c, nil
}

// ControlDim returns the fixed dimension chosen at construction.
func (c *Constant) ControlDim() int { return len(c.u) }

// Compute returns a copy of the stored vector. x and t are ignored; the
// state may even be empty or non-finite without affecting the output.
func (c *Constant) Compute(x loop.State, t float64) (loop.Control, error) {
	return c.u.Clone(), nil
}

// SetControl replaces the stored vector with a copy of u. On a length
// mismatch the law is left untouched.
func (c *Constant) SetControl(u loop.Control) error {
	if len(u) != len(c.u) {
		return fmt.Errorf("%w: set %d values on a %d-dimensional law",
			loop.ErrDimensionMismatch, len(u), len(c.u))
	}
	copy(c.u, u)
	return nil
}

// Control returns the stored vector without copying. Callers must treat
// the slice as read-only; use SetControl to change it.
func (c *Constant) Control() loop.Control { return c.u }

// DerivativeU0 returns d(u)/d(u0), the ControlDim x ControlDim identity,
// independent of x and t. The matrix is cached and read-only.
func (c *Constant) DerivativeU0(x loop.State, t float64) *mat.Dense { return c.du0 }

// Clone returns an independent copy. Both the vector and the cached
// derivative are duplicated, so mutating either law never shows up in the
// other.
func (c *Constant) Clone() loop.Law {
	return &Constant{
		u:   c.u.Clone(),
		du0: loop.Identity(len(c.u)),
	}
}

// Params exposes the vector components as u0..u(d-1) for sweeps and the
// TUI.
func (c *Constant) Params() map[string]float64 {
	p := make(map[string]float64, len(c.u))
	for i, v := range c.u {
		p[fmt.Sprintf("u%d", i)] = v
	}
	return p
}

// SetParam sets a single component by its Params name.
func (c *Constant) SetParam(name string, value float64) error {
	var i int
	if _, err := fmt.Sscanf(name, "u%d", &i); err == nil &&
		i >= 0 && i < len(c.u) && fmt.Sprintf("u%d", i) == name {
		c.u[i] = value
		return nil
	}
	return fmt.Errorf("%w: %q", loop.ErrUnknownParam, name)
}
