package loop

import "gonum.org/v1/gonum/mat"

// Differentiable is an optional capability of a Law: the Jacobian of the
// control output with respect to the state, du/dx, evaluated at (x, t).
// The matrix is ControlDim x len(x).
type Differentiable interface {
	ControlSensitivity(x State, t float64) (*mat.Dense, error)
}

// InputDifferentiable is an optional capability of laws parameterized by a
// stored control vector: the derivative of the output with respect to that
// vector, du/du0, evaluated at (x, t). The matrix is ControlDim x ControlDim.
type InputDifferentiable interface {
	DerivativeU0(x State, t float64) *mat.Dense
}

// SensitivityOf returns du/dx of l at (x, t), or ErrSensitivityUnsupported
// when l is not Differentiable.
func SensitivityOf(l Law, x State, t float64) (*mat.Dense, error) {
	d, ok := l.(Differentiable)
	if !ok {
		return nil, ErrSensitivityUnsupported
	}
	return d.ControlSensitivity(x, t)
}

// DerivativeU0Of returns du/du0 of l at (x, t), or ErrSensitivityUnsupported
// when l is not InputDifferentiable.
func DerivativeU0Of(l Law, x State, t float64) (*mat.Dense, error) {
	d, ok := l.(InputDifferentiable)
	if !ok {
		return nil, ErrSensitivityUnsupported
	}
	return d.DerivativeU0(x, t), nil
}

// Identity returns the d x d identity matrix.
func Identity(d int) *mat.Dense {
	m := mat.NewDense(d, d, nil)
	for i := 0; i < d; i++ {
		m.Set(i, i, 1)
	}
	return m
}
