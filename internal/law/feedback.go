package law

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"ctrllab/internal/loop"
)

// Feedback is linear state feedback around a reference point:
//
//	u(x, t) = uff - K (x - ref)
//
// with a d x n gain matrix K, an n-dimensional reference state and a
// d-dimensional feedforward term.
type Feedback struct {
	k   *mat.Dense
	ref loop.State
	uff loop.Control

	// negK caches du/dx = -K for ControlSensitivity.
	negK *mat.Dense
}

// NewFeedback builds a feedback law from its gain, reference and
// feedforward. ref may be nil for the origin and uff may be nil for zero;
// any dimension disagreement is rejected.
func NewFeedback(k *mat.Dense, ref loop.State, uff loop.Control) (*Feedback, error) {
	if k == nil {
		return nil, fmt.Errorf("%w: nil gain matrix", loop.ErrNonPositiveDim)
	}
	d, n := k.Dims()
	if ref == nil {
		ref = make(loop.State, n)
	}
	if uff == nil {
		uff = make(loop.Control, d)
	}
	if len(ref) != n {
		return nil, fmt.Errorf("%w: gain is %dx%d but reference has length %d",
			loop.ErrDimensionMismatch, d, n, len(ref))
	}
	if len(uff) != d {
		return nil, fmt.Errorf("%w: gain is %dx%d but feedforward has length %d",
			loop.ErrDimensionMismatch, d, n, len(uff))
	}
	negK := mat.NewDense(d, n, nil)
	negK.Scale(-1, k)
	return &Feedback{
		k:    mat.DenseCopyOf(k),
		ref:  ref.Clone(),
		uff:  uff.Clone(),
		negK: negK,
	}, nil
}

// ControlDim returns the number of rows of the gain matrix.
func (f *Feedback) ControlDim() int {
	d, _ := f.k.Dims()
	return d
}

// StateDim returns the number of columns of the gain matrix.
func (f *Feedback) StateDim() int {
	_, n := f.k.Dims()
	return n
}

// Compute evaluates uff - K (x - ref).
func (f *Feedback) Compute(x loop.State, t float64) (loop.Control, error) {
	d, n := f.k.Dims()
	if len(x) != n {
		return nil, fmt.Errorf("%w: law expects %d state variables, got %d",
			loop.ErrDimensionMismatch, n, len(x))
	}
	u := f.uff.Clone()
	for i := 0; i < d; i++ {
		acc := 0.0
		for j := 0; j < n; j++ {
			acc += f.k.At(i, j) * (x[j] - f.ref[j])
		}
		u[i] -= acc
	}
	return u, nil
}

// ControlSensitivity returns du/dx = -K, independent of x and t. The
// matrix is cached and read-only.
func (f *Feedback) ControlSensitivity(x loop.State, t float64) (*mat.Dense, error) {
	_, n := f.k.Dims()
	if len(x) != n {
		return nil, fmt.Errorf("%w: law expects %d state variables, got %d",
			loop.ErrDimensionMismatch, n, len(x))
	}
	return f.negK, nil
}

// SetReference retargets the law to a new reference state.
func (f *Feedback) SetReference(ref loop.State) error {
	if len(ref) != len(f.ref) {
		return fmt.Errorf("%w: reference has length %d, law expects %d",
			loop.ErrDimensionMismatch, len(ref), len(f.ref))
	}
	copy(f.ref, ref)
	return nil
}

// Clone returns an independent copy sharing nothing with the original.
func (f *Feedback) Clone() loop.Law {
	return &Feedback{
		k:    mat.DenseCopyOf(f.k),
		ref:  f.ref.Clone(),
		uff:  f.uff.Clone(),
		negK: mat.DenseCopyOf(f.negK),
	}
}
