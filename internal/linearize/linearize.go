package linearize

import (
	"context"
	"errors"

	"gonum.org/v1/gonum/mat"

	"ctrllab/internal/loop"
	"ctrllab/internal/sim"
)

// DefaultStep is the central-difference perturbation used when callers pass
// h <= 0.
const DefaultStep = 1e-6

// Plant returns the Jacobians A = df/dx (n x n) and B = df/du (n x d) of
// the plant dynamics at the operating point (x, u, t).
func Plant(sys loop.System, x loop.State, u loop.Control, t, h float64) (*mat.Dense, *mat.Dense) {
	if h <= 0 {
		h = DefaultStep
	}
	n := sys.StateDim()
	d := sys.ControlDim()

	a := mat.NewDense(n, n, nil)
	xp := x.Clone()
	for j := 0; j < n; j++ {
		orig := xp[j]
		xp[j] = orig + h
		fp := sys.Derive(xp, u, t)
		xp[j] = orig - h
		fm := sys.Derive(xp, u, t)
		xp[j] = orig
		for i := 0; i < n; i++ {
			a.Set(i, j, (fp[i]-fm[i])/(2*h))
		}
	}

	b := mat.NewDense(n, d, nil)
	up := u.Clone()
	for j := 0; j < d; j++ {
		orig := up[j]
		up[j] = orig + h
		fp := sys.Derive(x, up, t)
		up[j] = orig - h
		fm := sys.Derive(x, up, t)
		up[j] = orig
		for i := 0; i < n; i++ {
			b.Set(i, j, (fp[i]-fm[i])/(2*h))
		}
	}
	return a, b
}

// ClosedLoop returns the closed-loop Jacobian A + B J at (x, t), where J is
// the law's state sensitivity. Laws without one (open-loop laws) yield
// loop.ErrSensitivityUnsupported.
func ClosedLoop(sys loop.System, l loop.Law, x loop.State, t, h float64) (*mat.Dense, error) {
	j, err := loop.SensitivityOf(l, x, t)
	if err != nil {
		return nil, err
	}
	u, err := l.Compute(x, t)
	if err != nil {
		return nil, err
	}
	a, b := Plant(sys, x, u, t, h)

	var acl mat.Dense
	acl.Mul(b, j)
	acl.Add(&acl, a)
	return &acl, nil
}

// offset shifts a law's output by a fixed vector; ControlToState perturbs
// the shift to probe the rollout.
type offset struct {
	base  loop.Law
	delta loop.Control
}

func (o *offset) ControlDim() int { return o.base.ControlDim() }

func (o *offset) Compute(x loop.State, t float64) (loop.Control, error) {
	u, err := o.base.Compute(x, t)
	if err != nil {
		return nil, err
	}
	for i := range u {
		u[i] += o.delta[i]
	}
	return u, nil
}

func (o *offset) Clone() loop.Law {
	return &offset{base: o.base.Clone(), delta: o.delta.Clone()}
}

// ControlToState returns d x(T) / d u0 (n x d): how the final state of a
// rollout from x0 under cfg moves with the law's stored control vector.
// The rollout sensitivity to an output offset is measured by central
// differences and chained through the law's own du/du0, so a law whose
// stored vector feeds through identically (du/du0 = I) gets the raw
// rollout sensitivity. Laws that are not loop.InputDifferentiable yield
// loop.ErrSensitivityUnsupported.
func ControlToState(ctx context.Context, sys loop.System, l loop.Law, newStepper func() loop.Stepper, x0 loop.State, cfg loop.Config, h float64) (*mat.Dense, error) {
	input, ok := l.(loop.InputDifferentiable)
	if !ok {
		return nil, loop.ErrSensitivityUnsupported
	}
	if h <= 0 {
		h = DefaultStep
	}
	n := sys.StateDim()
	d := l.ControlDim()

	final := func(delta loop.Control) (loop.State, error) {
		r, err := sim.New(sys, newStepper(), &offset{base: l.Clone(), delta: delta})
		if err != nil {
			return nil, err
		}
		res, err := r.Run(ctx, x0, cfg)
		if err != nil {
			return nil, err
		}
		return res.Final(), nil
	}

	s := mat.NewDense(n, d, nil)
	for j := 0; j < d; j++ {
		delta := make(loop.Control, d)
		delta[j] = h
		xp, err := final(delta)
		if err != nil {
			return nil, err
		}
		delta[j] = -h
		xm, err := final(delta)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			s.Set(i, j, (xp[i]-xm[i])/(2*h))
		}
	}

	var out mat.Dense
	out.Mul(s, input.DerivativeU0(x0, 0))
	return &out, nil
}

// Eigenvalues returns the spectrum of m.
func Eigenvalues(m *mat.Dense) ([]complex128, error) {
	var eig mat.Eigen
	if !eig.Factorize(m, mat.EigenNone) {
		return nil, errors.New("linearize: eigendecomposition failed")
	}
	return eig.Values(nil), nil
}

// Stable reports whether every eigenvalue has a strictly negative real
// part.
func Stable(eigs []complex128) bool {
	for _, e := range eigs {
		if real(e) >= 0 {
			return false
		}
	}
	return true
}
