package analysis

import (
	"fmt"
	"math"

	"ctrllab/internal/loop"
)

// DefaultSeparation is the twin-trajectory offset used when callers pass
// d0 <= 0.
const DefaultSeparation = 1e-8

// MaxLyapunov estimates the largest Lyapunov exponent of the closed loop by
// the twin-trajectory method: a reference rollout and a slightly offset
// rollout run side by side, the separation is renormalized to d0 after
// every step, and the mean log stretch is the exponent. Positive means the
// loop amplifies perturbations.
//
// Each twin drives its own law clone, so stateful laws diverge honestly.
func MaxLyapunov(sys loop.System, newStepper func() loop.Stepper, l loop.Law, x0 loop.State, cfg loop.Config, d0 float64) (float64, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	if len(x0) != sys.StateDim() {
		return 0, fmt.Errorf("%w: x0 has %d variables, plant has %d",
			loop.ErrDimensionMismatch, len(x0), sys.StateDim())
	}
	if d0 <= 0 {
		d0 = DefaultSeparation
	}

	lawA, lawB := l.Clone(), l.Clone()
	stepA, stepB := newStepper(), newStepper()

	x := x0.Clone()
	xp := x0.Clone()
	xp[0] += d0

	steps := cfg.Steps()
	sumLog := 0.0
	counted := 0

	for i := 0; i < steps; i++ {
		t := float64(i) * cfg.Dt

		uA, err := lawA.Compute(x, t)
		if err != nil {
			return 0, &loop.StepError{Step: i, Time: t, Err: err}
		}
		uB, err := lawB.Compute(xp, t)
		if err != nil {
			return 0, &loop.StepError{Step: i, Time: t, Err: err}
		}

		x = stepA.Step(sys, x, uA, t, cfg.Dt)
		xp = stepB.Step(sys, xp, uB, t, cfg.Dt)
		if !x.IsValid() || !xp.IsValid() {
			return 0, &loop.StepError{Step: i, Time: t, Err: loop.ErrInvalidState}
		}

		sep := xp.Sub(x).Norm()
		if sep <= 0 {
			// twins collapsed onto each other; nothing left to measure
			break
		}
		sumLog += math.Log(sep / d0)
		counted++

		// renormalize so the next step measures a fresh stretch
		scale := d0 / sep
		for j := range xp {
			xp[j] = x[j] + (xp[j]-x[j])*scale
		}
	}

	if counted == 0 {
		return 0, nil
	}
	return sumLog / (float64(counted) * cfg.Dt), nil
}
