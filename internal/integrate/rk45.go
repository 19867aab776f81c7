package integrate

import (
	"math"

	"ctrllab/internal/loop"
)

// Dormand-Prince 5(4) tableau. dpE holds the weights of the embedded
// error estimate (fifth minus fourth order solution).
var (
	dpA = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	dpB = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	dpE = [7]float64{71.0 / 57600, 0, -71.0 / 16695, 71.0 / 1920, -17253.0 / 339200, 22.0 / 525, -1.0 / 40}
)

// RK45 is the adaptive Dormand-Prince 5(4) pair. Step takes the fifth-order
// solution at the given dt; StepAdaptive also returns the step size the
// error estimate suggests for the next step.
type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64

	k     [7]loop.State
	stage loop.State
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) ensureScratch(n int) {
	if len(r.stage) != n {
		for s := range r.k {
			r.k[s] = make(loop.State, n)
		}
		r.stage = make(loop.State, n)
	}
}

func (r *RK45) Step(sys loop.System, x loop.State, u loop.Control, t, dt float64) loop.State {
	next, _, _ := r.StepAdaptive(sys, x, u, t, dt, 1e-6)
	return next
}

func (r *RK45) StepAdaptive(sys loop.System, x loop.State, u loop.Control, t, dt, tol float64) (loop.State, float64, error) {
	n := len(x)
	r.ensureScratch(n)

	copy(r.k[0], sys.Derive(x, u, t))
	for s := 1; s < 7; s++ {
		for i := 0; i < n; i++ {
			acc := x[i]
			for p := 0; p < s; p++ {
				acc += dt * dpB[s][p] * r.k[p][i]
			}
			r.stage[i] = acc
		}
		copy(r.k[s], sys.Derive(r.stage, u, t+dpA[s]*dt))
	}

	// FSAL: row 7 of the tableau equals the solution weights, so after
	// the loop the stage buffer holds the fifth-order solution.
	next := r.stage.Clone()

	errMax := 0.0
	for i := 0; i < n; i++ {
		est := 0.0
		for s := 0; s < 7; s++ {
			est += dpE[s] * r.k[s][i]
		}
		est *= dt
		scale := math.Abs(x[i]) + math.Abs(dt*r.k[0][i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(est)/scale)
	}

	ratio := errMax / tol
	var dtNext float64
	switch {
	case ratio > 1:
		dtNext = dt * math.Max(r.minScale, r.safety*math.Pow(ratio, -0.25))
	case ratio > 0:
		dtNext = dt * math.Min(r.maxScale, r.safety*math.Pow(ratio, -0.2))
	default:
		dtNext = dt * r.maxScale
	}
	return next, dtNext, nil
}
