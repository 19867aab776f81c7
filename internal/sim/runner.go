package sim

import (
	"context"
	"fmt"
	"math"

	"ctrllab/internal/loop"
)

// Runner drives one plant, one stepper and one law through a rollout.
// It is single-use-at-a-time: steppers carry scratch state and laws may
// accumulate history, so concurrent rollouts go through [Ensemble].
type Runner struct {
	sys       loop.System
	stepper   loop.Stepper
	law       loop.Law
	metrics   []loop.Metric
	observers []loop.Observer
}

// New wires a runner together, rejecting a law whose output does not fit
// the plant's input.
func New(sys loop.System, stepper loop.Stepper, l loop.Law) (*Runner, error) {
	if l.ControlDim() != sys.ControlDim() {
		return nil, fmt.Errorf("%w: law emits %d controls, plant takes %d",
			loop.ErrDimensionMismatch, l.ControlDim(), sys.ControlDim())
	}
	return &Runner{sys: sys, stepper: stepper, law: l}, nil
}

func (r *Runner) AddMetric(m loop.Metric)     { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o loop.Observer) { r.observers = append(r.observers, o) }

// Law returns the law the runner drives, for callers that tune it between
// rollouts.
func (r *Runner) Law() loop.Law { return r.law }

// Run simulates from x0 for cfg.Duration. On failure the partial result up
// to the failing step is returned together with a *loop.StepError.
func (r *Runner) Run(ctx context.Context, x0 loop.State, cfg loop.Config) (*loop.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(x0) != r.sys.StateDim() {
		return nil, fmt.Errorf("%w: x0 has %d variables, plant has %d",
			loop.ErrDimensionMismatch, len(x0), r.sys.StateDim())
	}

	for _, m := range r.metrics {
		m.Reset()
	}

	steps := cfg.Steps()
	res := &loop.Result{
		Times:    make([]float64, 0, steps+1),
		States:   make([]loop.State, 0, steps+1),
		Controls: make([]loop.Control, 0, steps),
		Metrics:  make(map[string]float64),
	}

	x := x0.Clone()
	t := 0.0
	dt := cfg.Dt

	res.Times = append(res.Times, t)
	res.States = append(res.States, x.Clone())

	e0 := r.energy(x)

	for step := 0; ; step++ {
		if cfg.Adaptive {
			if cfg.Duration-t <= 1e-12 {
				break
			}
			if dt > cfg.Duration-t {
				dt = cfg.Duration - t
			}
		} else if step >= steps {
			break
		}

		select {
		case <-ctx.Done():
			r.drainMetrics(res)
			return res, ctx.Err()
		default:
		}

		u, err := r.law.Compute(x, t)
		if err != nil {
			r.drainMetrics(res)
			return res, &loop.StepError{Step: step, Time: t, Err: err}
		}

		for _, m := range r.metrics {
			m.Observe(x, u, t)
		}
		for _, o := range r.observers {
			o.OnStep(x, u, t)
		}

		var next loop.State
		used := dt
		if cfg.Adaptive {
			var serr error
			next, used, dt, serr = r.adaptiveStep(x, u, t, dt, cfg)
			if serr != nil {
				r.drainMetrics(res)
				return res, &loop.StepError{Step: step, Time: t, Err: serr}
			}
		} else {
			next = r.stepper.Step(r.sys, x, u, t, dt)
		}

		if cfg.CheckState && !next.IsValid() {
			r.drainMetrics(res)
			return res, &loop.StepError{Step: step, Time: t, Err: loop.ErrInvalidState}
		}

		x = next
		t += used
		res.StepsTaken++

		res.Times = append(res.Times, t)
		res.States = append(res.States, x.Clone())
		res.Controls = append(res.Controls, u)
	}

	if ef := r.energy(x); e0 != 0 {
		res.EnergyDrift = math.Abs(ef-e0) / math.Abs(e0)
	}
	r.drainMetrics(res)
	return res, nil
}

// RunWithCallback streams fixed steps through fn until fn returns false or
// the duration runs out. No trajectory is recorded; the live view uses this
// to stay allocation-flat.
func (r *Runner) RunWithCallback(ctx context.Context, x0 loop.State, cfg loop.Config, fn func(x loop.State, u loop.Control, t float64) bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(x0) != r.sys.StateDim() {
		return fmt.Errorf("%w: x0 has %d variables, plant has %d",
			loop.ErrDimensionMismatch, len(x0), r.sys.StateDim())
	}

	x := x0.Clone()
	for step, t := 0, 0.0; t < cfg.Duration; step, t = step+1, t+cfg.Dt {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		u, err := r.law.Compute(x, t)
		if err != nil {
			return &loop.StepError{Step: step, Time: t, Err: err}
		}
		if !fn(x, u, t) {
			return nil
		}

		x = r.stepper.Step(r.sys, x, u, t, cfg.Dt)
		if cfg.CheckState && !x.IsValid() {
			return &loop.StepError{Step: step, Time: t, Err: loop.ErrInvalidState}
		}
	}
	return nil
}

// adaptiveStep takes one error-controlled step. It returns the accepted
// state, the dt actually integrated and the dt to try next.
func (r *Runner) adaptiveStep(x loop.State, u loop.Control, t, dt float64, cfg loop.Config) (loop.State, float64, float64, error) {
	if as, ok := r.stepper.(loop.AdaptiveStepper); ok {
		next, dtNext, err := as.StepAdaptive(r.sys, x, u, t, dt, cfg.Tolerance)
		if err != nil {
			return nil, 0, 0, err
		}
		return next, dt, clampDt(dtNext, cfg), nil
	}

	// step doubling for plain steppers: halve dt until the full-step vs
	// two-half-steps disagreement meets the tolerance
	for {
		full := r.stepper.Step(r.sys, x, u, t, dt)
		half := r.stepper.Step(r.sys, x, u, t, dt/2)
		fine := r.stepper.Step(r.sys, half, u, t+dt/2, dt/2)

		est := full.Sub(fine).Norm()
		if est <= cfg.Tolerance {
			dtNext := dt
			if est < cfg.Tolerance/10 {
				dtNext = dt * 2
			}
			return fine, dt, clampDt(dtNext, cfg), nil
		}
		if dt/2 < cfg.MinDt {
			return nil, 0, 0, loop.ErrStepTooSmall
		}
		dt /= 2
	}
}

func clampDt(dt float64, cfg loop.Config) float64 {
	if dt < cfg.MinDt {
		return cfg.MinDt
	}
	if dt > cfg.MaxDt {
		return cfg.MaxDt
	}
	return dt
}

func (r *Runner) energy(x loop.State) float64 {
	if h, ok := r.sys.(loop.Hamiltonian); ok {
		return h.Energy(x)
	}
	return 0
}

func (r *Runner) drainMetrics(res *loop.Result) {
	for _, m := range r.metrics {
		res.Metrics[m.Name()] = m.Value()
	}
}
