package loop

import "math"

// State is a flat vector of state variables.
type State []float64

// Control is a control action vector.
type Control []float64

// Clone returns an independent deep copy of the state.
func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

// Add returns s + o element-wise. Panics if lengths differ.
func (s State) Add(o State) State {
	r := make(State, len(s))
	for i := range s {
		r[i] = s[i] + o[i]
	}
	return r
}

// Sub returns s - o element-wise. Panics if lengths differ.
func (s State) Sub(o State) State {
	r := make(State, len(s))
	for i := range s {
		r[i] = s[i] - o[i]
	}
	return r
}

// Scale returns s * f element-wise.
func (s State) Scale(f float64) State {
	r := make(State, len(s))
	for i := range s {
		r[i] = s[i] * f
	}
	return r
}

// Norm returns the Euclidean norm of the state.
func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// IsValid reports whether every component is finite.
func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Clone returns an independent deep copy of the control vector.
func (c Control) Clone() Control {
	r := make(Control, len(c))
	copy(r, c)
	return r
}

// Norm returns the Euclidean norm of the control vector.
func (c Control) Norm() float64 {
	sum := 0.0
	for _, v := range c {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// IsValid reports whether every component is finite.
func (c Control) IsValid() bool {
	for _, v := range c {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Law maps (state, time) to a control action. Implementations own a fixed
// control dimension for their whole lifetime and must document which parts
// of their input they actually read (open-loop laws ignore the state).
//
// A Law is not safe for concurrent use; concurrent rollouts take a Clone
// each.
type Law interface {
	// ControlDim returns the length of the vectors Compute produces.
	// It is constant over the lifetime of the law.
	ControlDim() int

	// Compute evaluates the law at state x and time t. The returned
	// vector has length ControlDim and is owned by the caller; the law
	// must not retain or reuse it. Compute must not mutate x.
	Compute(x State, t float64) (Control, error)

	// Clone returns an independent deep copy with identical behavior.
	// Mutating the clone never affects the original and vice versa.
	Clone() Law
}

// System is the right-hand side of a controlled ODE dX/dt = f(X, u, t).
type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

// Hamiltonian is implemented by systems with a conserved energy, used by
// energy-drift diagnostics and symplectic steppers.
type Hamiltonian interface {
	Energy(x State) float64
}

// Stepper advances a system by one timestep.
type Stepper interface {
	Step(sys System, x State, u Control, t, dt float64) State
}

// AdaptiveStepper is a Stepper that can also pick its own step size,
// returning the accepted state, the suggested next dt and an error when the
// step had to shrink below the configured minimum.
type AdaptiveStepper interface {
	Stepper
	StepAdaptive(sys System, x State, u Control, t, dt, tol float64) (State, float64, error)
}

// Metric accumulates a scalar diagnostic over a rollout.
type Metric interface {
	Name() string
	Observe(x State, u Control, t float64)
	Value() float64
	Reset()
}

// Observer receives every accepted step of a rollout.
type Observer interface {
	OnStep(x State, u Control, t float64)
}

// Configurable is implemented by laws and systems whose numeric parameters
// can be inspected and tuned at runtime (sweeps, presets, the TUI).
type Configurable interface {
	Params() map[string]float64
	SetParam(name string, value float64) error
}
