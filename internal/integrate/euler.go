package integrate

import "ctrllab/internal/loop"

// Euler is the explicit first-order method x' = x + dt f(x, u, t).
type Euler struct{}

func NewEuler() *Euler { return &Euler{} }

func (e *Euler) Step(sys loop.System, x loop.State, u loop.Control, t, dt float64) loop.State {
	dx := sys.Derive(x, u, t)
	next := make(loop.State, len(x))
	for i := range x {
		next[i] = x[i] + dt*dx[i]
	}
	return next
}
