package integrate

import "ctrllab/internal/loop"

// Verlet is velocity Verlet for plants whose state is laid out as
// [q0..q(h-1), v0..v(h-1)] with the derivative returning [v, a]. It keeps
// energy bounded on conservative plants where Euler and RK4 drift.
type Verlet struct {
	stage loop.State
}

func NewVerlet() *Verlet { return &Verlet{} }

func (v *Verlet) Step(sys loop.System, x loop.State, u loop.Control, t, dt float64) loop.State {
	n := len(x)
	h := n / 2
	if len(v.stage) != n {
		v.stage = make(loop.State, n)
	}

	acc := sys.Derive(x, u, t)
	next := make(loop.State, n)

	dt2 := dt * dt
	for i := 0; i < h; i++ {
		next[i] = x[i] + x[h+i]*dt + 0.5*acc[h+i]*dt2
	}

	// re-evaluate acceleration at the new positions, old velocities
	for i := 0; i < h; i++ {
		v.stage[i] = next[i]
		v.stage[h+i] = x[h+i]
	}
	accNew := sys.Derive(v.stage, u, t+dt)

	halfDt := 0.5 * dt
	for i := 0; i < h; i++ {
		next[h+i] = x[h+i] + (acc[h+i]+accNew[h+i])*halfDt
	}
	return next
}
