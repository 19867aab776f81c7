package integrate

import "ctrllab/internal/loop"

// RK4 is the classic fixed-step fourth-order Runge-Kutta method. Stage
// buffers are reused across steps, so a single instance serves one rollout
// at a time.
type RK4 struct {
	k1, k2, k3, k4 loop.State
	stage          loop.State
}

func NewRK4() *RK4 { return &RK4{} }

func (r *RK4) ensureScratch(n int) {
	if len(r.stage) != n {
		r.k1 = make(loop.State, n)
		r.k2 = make(loop.State, n)
		r.k3 = make(loop.State, n)
		r.k4 = make(loop.State, n)
		r.stage = make(loop.State, n)
	}
}

func (r *RK4) Step(sys loop.System, x loop.State, u loop.Control, t, dt float64) loop.State {
	n := len(x)
	r.ensureScratch(n)

	copy(r.k1, sys.Derive(x, u, t))

	half := dt * 0.5
	for i := 0; i < n; i++ {
		r.stage[i] = x[i] + half*r.k1[i]
	}
	copy(r.k2, sys.Derive(r.stage, u, t+half))

	for i := 0; i < n; i++ {
		r.stage[i] = x[i] + half*r.k2[i]
	}
	copy(r.k3, sys.Derive(r.stage, u, t+half))

	for i := 0; i < n; i++ {
		r.stage[i] = x[i] + dt*r.k3[i]
	}
	copy(r.k4, sys.Derive(r.stage, u, t+dt))

	next := make(loop.State, n)
	w := dt / 6.0
	for i := 0; i < n; i++ {
		next[i] = x[i] + w*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
	return next
}
