package plant

import (
	"errors"
	"math"
	"testing"

	"ctrllab/internal/loop"
)

func TestPendulumEquilibrium(t *testing.T) {
	p := NewPendulum()
	dx := p.Derive(loop.State{0, 0}, loop.Control{0}, 0)
	if dx[0] != 0 || dx[1] != 0 {
		t.Errorf("hanging rest is not an equilibrium: %v", dx)
	}
}

func TestPendulumTorqueAcceleratesNothingElse(t *testing.T) {
	p := NewPendulum()
	dx := p.Derive(loop.State{0, 0}, loop.Control{2}, 0)
	want := 2.0 / (p.Mass * p.Length * p.Length)
	if math.Abs(dx[1]-want) > 1e-12 {
		t.Errorf("alpha = %v, want %v", dx[1], want)
	}
	if dx[0] != 0 {
		t.Errorf("theta' = %v, want 0 at rest", dx[0])
	}
}

func TestPendulumNilControl(t *testing.T) {
	p := NewPendulum()
	dx := p.Derive(loop.State{1, 0}, nil, 0)
	if math.IsNaN(dx[1]) {
		t.Error("nil control produced NaN")
	}
}

func TestPendulumEnergyAtRest(t *testing.T) {
	p := NewPendulum()
	if e := p.Energy(loop.State{0, 0}); e != 0 {
		t.Errorf("rest energy = %v, want 0", e)
	}
	// upright carries 2mgl of potential
	want := 2 * p.Mass * p.Gravity * p.Length
	if e := p.Energy(loop.State{math.Pi, 0}); math.Abs(e-want) > 1e-9 {
		t.Errorf("upright energy = %v, want %v", e, want)
	}
}

func TestCartPoleUprightEquilibrium(t *testing.T) {
	c := NewCartPole()
	dx := c.Derive(loop.State{0, 0, 0, 0}, loop.Control{0}, 0)
	for i, v := range dx {
		if v != 0 {
			t.Errorf("dx[%d] = %v, want 0 upright at rest", i, v)
		}
	}
}

func TestCartPoleUprightIsUnstable(t *testing.T) {
	c := NewCartPole()
	dx := c.Derive(loop.State{0, 0, 0.01, 0}, nil, 0)
	if dx[3] <= 0 {
		t.Errorf("pole tilted +0.01 got alpha = %v, want positive (falls further)", dx[3])
	}
}

func TestCartPolePushAcceleratesCart(t *testing.T) {
	c := NewCartPole()
	dx := c.Derive(loop.State{0, 0, 0, 0}, loop.Control{1}, 0)
	if dx[1] <= 0 {
		t.Errorf("cart acceleration = %v under positive force", dx[1])
	}
}

func TestSpringMassMatchesClosedForm(t *testing.T) {
	s := NewSpringMass()
	s.Damping = 0

	// undamped: x(t) = cos(w t), w = sqrt(k/m)
	dx := s.Derive(loop.State{1, 0}, nil, 0)
	if math.Abs(dx[1]+s.Stiffness/s.Mass) > 1e-12 {
		t.Errorf("acc = %v, want %v", dx[1], -s.Stiffness/s.Mass)
	}

	// constant force settles at x = u/k
	dx = s.Derive(loop.State{0.5, 0}, loop.Control{5}, 0)
	if math.Abs(dx[1]) > 1e-12 {
		t.Errorf("u/k is not an equilibrium: acc = %v", dx[1])
	}
}

func TestDoubleIntegrator(t *testing.T) {
	d := NewDoubleIntegrator()
	d.Mass = 2

	dx := d.Derive(loop.State{0, 3}, loop.Control{4}, 0)
	if dx[0] != 3 || dx[1] != 2 {
		t.Errorf("dx = %v, want [3 2]", dx)
	}
}

func TestPlantParams(t *testing.T) {
	plants := []loop.Configurable{
		NewPendulum(), NewCartPole(), NewSpringMass(), NewDoubleIntegrator(),
	}
	for _, p := range plants {
		for name := range p.Params() {
			if err := p.SetParam(name, 1.5); err != nil {
				t.Errorf("%T.SetParam(%q): %v", p, name, err)
			}
			if got := p.Params()[name]; got != 1.5 {
				t.Errorf("%T.Params()[%q] = %v after SetParam, want 1.5", p, name, got)
			}
		}
		if err := p.SetParam("no_such_param", 0); !errors.Is(err, loop.ErrUnknownParam) {
			t.Errorf("%T accepted an unknown param: %v", p, err)
		}
	}
}

func TestPlantDimensions(t *testing.T) {
	cases := []struct {
		sys    loop.System
		states int
	}{
		{NewPendulum(), 2},
		{NewCartPole(), 4},
		{NewSpringMass(), 2},
		{NewDoubleIntegrator(), 2},
	}
	for _, tc := range cases {
		if got := tc.sys.StateDim(); got != tc.states {
			t.Errorf("%T.StateDim = %d, want %d", tc.sys, got, tc.states)
		}
		if got := tc.sys.ControlDim(); got != 1 {
			t.Errorf("%T.ControlDim = %d, want 1", tc.sys, got)
		}
	}
}
