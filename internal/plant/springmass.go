package plant

import (
	"fmt"

	"ctrllab/internal/loop"
)

// SpringMass is a forced mass-spring-damper:
//
//	m x'' = u - k x - c x'
//
// State layout: [pos, vel]. The plant is linear, so closed-form answers
// exist for everything the numerical paths estimate; the linearize tests
// lean on that.
type SpringMass struct {
	Mass      float64
	Stiffness float64
	Damping   float64
}

func NewSpringMass() *SpringMass {
	return &SpringMass{
		Mass:      1.0,
		Stiffness: 10.0,
		Damping:   0.5,
	}
}

func (s *SpringMass) StateDim() int   { return 2 }
func (s *SpringMass) ControlDim() int { return 1 }

func (s *SpringMass) Derive(x loop.State, u loop.Control, t float64) loop.State {
	force := 0.0
	if len(u) > 0 {
		force = u[0]
	}
	acc := (force - s.Stiffness*x[0] - s.Damping*x[1]) / s.Mass
	return loop.State{x[1], acc}
}

// Energy is kinetic plus spring potential.
func (s *SpringMass) Energy(x loop.State) float64 {
	return 0.5*s.Mass*x[1]*x[1] + 0.5*s.Stiffness*x[0]*x[0]
}

func (s *SpringMass) Params() map[string]float64 {
	return map[string]float64{
		"mass":      s.Mass,
		"stiffness": s.Stiffness,
		"damping":   s.Damping,
	}
}

func (s *SpringMass) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		s.Mass = value
	case "stiffness":
		s.Stiffness = value
	case "damping":
		s.Damping = value
	default:
		return fmt.Errorf("%w: %q", loop.ErrUnknownParam, name)
	}
	return nil
}
