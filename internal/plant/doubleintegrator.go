package plant

import (
	"fmt"

	"ctrllab/internal/loop"
)

// DoubleIntegrator is a force on a point mass, m x'' = u.
// State layout: [pos, vel].
type DoubleIntegrator struct {
	Mass float64
}

func NewDoubleIntegrator() *DoubleIntegrator {
	return &DoubleIntegrator{Mass: 1.0}
}

func (d *DoubleIntegrator) StateDim() int   { return 2 }
func (d *DoubleIntegrator) ControlDim() int { return 1 }

func (d *DoubleIntegrator) Derive(x loop.State, u loop.Control, t float64) loop.State {
	force := 0.0
	if len(u) > 0 {
		force = u[0]
	}
	return loop.State{x[1], force / d.Mass}
}

func (d *DoubleIntegrator) Params() map[string]float64 {
	return map[string]float64{"mass": d.Mass}
}

func (d *DoubleIntegrator) SetParam(name string, value float64) error {
	if name != "mass" {
		return fmt.Errorf("%w: %q", loop.ErrUnknownParam, name)
	}
	d.Mass = value
	return nil
}
