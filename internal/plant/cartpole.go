package plant

import (
	"fmt"
	"math"

	"ctrllab/internal/loop"
)

// CartPole is the cart-and-pole balancing plant. State layout:
// [pos, vel, theta, omega] with theta = 0 upright. PoleLength is the half
// length of a uniform rod, which is where the 4/3 inertia factor below
// comes from.
type CartPole struct {
	CartMass   float64
	PoleMass   float64
	PoleLength float64
	Gravity    float64
}

func NewCartPole() *CartPole {
	return &CartPole{
		CartMass:   1.0,
		PoleMass:   0.1,
		PoleLength: 0.5,
		Gravity:    9.81,
	}
}

func (c *CartPole) StateDim() int   { return 4 }
func (c *CartPole) ControlDim() int { return 1 }

func (c *CartPole) Derive(x loop.State, u loop.Control, t float64) loop.State {
	vel, theta, omega := x[1], x[2], x[3]

	force := 0.0
	if len(u) > 0 {
		force = u[0]
	}

	mc, mp, l, g := c.CartMass, c.PoleMass, c.PoleLength, c.Gravity
	sint, cost := math.Sin(theta), math.Cos(theta)

	tmp := (force + mp*l*omega*omega*sint) / (mc + mp)
	alphaP := (g*sint - cost*tmp) / (l * (4.0/3.0 - mp*cost*cost/(mc+mp)))
	accC := tmp - mp*l*alphaP*cost/(mc+mp)

	return loop.State{vel, accC, omega, alphaP}
}

func (c *CartPole) Params() map[string]float64 {
	return map[string]float64{
		"cart_mass":   c.CartMass,
		"pole_mass":   c.PoleMass,
		"pole_length": c.PoleLength,
		"gravity":     c.Gravity,
	}
}

func (c *CartPole) SetParam(name string, value float64) error {
	switch name {
	case "cart_mass":
		c.CartMass = value
	case "pole_mass":
		c.PoleMass = value
	case "pole_length":
		c.PoleLength = value
	case "gravity":
		c.Gravity = value
	default:
		return fmt.Errorf("%w: %q", loop.ErrUnknownParam, name)
	}
	return nil
}
