package law

import (
	"fmt"
	"math"

	"ctrllab/internal/loop"
)

// PID regulates a single state variable toward a setpoint with one control
// channel. The derivative term acts on the error; the integral term is
// frozen while the output saturates against Limit.
type PID struct {
	Kp, Ki, Kd float64
	Setpoint   float64

	// Index selects the regulated state variable.
	Index int

	// Limit clamps the output magnitude; zero means unlimited.
	Limit float64

	integral float64
	prevErr  float64
	lastT    float64
	primed   bool
}

// NewPID returns a PID law on state variable index with the given gains.
func NewPID(index int, kp, ki, kd float64) *PID {
	return &PID{Kp: kp, Ki: ki, Kd: kd, Index: index}
}

// ControlDim returns 1: PID drives a single channel.
func (p *PID) ControlDim() int { return 1 }

// Compute advances the controller to time t and returns the new output.
// Calls must be monotone in t within a rollout; Reset or Clone between
// rollouts.
func (p *PID) Compute(x loop.State, t float64) (loop.Control, error) {
	if p.Index < 0 || p.Index >= len(x) {
		return nil, fmt.Errorf("%w: pid regulates state[%d] but state has length %d",
			loop.ErrDimensionMismatch, p.Index, len(x))
	}
	err := p.Setpoint - x[p.Index]

	dt := t - p.lastT
	if !p.primed || dt <= 0 {
		p.primed = true
		p.prevErr = err
		p.lastT = t
		out := p.clamp(p.Kp * err)
		return loop.Control{out}, nil
	}

	deriv := (err - p.prevErr) / dt
	raw := p.Kp*err + p.Ki*(p.integral+err*dt) + p.Kd*deriv
	out := p.clamp(raw)
	if out == raw {
		p.integral += err * dt
	}

	p.prevErr = err
	p.lastT = t
	return loop.Control{out}, nil
}

func (p *PID) clamp(v float64) float64 {
	if p.Limit > 0 && math.Abs(v) > p.Limit {
		return math.Copysign(p.Limit, v)
	}
	return v
}

// Reset clears the accumulated integral and derivative history.
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.lastT = 0
	p.primed = false
}

// Clone returns an independent copy carrying the accumulated state along.
func (p *PID) Clone() loop.Law {
	c := *p
	return &c
}

// Params exposes the tunable gains.
func (p *PID) Params() map[string]float64 {
	return map[string]float64{
		"kp":       p.Kp,
		"ki":       p.Ki,
		"kd":       p.Kd,
		"setpoint": p.Setpoint,
		"limit":    p.Limit,
	}
}

// SetParam tunes one gain by its Params name.
func (p *PID) SetParam(name string, value float64) error {
	switch name {
	case "kp":
		p.Kp = value
	case "ki":
		p.Ki = value
	case "kd":
		p.Kd = value
	case "setpoint":
		p.Setpoint = value
	case "limit":
		p.Limit = value
	default:
		return fmt.Errorf("%w: %q", loop.ErrUnknownParam, name)
	}
	return nil
}
