package metrics

import (
	"math"

	"ctrllab/internal/loop"
)

// The step-response metrics all watch one state component moving from its
// value at the first sample toward Target. A degenerate step (target equal
// to the starting value) leaves them at their zero values.

// RiseTime is the first time the response covers 90% of the step, or -1 if
// it never does.
type RiseTime struct {
	Index  int
	Target float64

	initial float64
	primed  bool
	rise    float64
	found   bool
}

func NewRiseTime(index int, target float64) *RiseTime {
	return &RiseTime{Index: index, Target: target, rise: -1}
}

func (r *RiseTime) Name() string { return "rise_time" }

func (r *RiseTime) Observe(x loop.State, u loop.Control, t float64) {
	if r.Index >= len(x) {
		return
	}
	v := x[r.Index]
	if !r.primed {
		r.initial = v
		r.primed = true
	}
	if r.found {
		return
	}
	span := r.Target - r.initial
	if math.Abs(span) < 1e-12 {
		return
	}
	if (v-r.initial)/span >= 0.9 {
		r.rise = t
		r.found = true
	}
}

func (r *RiseTime) Value() float64 { return r.rise }

func (r *RiseTime) Reset() {
	r.primed = false
	r.found = false
	r.rise = -1
}

// Overshoot is the worst excursion past the target as a fraction of the
// step.
type Overshoot struct {
	Index  int
	Target float64

	initial float64
	primed  bool
	peak    float64
}

func NewOvershoot(index int, target float64) *Overshoot {
	return &Overshoot{Index: index, Target: target}
}

func (o *Overshoot) Name() string { return "overshoot" }

func (o *Overshoot) Observe(x loop.State, u loop.Control, t float64) {
	if o.Index >= len(x) {
		return
	}
	v := x[o.Index]
	if !o.primed {
		o.initial = v
		o.primed = true
	}
	span := o.Target - o.initial
	if math.Abs(span) < 1e-12 {
		return
	}
	if over := (v-o.initial)/span - 1; over > o.peak {
		o.peak = over
	}
}

func (o *Overshoot) Value() float64 { return o.peak }

func (o *Overshoot) Reset() {
	o.primed = false
	o.peak = 0
}

// SettlingTime is the time of the last sample outside a band around the
// target (2% of the step by default).
type SettlingTime struct {
	Index  int
	Target float64
	Band   float64

	initial float64
	primed  bool
	last    float64
}

func NewSettlingTime(index int, target float64) *SettlingTime {
	return &SettlingTime{Index: index, Target: target, Band: 0.02}
}

func (s *SettlingTime) Name() string { return "settling_time" }

func (s *SettlingTime) Observe(x loop.State, u loop.Control, t float64) {
	if s.Index >= len(x) {
		return
	}
	v := x[s.Index]
	if !s.primed {
		s.initial = v
		s.primed = true
	}
	span := math.Abs(s.Target - s.initial)
	if span < 1e-12 {
		return
	}
	if math.Abs(v-s.Target) > s.Band*span {
		s.last = t
	}
}

func (s *SettlingTime) Value() float64 { return s.last }

func (s *SettlingTime) Reset() {
	s.primed = false
	s.last = 0
}
