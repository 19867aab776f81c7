package metrics

import (
	"math"

	"ctrllab/internal/loop"
)

// EnergyDrift tracks the worst relative deviation of a conservative
// plant's energy from its initial value. Plants without a Hamiltonian
// leave the metric at zero.
type EnergyDrift struct {
	sys      loop.System
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift(sys loop.System) *EnergyDrift {
	return &EnergyDrift{sys: sys}
}

func (e *EnergyDrift) Name() string { return "energy_drift" }

func (e *EnergyDrift) Observe(x loop.State, u loop.Control, t float64) {
	h, ok := e.sys.(loop.Hamiltonian)
	if !ok {
		return
	}
	energy := h.Energy(x)
	if e.samples == 0 {
		e.initial = energy
	}
	e.samples++

	if e.initial != 0 {
		drift := math.Abs(energy-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}
