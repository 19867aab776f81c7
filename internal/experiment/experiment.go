package experiment

import (
	"context"
	"fmt"

	"ctrllab/internal/config"
	"ctrllab/internal/loop"
	"ctrllab/internal/sim"
)

// Experiment resolves a config into a plant, stepper and law and owns
// the runner built from them.
type Experiment struct {
	cfg     *config.Config
	plant   loop.System
	stepper loop.Stepper
	law     loop.Law
	runner  *sim.Runner
	reg     *Registry
}

func New(cfg *config.Config) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reg := NewRegistry()

	sys, err := reg.Plant(cfg.Plant, cfg.PlantParams)
	if err != nil {
		return nil, err
	}
	stepper, err := reg.Stepper(cfg.Stepper)
	if err != nil {
		return nil, err
	}
	l, err := reg.Law(cfg, sys.ControlDim())
	if err != nil {
		return nil, err
	}
	runner, err := sim.New(sys, stepper, l)
	if err != nil {
		return nil, err
	}
	for _, m := range DefaultMetrics(sys) {
		runner.AddMetric(m)
	}

	return &Experiment{
		cfg:     cfg,
		plant:   sys,
		stepper: stepper,
		law:     l,
		runner:  runner,
		reg:     reg,
	}, nil
}

func (e *Experiment) Run(ctx context.Context) (*loop.Result, error) {
	x0, err := e.InitState()
	if err != nil {
		return nil, err
	}
	return e.runner.Run(ctx, x0, e.cfg.Loop())
}

// InitState returns the configured initial state, checked against the
// plant dimension.
func (e *Experiment) InitState() (loop.State, error) {
	if len(e.cfg.InitState) != e.plant.StateDim() {
		return nil, fmt.Errorf("init state has %d entries, plant %s wants %d",
			len(e.cfg.InitState), e.cfg.Plant, e.plant.StateDim())
	}
	return loop.State(e.cfg.InitState).Clone(), nil
}

func (e *Experiment) Plant() loop.System     { return e.plant }
func (e *Experiment) Stepper() loop.Stepper  { return e.stepper }
func (e *Experiment) Law() loop.Law          { return e.law }
func (e *Experiment) Runner() *sim.Runner    { return e.runner }
func (e *Experiment) Config() *config.Config { return e.cfg }

// Ensemble builds a perturbed-replica ensemble around this
// experiment's plant and law. Zero runs or spread keep the ensemble
// defaults.
func (e *Experiment) Ensemble(runs int, spread float64) (*sim.Ensemble, error) {
	factory, err := e.reg.StepperFactory(e.cfg.Stepper)
	if err != nil {
		return nil, err
	}
	ens := sim.NewEnsemble(e.plant, factory, e.law)
	if runs > 0 {
		ens.Runs = runs
	}
	if spread > 0 {
		ens.Spread = spread
	}
	sys := e.plant
	ens.NewMetrics = func() []loop.Metric { return DefaultMetrics(sys) }
	return ens, nil
}

// StepperFactory exposes the factory for the configured stepper, for
// analyses that integrate trajectories of their own.
func (e *Experiment) StepperFactory() (func() loop.Stepper, error) {
	return e.reg.StepperFactory(e.cfg.Stepper)
}
