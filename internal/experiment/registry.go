package experiment

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"ctrllab/internal/config"
	"ctrllab/internal/integrate"
	"ctrllab/internal/law"
	"ctrllab/internal/loop"
	"ctrllab/internal/metrics"
	"ctrllab/internal/plant"
)

// Registry maps the names used in config files to plant, stepper and
// law constructors.
type Registry struct {
	plants   map[string]func() loop.System
	steppers map[string]func() loop.Stepper
	laws     map[string]func(cfg *config.Config, dim int) (loop.Law, error)
}

func NewRegistry() *Registry {
	r := &Registry{
		plants:   make(map[string]func() loop.System),
		steppers: make(map[string]func() loop.Stepper),
		laws:     make(map[string]func(cfg *config.Config, dim int) (loop.Law, error)),
	}

	r.plants["pendulum"] = func() loop.System { return plant.NewPendulum() }
	r.plants["cartpole"] = func() loop.System { return plant.NewCartPole() }
	r.plants["spring_mass"] = func() loop.System { return plant.NewSpringMass() }
	r.plants["double_integrator"] = func() loop.System { return plant.NewDoubleIntegrator() }

	r.steppers["euler"] = func() loop.Stepper { return integrate.NewEuler() }
	r.steppers["rk4"] = func() loop.Stepper { return integrate.NewRK4() }
	r.steppers["rk45"] = func() loop.Stepper { return integrate.NewRK45() }
	r.steppers["verlet"] = func() loop.Stepper { return integrate.NewVerlet() }

	r.laws["constant"] = buildConstant
	r.laws["feedback"] = buildFeedback
	r.laws["pid"] = buildPID
	r.laws["schedule"] = buildSchedule

	return r
}

// Plant builds the named plant and applies params to it.
func (r *Registry) Plant(name string, params map[string]float64) (loop.System, error) {
	ctor, ok := r.plants[name]
	if !ok {
		return nil, fmt.Errorf("unknown plant: %s", name)
	}
	sys := ctor()
	if err := applyParams(sys, params); err != nil {
		return nil, fmt.Errorf("plant %s: %w", name, err)
	}
	return sys, nil
}

func (r *Registry) Stepper(name string) (loop.Stepper, error) {
	ctor, ok := r.steppers[name]
	if !ok {
		return nil, fmt.Errorf("unknown stepper: %s", name)
	}
	return ctor(), nil
}

// StepperFactory returns a constructor for the named stepper. Ensemble
// and Lyapunov runs need a fresh stepper per trajectory because the
// steppers carry scratch buffers.
func (r *Registry) StepperFactory(name string) (func() loop.Stepper, error) {
	ctor, ok := r.steppers[name]
	if !ok {
		return nil, fmt.Errorf("unknown stepper: %s", name)
	}
	return ctor, nil
}

// Law builds the law named by cfg.Law sized for a plant with dim
// control inputs, then applies cfg.LawParams.
func (r *Registry) Law(cfg *config.Config, dim int) (loop.Law, error) {
	ctor, ok := r.laws[cfg.Law]
	if !ok {
		return nil, fmt.Errorf("unknown law: %s", cfg.Law)
	}
	l, err := ctor(cfg, dim)
	if err != nil {
		return nil, fmt.Errorf("law %s: %w", cfg.Law, err)
	}
	if err := applyParams(l, cfg.LawParams); err != nil {
		return nil, fmt.Errorf("law %s: %w", cfg.Law, err)
	}
	return l, nil
}

func (r *Registry) Plants() []string   { return sortedNames(r.plants) }
func (r *Registry) Steppers() []string { return sortedNames(r.steppers) }
func (r *Registry) LawNames() []string { return sortedNames(r.laws) }

// DefaultMetrics returns the metric set attached to every run.
func DefaultMetrics(sys loop.System) []loop.Metric {
	return []loop.Metric{
		metrics.NewControlEffort(),
		metrics.NewStability(10.0),
		metrics.NewEnergyDrift(sys),
	}
}

func buildConstant(cfg *config.Config, dim int) (loop.Law, error) {
	if len(cfg.Control) == 0 {
		return law.NewConstant(dim)
	}
	return law.NewConstantFrom(cfg.Control)
}

func buildFeedback(cfg *config.Config, dim int) (loop.Law, error) {
	if len(cfg.Gain) == 0 {
		return nil, fmt.Errorf("feedback law needs a gain matrix")
	}
	rows := len(cfg.Gain)
	cols := len(cfg.Gain[0])
	data := make([]float64, 0, rows*cols)
	for i, row := range cfg.Gain {
		if len(row) != cols {
			return nil, fmt.Errorf("gain row %d has %d entries, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	k := mat.NewDense(rows, cols, data)
	return law.NewFeedback(k, cfg.Reference, cfg.Feedforward)
}

func buildPID(cfg *config.Config, dim int) (loop.Law, error) {
	// Gains, setpoint and limit arrive through LawParams via SetParam;
	// only the watched state index is fixed at construction.
	idx := int(cfg.LawParams["index"])
	return law.NewPID(idx, 1, 0, 0), nil
}

func buildSchedule(cfg *config.Config, dim int) (loop.Law, error) {
	if len(cfg.Schedule) == 0 {
		return nil, fmt.Errorf("schedule law needs at least one knot")
	}
	times := make([]float64, len(cfg.Schedule))
	values := make([]loop.Control, len(cfg.Schedule))
	for i, knot := range cfg.Schedule {
		times[i] = knot.T
		values[i] = loop.Control(knot.U).Clone()
	}
	return law.NewSchedule(times, values)
}

// applyParams pushes a name/value map into anything Configurable.
// Unknown names are errors so config typos surface early; "index" is
// consumed at construction time and skipped here.
func applyParams(v any, params map[string]float64) error {
	if len(params) == 0 {
		return nil
	}
	c, ok := v.(loop.Configurable)
	if !ok {
		return fmt.Errorf("does not accept parameters")
	}
	for name, value := range params {
		if name == "index" {
			continue
		}
		if err := c.SetParam(name, value); err != nil {
			return err
		}
	}
	return nil
}

func sortedNames[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
