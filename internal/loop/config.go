package loop

import "fmt"

// Config carries the numeric knobs of a single rollout.
type Config struct {
	Dt       float64 `yaml:"dt"`
	Duration float64 `yaml:"duration"`

	// Adaptive switches the driver to AdaptiveStepper.StepAdaptive when
	// the configured stepper supports it.
	Adaptive  bool    `yaml:"adaptive"`
	Tolerance float64 `yaml:"tolerance"`
	MinDt     float64 `yaml:"min_dt"`
	MaxDt     float64 `yaml:"max_dt"`

	// CheckState aborts the rollout on the first NaN/Inf state.
	CheckState bool `yaml:"check_state"`

	Seed int64 `yaml:"seed"`
}

// DefaultConfig returns a config suitable for the bundled plants.
func DefaultConfig() Config {
	return Config{
		Dt:         0.01,
		Duration:   10.0,
		Adaptive:   false,
		Tolerance:  1e-6,
		MinDt:      1e-6,
		MaxDt:      0.1,
		CheckState: true,
		Seed:       42,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %g", c.Duration)
	}
	if c.Adaptive {
		if c.Tolerance <= 0 {
			return fmt.Errorf("tolerance must be positive, got %g", c.Tolerance)
		}
		if c.MinDt <= 0 || c.MaxDt < c.MinDt {
			return fmt.Errorf("need 0 < min_dt <= max_dt, got min_dt=%g max_dt=%g", c.MinDt, c.MaxDt)
		}
	}
	return nil
}

// Steps returns the number of fixed steps Duration/Dt implies.
func (c Config) Steps() int {
	return int(c.Duration / c.Dt)
}

// Result is a completed rollout: the trajectory, the applied controls and
// whatever metrics were attached.
type Result struct {
	Times    []float64
	States   []State
	Controls []Control

	Metrics     map[string]float64
	EnergyDrift float64
	StepsTaken  int
}

// Final returns the last recorded state, or nil for an empty result.
func (r *Result) Final() State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}
