package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"ctrllab/internal/loop"
)

const (
	DefaultDt       = 0.01
	DefaultDuration = 10.0
)

// Config is the file-level description of one experiment: which plant,
// which stepper, which law, and the numbers that shape them. Loading
// merges the file over DefaultConfig, so files only state what they
// change.
type Config struct {
	Plant   string `yaml:"plant"`
	Stepper string `yaml:"stepper"`
	Law     string `yaml:"law"`

	Dt        float64 `yaml:"dt"`
	Duration  float64 `yaml:"duration"`
	Adaptive  bool    `yaml:"adaptive"`
	Tolerance float64 `yaml:"tolerance"`
	Seed      int64   `yaml:"seed"`

	InitState []float64 `yaml:"init_state"`

	// Control seeds the constant law's stored vector.
	Control []float64 `yaml:"control,omitempty"`

	// Gain, Reference and Feedforward assemble the feedback law.
	Gain        [][]float64 `yaml:"gain,omitempty"`
	Reference   []float64   `yaml:"reference,omitempty"`
	Feedforward []float64   `yaml:"feedforward,omitempty"`

	// Schedule lists the zero-order-hold knots of the schedule law.
	Schedule []Knot `yaml:"schedule,omitempty"`

	// LawParams and PlantParams are applied through the Configurable
	// capability after construction.
	LawParams   map[string]float64 `yaml:"law_params,omitempty"`
	PlantParams map[string]float64 `yaml:"plant_params,omitempty"`
}

// Knot is one schedule entry: hold u from time t on.
type Knot struct {
	T float64   `yaml:"t"`
	U []float64 `yaml:"u"`
}

func DefaultConfig() *Config {
	return &Config{
		Plant:     "pendulum",
		Stepper:   "rk4",
		Law:       "constant",
		Dt:        DefaultDt,
		Duration:  DefaultDuration,
		InitState: []float64{0.5, 0},
		Control:   []float64{0},
	}
}

// Load reads path and merges it over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as yaml.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Clone deep-copies the config so sweeps and batches can vary one copy
// per run without aliasing.
func (c *Config) Clone() *Config {
	out := *c
	out.InitState = append([]float64(nil), c.InitState...)
	out.Control = append([]float64(nil), c.Control...)
	out.Reference = append([]float64(nil), c.Reference...)
	out.Feedforward = append([]float64(nil), c.Feedforward...)
	if c.Gain != nil {
		out.Gain = make([][]float64, len(c.Gain))
		for i, row := range c.Gain {
			out.Gain[i] = append([]float64(nil), row...)
		}
	}
	if c.Schedule != nil {
		out.Schedule = make([]Knot, len(c.Schedule))
		for i, k := range c.Schedule {
			out.Schedule[i] = Knot{T: k.T, U: append([]float64(nil), k.U...)}
		}
	}
	if c.LawParams != nil {
		out.LawParams = make(map[string]float64, len(c.LawParams))
		for k, v := range c.LawParams {
			out.LawParams[k] = v
		}
	}
	if c.PlantParams != nil {
		out.PlantParams = make(map[string]float64, len(c.PlantParams))
		for k, v := range c.PlantParams {
			out.PlantParams[k] = v
		}
	}
	return &out
}

// Loop converts the file-level numbers into a rollout config.
func (c *Config) Loop() loop.Config {
	lc := loop.DefaultConfig()
	lc.Dt = c.Dt
	lc.Duration = c.Duration
	lc.Adaptive = c.Adaptive
	if c.Tolerance > 0 {
		lc.Tolerance = c.Tolerance
	}
	lc.Seed = c.Seed
	return lc
}

// Validate rejects configs no experiment could run.
func (c *Config) Validate() error {
	if c.Plant == "" || c.Stepper == "" || c.Law == "" {
		return fmt.Errorf("config: plant, stepper and law must all be set")
	}
	if len(c.InitState) == 0 {
		return fmt.Errorf("config: init_state is empty")
	}
	return c.Loop().Validate()
}

// Env carries process-level overrides that do not belong in experiment
// files.
type Env struct {
	DataDir string `env:"CTRLLAB_DATA" envDefault:"data"`
	DBPath  string `env:"CTRLLAB_DB" envDefault:""`
	FPS     int    `env:"CTRLLAB_FPS" envDefault:"30"`
}

// ParseEnv reads the CTRLLAB_* variables. DBPath defaults to runs.db under
// DataDir when unset.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("config: parse env: %w", err)
	}
	if e.DBPath == "" {
		e.DBPath = e.DataDir + "/runs.db"
	}
	return e, nil
}
