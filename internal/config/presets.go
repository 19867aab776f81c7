package config

import "sort"

// Presets are ready-to-run experiments keyed by plant, then name. Each one
// exercises a particular law against a plant it shows off well on.
var Presets = map[string]map[string]*Config{
	"pendulum": {
		"swing": {
			Plant: "pendulum", Stepper: "rk4", Law: "constant",
			Dt: 0.01, Duration: 20,
			InitState: []float64{0.5, 0}, Control: []float64{0},
		},
		"push": {
			Plant: "pendulum", Stepper: "rk4", Law: "constant",
			Dt: 0.01, Duration: 20,
			InitState: []float64{0, 0}, Control: []float64{1.5},
		},
		"hold_level": {
			Plant: "pendulum", Stepper: "rk4", Law: "pid",
			Dt: 0.01, Duration: 15,
			InitState: []float64{0, 0},
			LawParams: map[string]float64{
				"kp": 20, "ki": 4, "kd": 6, "setpoint": 1.5708, "limit": 25,
			},
		},
		"pulse_train": {
			Plant: "pendulum", Stepper: "rk4", Law: "schedule",
			Dt: 0.01, Duration: 12,
			InitState: []float64{0, 0},
			Schedule: []Knot{
				{T: 0, U: []float64{2}},
				{T: 2, U: []float64{0}},
				{T: 6, U: []float64{-2}},
				{T: 8, U: []float64{0}},
			},
		},
	},
	"cartpole": {
		"drift": {
			Plant: "cartpole", Stepper: "rk4", Law: "constant",
			Dt: 0.005, Duration: 5,
			InitState: []float64{0, 0, 0.05, 0}, Control: []float64{0},
		},
		"balance": {
			Plant: "cartpole", Stepper: "rk4", Law: "feedback",
			Dt: 0.005, Duration: 20,
			InitState: []float64{0, 0, 0.1, 0},
			Gain:      [][]float64{{-2, -4, 40, 8}},
		},
	},
	"spring_mass": {
		"relax": {
			Plant: "spring_mass", Stepper: "verlet", Law: "constant",
			Dt: 0.01, Duration: 20,
			InitState: []float64{2, 0}, Control: []float64{0},
		},
		"hold": {
			Plant: "spring_mass", Stepper: "rk4", Law: "constant",
			Dt: 0.01, Duration: 20,
			InitState: []float64{0, 0}, Control: []float64{5},
		},
		"track": {
			Plant: "spring_mass", Stepper: "rk4", Law: "pid",
			Dt: 0.01, Duration: 15,
			InitState: []float64{0, 0},
			LawParams: map[string]float64{"kp": 60, "ki": 30, "kd": 10, "setpoint": 1},
		},
	},
	"double_integrator": {
		"coast": {
			Plant: "double_integrator", Stepper: "euler", Law: "constant",
			Dt: 0.01, Duration: 10,
			InitState: []float64{0, 1}, Control: []float64{0},
		},
		"bang_bang": {
			Plant: "double_integrator", Stepper: "rk4", Law: "schedule",
			Dt: 0.01, Duration: 10,
			InitState: []float64{0, 0},
			Schedule: []Knot{
				{T: 0, U: []float64{1}},
				{T: 5, U: []float64{-1}},
			},
		},
		"park": {
			Plant: "double_integrator", Stepper: "rk4", Law: "feedback",
			Dt: 0.01, Duration: 12,
			InitState: []float64{3, 0},
			Gain:      [][]float64{{1, 2}},
		},
	},
}

// GetPreset returns the named preset or nil.
func GetPreset(plantName, preset string) *Config {
	group, ok := Presets[plantName]
	if !ok {
		return nil
	}
	return group[preset]
}

// PresetNames lists "plant/name" pairs in stable order for the CLI.
func PresetNames() []string {
	var names []string
	for plantName, group := range Presets {
		for preset := range group {
			names = append(names, plantName+"/"+preset)
		}
	}
	sort.Strings(names)
	return names
}
