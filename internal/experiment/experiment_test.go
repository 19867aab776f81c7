package experiment

import (
	"context"
	"math"
	"testing"

	"ctrllab/internal/config"
	"ctrllab/internal/law"
)

func TestRegistryUnknownNames(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.Plant("lorenz", nil); err == nil {
		t.Error("expected error for unknown plant")
	}
	if _, err := reg.Stepper("rk99"); err == nil {
		t.Error("expected error for unknown stepper")
	}
	cfg := config.DefaultConfig()
	cfg.Law = "mpc"
	if _, err := reg.Law(cfg, 1); err == nil {
		t.Error("expected error for unknown law")
	}
}

func TestRegistryListsAreSorted(t *testing.T) {
	reg := NewRegistry()

	plants := reg.Plants()
	if len(plants) != 4 {
		t.Fatalf("expected 4 plants, got %v", plants)
	}
	for i := 1; i < len(plants); i++ {
		if plants[i-1] >= plants[i] {
			t.Errorf("plants not sorted: %v", plants)
		}
	}
	if got := len(reg.Steppers()); got != 4 {
		t.Errorf("expected 4 steppers, got %d", got)
	}
	if got := len(reg.LawNames()); got != 4 {
		t.Errorf("expected 4 laws, got %d", got)
	}
}

func TestPlantParamsApplied(t *testing.T) {
	reg := NewRegistry()

	sys, err := reg.Plant("pendulum", map[string]float64{"length": 2.5})
	if err != nil {
		t.Fatalf("Plant: %v", err)
	}
	c, ok := sys.(interface{ Params() map[string]float64 })
	if !ok {
		t.Fatal("pendulum should expose params")
	}
	if got := c.Params()["length"]; got != 2.5 {
		t.Errorf("length = %v, want 2.5", got)
	}

	if _, err := reg.Plant("pendulum", map[string]float64{"inertia": 1}); err == nil {
		t.Error("expected error for unknown plant param")
	}
}

func TestLawConstruction(t *testing.T) {
	reg := NewRegistry()

	cfg := config.DefaultConfig()
	cfg.Law = "constant"
	cfg.Control = nil
	l, err := reg.Law(cfg, 2)
	if err != nil {
		t.Fatalf("constant: %v", err)
	}
	if l.ControlDim() != 2 {
		t.Errorf("empty control should size to plant dim, got %d", l.ControlDim())
	}

	cfg.Control = []float64{0.7}
	l, err = reg.Law(cfg, 1)
	if err != nil {
		t.Fatalf("constant from vector: %v", err)
	}
	u, err := l.Compute(nil, 0)
	if err != nil || u[0] != 0.7 {
		t.Errorf("Compute = %v, %v; want [0.7]", u, err)
	}

	cfg = config.DefaultConfig()
	cfg.Law = "feedback"
	if _, err := reg.Law(cfg, 1); err == nil {
		t.Error("feedback without gain should fail")
	}
	cfg.Gain = [][]float64{{1, 2}, {3}}
	if _, err := reg.Law(cfg, 1); err == nil {
		t.Error("ragged gain should fail")
	}
	cfg.Gain = [][]float64{{1, 2}}
	if _, err := reg.Law(cfg, 1); err != nil {
		t.Errorf("feedback: %v", err)
	}

	cfg = config.DefaultConfig()
	cfg.Law = "schedule"
	if _, err := reg.Law(cfg, 1); err == nil {
		t.Error("schedule without knots should fail")
	}
	cfg.Schedule = []config.Knot{{T: 0, U: []float64{1}}, {T: 1, U: []float64{0}}}
	if _, err := reg.Law(cfg, 1); err != nil {
		t.Errorf("schedule: %v", err)
	}
}

func TestPIDParamsThroughConfig(t *testing.T) {
	reg := NewRegistry()

	cfg := config.DefaultConfig()
	cfg.Law = "pid"
	cfg.LawParams = map[string]float64{
		"index":    1,
		"kp":       4.0,
		"ki":       0.5,
		"setpoint": 3.0,
	}
	l, err := reg.Law(cfg, 1)
	if err != nil {
		t.Fatalf("Law: %v", err)
	}
	p, ok := l.(*law.PID)
	if !ok {
		t.Fatalf("expected *law.PID, got %T", l)
	}
	if p.Index != 1 || p.Kp != 4.0 || p.Ki != 0.5 || p.Setpoint != 3.0 {
		t.Errorf("params not applied: %+v", p)
	}

	cfg.LawParams = map[string]float64{"gamma": 1}
	if _, err := reg.Law(cfg, 1); err == nil {
		t.Error("unknown law param should fail")
	}
}

func TestExperimentRun(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Duration = 2.0

	exp, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.StepsTaken != 200 {
		t.Errorf("StepsTaken = %d, want 200", res.StepsTaken)
	}
	for _, name := range []string{"control_effort", "stability", "energy_drift"} {
		if _, ok := res.Metrics[name]; !ok {
			t.Errorf("missing default metric %q", name)
		}
	}
	// Damped unforced pendulum sheds energy, so the final swing is
	// smaller than the release angle.
	if math.Abs(res.Final()[0]) >= 0.5 {
		t.Errorf("pendulum did not decay: final = %v", res.Final())
	}
}

func TestExperimentFeedbackRegulatesToOrigin(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Plant = "double_integrator"
	cfg.Law = "feedback"
	cfg.Gain = [][]float64{{1, 2}}
	cfg.InitState = []float64{3, 0}
	cfg.Duration = 12.0

	exp, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// u = -x - 2v is critically damped: x(t) = 3(1+t)e^-t, which is
	// below 1e-3 well before t = 12.
	final := res.Final()
	if math.Abs(final[0]) > 0.01 || math.Abs(final[1]) > 0.01 {
		t.Errorf("loop did not regulate to the origin: final = %v", final)
	}
}

func TestExperimentInitStateMismatch(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.InitState = []float64{0.5}

	exp, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := exp.Run(context.Background()); err == nil {
		t.Error("expected error for wrong init state length")
	}
}

func TestExperimentEnsemble(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Duration = 1.0

	exp, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ens, err := exp.Ensemble(4, 0.02)
	if err != nil {
		t.Fatalf("Ensemble: %v", err)
	}
	if ens.Runs != 4 || ens.Spread != 0.02 {
		t.Errorf("ensemble options not applied: runs=%d spread=%v", ens.Runs, ens.Spread)
	}

	x0, err := exp.InitState()
	if err != nil {
		t.Fatalf("InitState: %v", err)
	}
	results, err := ens.Run(context.Background(), x0, cfg.Loop())
	if err != nil {
		t.Fatalf("ensemble run: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for i, res := range results {
		if _, ok := res.Metrics["energy_drift"]; !ok {
			t.Errorf("replica %d missing metrics", i)
		}
	}
}
