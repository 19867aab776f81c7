package law_test

import (
	"errors"
	"testing"

	"ctrllab/internal/law"
	"ctrllab/internal/loop"
)

func mustSchedule(t *testing.T) *law.Schedule {
	t.Helper()
	s, err := law.NewSchedule(
		[]float64{0, 1, 2},
		[]loop.Control{{0, 0}, {1, -1}, {2, -2}},
	)
	if err != nil {
		t.Fatalf("NewSchedule: %v", err)
	}
	return s
}

func TestScheduleHold(t *testing.T) {
	s := mustSchedule(t)

	cases := []struct {
		t    float64
		want loop.Control
	}{
		{-0.5, loop.Control{0, 0}}, // before first knot
		{0, loop.Control{0, 0}},
		{0.99, loop.Control{0, 0}},
		{1, loop.Control{1, -1}}, // switches exactly at the knot
		{1.5, loop.Control{1, -1}},
		{2, loop.Control{2, -2}},
		{100, loop.Control{2, -2}}, // held past the last knot
	}
	for _, tc := range cases {
		u, err := s.Compute(loop.State{9, 9}, tc.t)
		if err != nil {
			t.Fatalf("Compute(t=%v): %v", tc.t, err)
		}
		if u[0] != tc.want[0] || u[1] != tc.want[1] {
			t.Errorf("Compute(t=%v) = %v, want %v", tc.t, u, tc.want)
		}
	}
}

func TestScheduleValidation(t *testing.T) {
	if _, err := law.NewSchedule(nil, nil); err == nil {
		t.Error("empty schedule accepted")
	}
	if _, err := law.NewSchedule([]float64{0, 1}, []loop.Control{{1}}); !errors.Is(err, loop.ErrDimensionMismatch) {
		t.Errorf("length mismatch: err = %v", err)
	}
	if _, err := law.NewSchedule([]float64{0, 0}, []loop.Control{{1}, {2}}); err == nil {
		t.Error("non-increasing times accepted")
	}
	if _, err := law.NewSchedule([]float64{0, 1}, []loop.Control{{1}, {2, 3}}); !errors.Is(err, loop.ErrDimensionMismatch) {
		t.Errorf("ragged controls: err = %v", err)
	}
	if _, err := law.NewSchedule([]float64{0}, []loop.Control{{}}); !errors.Is(err, loop.ErrNonPositiveDim) {
		t.Errorf("empty control: err = %v", err)
	}
}

func TestScheduleCopiesInAndOut(t *testing.T) {
	times := []float64{0, 1}
	vals := []loop.Control{{5}, {6}}
	s, err := law.NewSchedule(times, vals)
	if err != nil {
		t.Fatal(err)
	}

	vals[0][0] = -100
	times[1] = -100
	u, _ := s.Compute(nil, 0.5)
	if u[0] != 5 {
		t.Errorf("schedule aliases its input: u = %v", u)
	}

	u[0] = 42
	again, _ := s.Compute(nil, 0.5)
	if again[0] != 5 {
		t.Errorf("schedule handed out its internal slice: u = %v", again)
	}
}

func TestScheduleClone(t *testing.T) {
	s := mustSchedule(t)
	cl := s.Clone().(*law.Schedule)

	if cl.ControlDim() != 2 || cl.Knots() != 3 {
		t.Fatalf("clone shape: dim=%d knots=%d", cl.ControlDim(), cl.Knots())
	}
	u, _ := cl.Compute(nil, 1.5)
	if u[0] != 1 || u[1] != -1 {
		t.Errorf("clone Compute = %v, want [1 -1]", u)
	}
}
