package store

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ctrllab/internal/loop"
)

func testResult() *loop.Result {
	return &loop.Result{
		Times: []float64{0, 0.1, 0.2},
		States: []loop.State{
			{0.5, 0},
			{0.45, -0.9},
			{0.32, -1.6},
		},
		Controls: []loop.Control{
			{0.1},
			{0.2},
		},
		Metrics:     map[string]float64{"control_effort": 0.15},
		EnergyDrift: 0.002,
		StepsTaken:  2,
	}
}

func openCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := NewCatalog(filepath.Join(t.TempDir(), "runs.db"))
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSaveGetRoundtrip(t *testing.T) {
	c := openCatalog(t)
	ctx := context.Background()
	res := testResult()

	run := Run{
		ID:       "pendulum_1",
		Plant:    "pendulum",
		Stepper:  "rk4",
		Law:      "constant",
		Dt:       0.1,
		Duration: 0.2,
		Seed:     42,
	}
	if err := c.SaveRun(ctx, run, res); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, ok, err := c.GetRun(ctx, "pendulum_1")
	if err != nil || !ok {
		t.Fatalf("GetRun: ok=%v err=%v", ok, err)
	}
	if got.Plant != "pendulum" || got.Stepper != "rk4" || got.Law != "constant" {
		t.Errorf("row fields wrong: %+v", got)
	}
	if got.Seed != 42 || got.Dt != 0.1 {
		t.Errorf("numeric fields wrong: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should have been stamped")
	}
	if got.Metrics["control_effort"] != 0.15 {
		t.Errorf("metrics not carried from result: %v", got.Metrics)
	}

	stored, ok, err := c.GetResult(ctx, "pendulum_1")
	if err != nil || !ok {
		t.Fatalf("GetResult: ok=%v err=%v", ok, err)
	}
	if stored.StepsTaken != 2 || stored.EnergyDrift != 0.002 {
		t.Errorf("scalar result fields wrong: %+v", stored)
	}
	if len(stored.Times) != 3 || len(stored.States) != 3 || len(stored.Controls) != 2 {
		t.Fatalf("trajectory lengths wrong: %d %d %d",
			len(stored.Times), len(stored.States), len(stored.Controls))
	}
	if stored.States[2][1] != -1.6 {
		t.Errorf("state payload wrong: %v", stored.States)
	}
	if stored.Metrics["control_effort"] != 0.15 {
		t.Errorf("result metrics wrong: %v", stored.Metrics)
	}
}

func TestSaveRunUpserts(t *testing.T) {
	c := openCatalog(t)
	ctx := context.Background()

	run := Run{ID: "r1", Plant: "pendulum", Stepper: "rk4", Law: "constant", Dt: 0.1}
	if err := c.SaveRun(ctx, run, testResult()); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	run.Dt = 0.05
	if err := c.SaveRun(ctx, run, testResult()); err != nil {
		t.Fatalf("SaveRun again: %v", err)
	}

	runs, err := c.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run after upsert, got %d", len(runs))
	}
	if runs[0].Dt != 0.05 {
		t.Errorf("upsert did not replace row: dt = %v", runs[0].Dt)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	c := openCatalog(t)
	ctx := context.Background()
	base := time.Now()

	old := Run{ID: "old", Plant: "pendulum", CreatedAt: base.Add(-time.Hour)}
	recent := Run{ID: "recent", Plant: "cartpole", CreatedAt: base}
	if err := c.SaveRun(ctx, old, testResult()); err != nil {
		t.Fatalf("SaveRun old: %v", err)
	}
	if err := c.SaveRun(ctx, recent, testResult()); err != nil {
		t.Fatalf("SaveRun recent: %v", err)
	}

	runs, err := c.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "recent" || runs[1].ID != "old" {
		t.Errorf("runs not newest first: %s, %s", runs[0].ID, runs[1].ID)
	}
	if !runs[1].CreatedAt.Equal(old.CreatedAt) {
		t.Errorf("CreatedAt not preserved: %v vs %v", runs[1].CreatedAt, old.CreatedAt)
	}
}

func TestGetMissingRun(t *testing.T) {
	c := openCatalog(t)
	ctx := context.Background()

	if _, ok, err := c.GetRun(ctx, "nope"); ok || err != nil {
		t.Errorf("GetRun: ok=%v err=%v, want false, nil", ok, err)
	}
	if _, ok, err := c.GetResult(ctx, "nope"); ok || err != nil {
		t.Errorf("GetResult: ok=%v err=%v, want false, nil", ok, err)
	}
}

func TestCatalogLifecycle(t *testing.T) {
	ctx := context.Background()

	c := NewCatalog("")
	if err := c.Init(ctx); err == nil {
		t.Error("Init with empty path should fail")
	}

	c = NewCatalog(filepath.Join(t.TempDir(), "runs.db"))
	if err := c.SaveRun(ctx, Run{ID: "x"}, testResult()); err == nil {
		t.Error("SaveRun before Init should fail")
	}
	if err := c.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := c.Init(ctx); err != nil {
		t.Errorf("second Init should be a no-op, got %v", err)
	}
	if err := c.SaveRun(ctx, Run{}, testResult()); err == nil {
		t.Error("SaveRun without id should fail")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportCSV(&buf, testResult()); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines", len(lines))
	}
	if lines[0] != "time,x0,x1,u0" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "0.000000,0.500000,0.000000,0.100000") {
		t.Errorf("first row = %q", lines[1])
	}
	// Last state has no control sample; its column is padded.
	if !strings.HasSuffix(lines[3], ",0") {
		t.Errorf("final row should pad controls: %q", lines[3])
	}
}

func TestExportCSVEmptyResult(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportCSV(&buf, &loop.Result{}); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("empty result should write nothing, got %q", buf.String())
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	run := Run{ID: "r1", Plant: "pendulum", Stepper: "rk4", Law: "constant", Dt: 0.1, Duration: 0.2, Seed: 7}
	if err := ExportJSON(&buf, run, testResult()); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}

	var doc ExportData
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Plant != "pendulum" || doc.Steps != 2 || doc.Seed != 7 {
		t.Errorf("header fields wrong: %+v", doc)
	}
	if len(doc.States) != 3 || doc.States[1][0] != 0.45 {
		t.Errorf("states wrong: %v", doc.States)
	}
	if doc.Metrics["control_effort"] != 0.15 {
		t.Errorf("metrics wrong: %v", doc.Metrics)
	}
}

func TestNewRunIDDistinct(t *testing.T) {
	a := NewRunID("pendulum")
	b := NewRunID("pendulum")
	if !strings.HasPrefix(a, "pendulum_") {
		t.Errorf("id = %q", a)
	}
	if a == b {
		t.Error("consecutive ids should differ")
	}
}
