package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"ctrllab/internal/loop"
)

// Run is the catalog row kept for every persisted rollout.
type Run struct {
	ID        string             `json:"id"`
	Plant     string             `json:"plant"`
	Stepper   string             `json:"stepper"`
	Law       string             `json:"law"`
	Dt        float64            `json:"dt"`
	Duration  float64            `json:"duration"`
	Seed      int64              `json:"seed"`
	CreatedAt time.Time          `json:"created_at"`
	Metrics   map[string]float64 `json:"metrics"`
}

// NewRunID builds a catalog ID from the plant name and the current time.
func NewRunID(plant string) string {
	return fmt.Sprintf("%s_%d", plant, time.Now().UnixNano())
}

// trajectory is the blob payload stored alongside each run row.
type trajectory struct {
	Times       []float64      `json:"times"`
	States      []loop.State   `json:"states"`
	Controls    []loop.Control `json:"controls"`
	EnergyDrift float64        `json:"energy_drift"`
	StepsTaken  int            `json:"steps_taken"`
}

// Catalog persists runs and their trajectories in a single sqlite file.
type Catalog struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewCatalog(path string) *Catalog {
	return &Catalog{path: path}
}

func (c *Catalog) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path == "" {
		return errors.New("store: sqlite path is required")
	}
	if c.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", c.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	c.db = db
	return nil
}

// SaveRun upserts the run row together with its trajectory. A zero
// CreatedAt is stamped with the current time; nil Metrics are taken
// from the result.
func (c *Catalog) SaveRun(ctx context.Context, run Run, res *loop.Result) error {
	db, err := c.getDB()
	if err != nil {
		return err
	}
	if run.ID == "" {
		return errors.New("store: run needs an id")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Metrics == nil {
		run.Metrics = res.Metrics
	}

	metricsPayload, err := json.Marshal(run.Metrics)
	if err != nil {
		return err
	}
	trajPayload, err := json.Marshal(trajectory{
		Times:       res.Times,
		States:      res.States,
		Controls:    res.Controls,
		EnergyDrift: res.EnergyDrift,
		StepsTaken:  res.StepsTaken,
	})
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, plant, stepper, law, dt, duration, seed, created_at, metrics, trajectory)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			plant = excluded.plant,
			stepper = excluded.stepper,
			law = excluded.law,
			dt = excluded.dt,
			duration = excluded.duration,
			seed = excluded.seed,
			created_at = excluded.created_at,
			metrics = excluded.metrics,
			trajectory = excluded.trajectory
	`, run.ID, run.Plant, run.Stepper, run.Law, run.Dt, run.Duration, run.Seed,
		run.CreatedAt.UnixNano(), metricsPayload, trajPayload)
	return err
}

// GetRun loads the catalog row without its trajectory.
func (c *Catalog) GetRun(ctx context.Context, id string) (Run, bool, error) {
	db, err := c.getDB()
	if err != nil {
		return Run{}, false, err
	}

	var (
		run     Run
		created int64
		payload []byte
	)
	err = db.QueryRowContext(ctx, `
		SELECT id, plant, stepper, law, dt, duration, seed, created_at, metrics
		FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &run.Plant, &run.Stepper, &run.Law, &run.Dt,
		&run.Duration, &run.Seed, &created, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, false, nil
		}
		return Run{}, false, err
	}

	run.CreatedAt = time.Unix(0, created)
	if err := json.Unmarshal(payload, &run.Metrics); err != nil {
		return Run{}, false, fmt.Errorf("store: decode metrics of %s: %w", id, err)
	}
	return run, true, nil
}

// GetResult reconstructs the stored trajectory of a run.
func (c *Catalog) GetResult(ctx context.Context, id string) (*loop.Result, bool, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, false, err
	}

	var metricsPayload, trajPayload []byte
	err = db.QueryRowContext(ctx, `SELECT metrics, trajectory FROM runs WHERE id = ?`, id).
		Scan(&metricsPayload, &trajPayload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var traj trajectory
	if err := json.Unmarshal(trajPayload, &traj); err != nil {
		return nil, false, fmt.Errorf("store: decode trajectory of %s: %w", id, err)
	}
	res := &loop.Result{
		Times:       traj.Times,
		States:      traj.States,
		Controls:    traj.Controls,
		EnergyDrift: traj.EnergyDrift,
		StepsTaken:  traj.StepsTaken,
	}
	if err := json.Unmarshal(metricsPayload, &res.Metrics); err != nil {
		return nil, false, fmt.Errorf("store: decode metrics of %s: %w", id, err)
	}
	return res, true, nil
}

// ListRuns returns all catalog rows, newest first.
func (c *Catalog) ListRuns(ctx context.Context) ([]Run, error) {
	db, err := c.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, plant, stepper, law, dt, duration, seed, created_at, metrics
		FROM runs ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			run     Run
			created int64
			payload []byte
		)
		if err := rows.Scan(&run.ID, &run.Plant, &run.Stepper, &run.Law, &run.Dt,
			&run.Duration, &run.Seed, &created, &payload); err != nil {
			return nil, err
		}
		run.CreatedAt = time.Unix(0, created)
		if err := json.Unmarshal(payload, &run.Metrics); err != nil {
			return nil, fmt.Errorf("store: decode metrics of %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

func (c *Catalog) getDB() (*sql.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.db == nil {
		return nil, errors.New("store: catalog is not initialized")
	}
	return c.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			plant TEXT NOT NULL,
			stepper TEXT NOT NULL,
			law TEXT NOT NULL,
			dt REAL NOT NULL,
			duration REAL NOT NULL,
			seed INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			metrics BLOB NOT NULL,
			trajectory BLOB NOT NULL
		);
	`)
	return err
}
