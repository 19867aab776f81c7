package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sync"

	"ctrllab/internal/loop"
)

// Ensemble fans one rollout out into perturbed replicas. Every replica gets
// its own law clone, its own stepper and its own metric instances, so the
// replicas share nothing mutable.
type Ensemble struct {
	sys        loop.System
	law        loop.Law
	newStepper func() loop.Stepper

	// Runs is the number of replicas; replica 0 starts exactly at x0.
	Runs int

	// Spread scales the gaussian jitter applied per state component to
	// the initial states of replicas 1..Runs-1.
	Spread float64

	// Workers bounds rollout concurrency; 0 means NumCPU.
	Workers int

	// NewMetrics, when set, supplies fresh metric instances per replica.
	NewMetrics func() []loop.Metric
}

// NewEnsemble builds an ensemble around a plant, a stepper factory and the
// law all replicas derive their clones from.
func NewEnsemble(sys loop.System, newStepper func() loop.Stepper, l loop.Law) *Ensemble {
	return &Ensemble{
		sys:        sys,
		law:        l,
		newStepper: newStepper,
		Runs:       16,
		Spread:     0.01,
	}
}

// Run executes all replicas and returns their results indexed by replica.
// Failed replicas leave a nil slot; the combined error names each failure
// by index.
func (e *Ensemble) Run(ctx context.Context, x0 loop.State, cfg loop.Config) ([]*loop.Result, error) {
	if e.Runs <= 0 {
		return nil, fmt.Errorf("%w: ensemble of %d runs", loop.ErrNonPositiveDim, e.Runs)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > e.Runs {
		workers = e.Runs
	}

	results := make([]*loop.Result, e.Runs)
	errs := make([]error, e.Runs)
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx], errs[idx] = e.rollout(ctx, idx, x0, cfg)
			}
		}()
	}

	for i := 0; i < e.Runs; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var joined []error
	for i, err := range errs {
		if err != nil {
			joined = append(joined, fmt.Errorf("replica %d: %w", i, err))
		}
	}
	return results, errors.Join(joined...)
}

func (e *Ensemble) rollout(ctx context.Context, idx int, x0 loop.State, cfg loop.Config) (*loop.Result, error) {
	cfg.Seed += int64(idx)

	start := x0.Clone()
	if idx > 0 && e.Spread > 0 {
		rng := rand.New(rand.NewSource(cfg.Seed))
		for i := range start {
			start[i] += e.Spread * rng.NormFloat64()
		}
	}

	r, err := New(e.sys, e.newStepper(), e.law.Clone())
	if err != nil {
		return nil, err
	}
	if e.NewMetrics != nil {
		for _, m := range e.NewMetrics() {
			r.AddMetric(m)
		}
	}
	return r.Run(ctx, start, cfg)
}
