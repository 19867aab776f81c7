package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"ctrllab/internal/config"
	"ctrllab/internal/experiment"
	"ctrllab/internal/metrics"
)

// Objective scores one parameter combination. Lower is better.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

// GridSearch walks the cartesian product of per-parameter value lists
// and keeps the combination with the smallest objective.
type GridSearch struct {
	names  []string
	values [][]float64
}

func NewGridSearch(names []string, values [][]float64) (*GridSearch, error) {
	if len(names) == 0 {
		return nil, errors.New("optim: no parameters to search")
	}
	if len(names) != len(values) {
		return nil, fmt.Errorf("optim: %d names but %d value lists", len(names), len(values))
	}
	for i, vs := range values {
		if len(vs) == 0 {
			return nil, fmt.Errorf("optim: parameter %s has no values", names[i])
		}
	}
	return &GridSearch{names: names, values: values}, nil
}

// Size is the number of combinations the search will evaluate.
func (g *GridSearch) Size() int {
	n := 1
	for _, vs := range g.values {
		n *= len(vs)
	}
	return n
}

// Search evaluates every combination. Combinations whose objective
// errors are skipped; if none succeeds the first failure is returned.
func (g *GridSearch) Search(ctx context.Context, obj Objective) (map[string]float64, float64, error) {
	best := math.Inf(1)
	var bestParams map[string]float64
	var firstErr error

	current := make(map[string]float64, len(g.names))
	var walk func(depth int) error
	walk = func(depth int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if depth == len(g.names) {
			score, err := obj(ctx, cloneParams(current))
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return nil
			}
			if score < best {
				best = score
				bestParams = cloneParams(current)
			}
			return nil
		}
		for _, v := range g.values[depth] {
			current[g.names[depth]] = v
			if err := walk(depth + 1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(0); err != nil {
		return nil, 0, err
	}

	if bestParams == nil {
		if firstErr != nil {
			return nil, 0, fmt.Errorf("optim: no feasible combination: %w", firstErr)
		}
		return nil, 0, errors.New("optim: no feasible combination")
	}
	return bestParams, best, nil
}

// MetricObjective runs the experiment described by cfg with the swept
// values merged into its law parameters and scores it by one metric.
func MetricObjective(cfg *config.Config, metric string) Objective {
	return func(ctx context.Context, params map[string]float64) (float64, error) {
		c := cfg.Clone()
		if c.LawParams == nil {
			c.LawParams = make(map[string]float64, len(params))
		}
		for k, v := range params {
			c.LawParams[k] = v
		}

		exp, err := experiment.New(c)
		if err != nil {
			return 0, err
		}
		// A pid sweep is a step-response tuning problem, so the step
		// metrics join the defaults as candidate objectives.
		if sp, ok := c.LawParams["setpoint"]; ok && c.Law == "pid" {
			idx := int(c.LawParams["index"])
			exp.Runner().AddMetric(metrics.NewRiseTime(idx, sp))
			exp.Runner().AddMetric(metrics.NewOvershoot(idx, sp))
			exp.Runner().AddMetric(metrics.NewSettlingTime(idx, sp))
		}
		res, err := exp.Run(ctx)
		if err != nil {
			return 0, err
		}
		score, ok := res.Metrics[metric]
		if !ok {
			return 0, fmt.Errorf("optim: run produced no metric %q", metric)
		}
		// rise_time reports -1 when the response never covers the step;
		// minimizing would reward that failure, so reject it.
		if metric == "rise_time" && score < 0 {
			return 0, errors.New("optim: response never rose")
		}
		return score, nil
	}
}

// Linspace spans [lo, hi] with n evenly spaced values.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

func cloneParams(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
