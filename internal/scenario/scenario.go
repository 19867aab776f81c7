package scenario

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ctrllab/internal/config"
	"ctrllab/internal/experiment"
	"ctrllab/internal/loop"
	"ctrllab/internal/store"
)

// Batch is a yaml-scripted sequence of runs. The base block is merged
// over the defaults and each step's config block over the base, so
// steps only state what they change.
type Batch struct {
	Name        string
	Description string
	Steps       []Step
}

// Step is one named run of a batch, resolved to a complete config.
type Step struct {
	Name   string
	SaveAs string
	Config *config.Config
}

type batchDoc struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Base        yaml.Node `yaml:"base"`
	Runs        []stepDoc `yaml:"runs"`
}

type stepDoc struct {
	Name   string    `yaml:"name"`
	SaveAs string    `yaml:"save_as"`
	Config yaml.Node `yaml:"config"`
}

// Load reads a batch file and resolves every step.
func Load(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse resolves batch yaml into runnable steps. Step configs are
// decoded onto clones of the base, which is how overrides merge.
func Parse(data []byte) (*Batch, error) {
	var doc batchDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("scenario: parse batch: %w", err)
	}
	if len(doc.Runs) == 0 {
		return nil, fmt.Errorf("scenario: batch %q has no runs", doc.Name)
	}

	base := config.DefaultConfig()
	if doc.Base.Kind != 0 {
		if err := doc.Base.Decode(base); err != nil {
			return nil, fmt.Errorf("scenario: decode base: %w", err)
		}
	}

	b := &Batch{
		Name:        doc.Name,
		Description: doc.Description,
		Steps:       make([]Step, 0, len(doc.Runs)),
	}
	for i, sd := range doc.Runs {
		cfg := base.Clone()
		if sd.Config.Kind != 0 {
			if err := sd.Config.Decode(cfg); err != nil {
				return nil, fmt.Errorf("scenario: step %d: %w", i+1, err)
			}
		}
		name := sd.Name
		if name == "" {
			name = fmt.Sprintf("%s-%d", cfg.Plant, i+1)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("scenario: step %q: %w", name, err)
		}
		b.Steps = append(b.Steps, Step{Name: name, SaveAs: sd.SaveAs, Config: cfg})
	}
	return b, nil
}

// StepResult pairs a step with its rollout and, when persisted, the
// catalog id it was saved under.
type StepResult struct {
	Step    Step
	RunID   string
	Rollout *loop.Result
}

// Runner executes batches in order, persisting the steps that ask for
// it. A failing step stops the batch; the results so far are returned
// alongside the error.
type Runner struct {
	// Catalog receives steps carrying save_as; nil makes save_as an error.
	Catalog *store.Catalog

	// Logf reports per-step progress; nil runs silently.
	Logf func(format string, args ...any)
}

func (r *Runner) Run(ctx context.Context, b *Batch) ([]StepResult, error) {
	results := make([]StepResult, 0, len(b.Steps))
	for i, step := range b.Steps {
		r.logf("step %d/%d: %s", i+1, len(b.Steps), step.Name)

		exp, err := experiment.New(step.Config)
		if err != nil {
			return results, fmt.Errorf("scenario: step %q: %w", step.Name, err)
		}
		rollout, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("scenario: step %q: %w", step.Name, err)
		}

		sr := StepResult{Step: step, Rollout: rollout}
		if step.SaveAs != "" {
			if r.Catalog == nil {
				return results, fmt.Errorf("scenario: step %q wants save_as but no catalog is attached", step.Name)
			}
			run := store.Run{
				ID:       step.SaveAs,
				Plant:    step.Config.Plant,
				Stepper:  step.Config.Stepper,
				Law:      step.Config.Law,
				Dt:       step.Config.Dt,
				Duration: step.Config.Duration,
				Seed:     step.Config.Seed,
			}
			if err := r.Catalog.SaveRun(ctx, run, rollout); err != nil {
				return results, fmt.Errorf("scenario: save step %q: %w", step.Name, err)
			}
			sr.RunID = run.ID
		}
		results = append(results, sr)
	}
	return results, nil
}

func (r *Runner) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
	}
}
