// Package automation runs scripted batches of headless sorts described in yaml.
package automation

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/sortviz/internal/config"
	"github.com/san-kum/sortviz/internal/dataset"
	"github.com/san-kum/sortviz/internal/loader"
	"github.com/san-kum/sortviz/internal/metrics"
	"github.com/san-kum/sortviz/internal/render"
	"github.com/san-kum/sortviz/internal/runner"
)

const surfaceSide = 64

// Scenario is a named sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep runs a preset, or inline code, Repeat times.
type ScenarioStep struct {
	Preset string `yaml:"preset"`
	Code   string `yaml:"code"`
	Size   int    `yaml:"size"`
	Skip   int    `yaml:"skip"`
	Seed   int64  `yaml:"seed"`
	Repeat int    `yaml:"repeat"`
}

type StepResult struct {
	Step      int
	Preset    string
	Size      int
	Skip      int
	Outcome   runner.Outcome
	Err       error
	Snapshots uint64
	Elapsed   time.Duration
	Summary   string
	Sorted    bool
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

// Batch executes scenarios against a preset catalog.
type Batch struct {
	catalog *config.Catalog
	loader  *loader.Loader
	logger  *zap.Logger
}

func NewBatch(catalog *config.Catalog, l *loader.Loader, logger *zap.Logger) *Batch {
	if catalog == nil {
		catalog = config.DefaultCatalog()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batch{catalog: catalog, loader: l, logger: logger}
}

// Run executes every step in order. A failing algorithm is recorded in its StepResult; a
// step that cannot be set up stops the batch. Cancelling ctx cancels the active run and
// skips the remaining steps.
func (b *Batch) Run(ctx context.Context, scenario *Scenario) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		preset, err := b.resolve(step)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		algo, err := b.loader.Load(preset.Code)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		repeat := max(step.Repeat, 1)
		for n := 0; n < repeat; n++ {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			seed := step.Seed
			if seed != 0 {
				seed += int64(n)
			}
			res, err := b.runStep(ctx, preset, algo, seed)
			if err != nil {
				return results, fmt.Errorf("step %d: %w", i+1, err)
			}
			res.Step = i + 1
			b.logger.Info("step finished",
				zap.Int("step", res.Step),
				zap.String("preset", res.Preset),
				zap.Stringer("outcome", res.Outcome),
				zap.Duration("elapsed", res.Elapsed))
			results = append(results, res)
		}
	}
	return results, nil
}

func (b *Batch) resolve(step ScenarioStep) (config.Preset, error) {
	var p config.Preset
	switch {
	case step.Preset != "":
		found := b.catalog.Get(step.Preset)
		if found == nil {
			return p, fmt.Errorf("unknown preset: %s", step.Preset)
		}
		p = *found
	case step.Code != "":
		p = config.Preset{Name: "Custom", Size: 1024, Skip: 1}
	default:
		return p, fmt.Errorf("preset or code is required")
	}
	if step.Code != "" {
		p.Code = step.Code
	}
	if step.Size > 0 {
		p.Size = step.Size
	}
	if step.Skip > 0 {
		p.Skip = step.Skip
	}
	return p, p.Validate()
}

func (b *Batch) runStep(ctx context.Context, p config.Preset, algo runner.AlgorithmFunc, seed int64) (StepResult, error) {
	surface, err := render.NewImageSurface(surfaceSide, surfaceSide)
	if err != nil {
		return StepResult{}, err
	}
	defer surface.Close()

	recorder := metrics.NewRecorder(render.NewGridRenderer(surface, render.Immediate))
	throttle, err := render.NewThrottle(recorder, p.Skip)
	if err != nil {
		return StepResult{}, err
	}
	r := runner.New(throttle, runner.WithLogger(b.logger))

	stop := context.AfterFunc(ctx, r.Cancel)
	defer stop()

	data := dataset.Shuffled(p.Size, seed)
	start := time.Now()
	outcome, runErr := r.Run(context.WithoutCancel(ctx), algo, data)
	elapsed := time.Since(start)
	if outcome != runner.Failed {
		if err := recorder.RenderNow(data); err != nil {
			return StepResult{}, err
		}
	}

	return StepResult{
		Preset:    p.Name,
		Size:      p.Size,
		Skip:      p.Skip,
		Outcome:   outcome,
		Err:       runErr,
		Snapshots: throttle.Frames(),
		Elapsed:   elapsed,
		Summary:   recorder.Summary(),
		Sorted:    dataset.IsSorted(data),
	}, nil
}
