package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gboutry/defining-acceptance/internal/capability"
	"github.com/gboutry/defining-acceptance/internal/reporting"
	"github.com/gboutry/defining-acceptance/internal/scenario"
	"github.com/gboutry/defining-acceptance/pkg/logging"
)

// CategorySummary tallies the step results of one category's run
type CategorySummary struct {
	Category string
	Total    int
	Passed   int
	Failed   int
	Skipped  int
	Errors   int
	Overall  reporting.Outcome
	Duration time.Duration
}

// Summary is the outcome of a whole acceptance run
type Summary struct {
	RunID      string
	Categories []CategorySummary
	Duration   time.Duration
}

// Failed reports whether the run should exit non-zero. Skipped scenarios
// never fail a run; anything else short of passed does.
func (s *Summary) Failed() bool {
	for _, c := range s.Categories {
		if c.Overall != reporting.OutcomePassed {
			return true
		}
	}
	return false
}

// Runner drives resolved scenarios through an executor, streaming progress
// into a reporting sink. Categories run concurrently, each holding its
// own started/result/ended timeline.
type Runner struct {
	executor Executor
	sink     reporting.Sink
}

// New creates a runner reporting into sink
func New(executor Executor, sink reporting.Sink) *Runner {
	return &Runner{executor: executor, sink: sink}
}

// Run executes every resolution, one goroutine per category. Scenarios the
// resolver marked ineligible contribute a single skipped result carrying
// the resolver's reason. An error from the sink is a sequencing bug in the
// runner itself, not a delivery failure, and aborts that category.
func (r *Runner) Run(ctx context.Context, resolutions []capability.Resolution) (*Summary, error) {
	runID := reporting.GenerateCorrelationID()
	start := time.Now()
	logging.Info("Runner", "Starting acceptance run %s with %d scenarios", runID, len(resolutions))

	grouped := make(map[string][]capability.Resolution)
	for _, res := range resolutions {
		grouped[res.Scenario.Category] = append(grouped[res.Scenario.Category], res)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		errs    []error
		results = make(map[string]CategorySummary)
	)

	for _, category := range scenario.Categories() {
		categoryResolutions, ok := grouped[category]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(category string, resolutions []capability.Resolution) {
			defer wg.Done()
			catSummary, err := r.runCategory(ctx, category, resolutions)
			mu.Lock()
			defer mu.Unlock()
			results[category] = catSummary
			if err != nil {
				errs = append(errs, err)
			}
		}(category, categoryResolutions)
	}
	wg.Wait()

	summary := &Summary{RunID: runID}
	for _, category := range scenario.Categories() {
		if catSummary, ok := results[category]; ok {
			summary.Categories = append(summary.Categories, catSummary)
		}
	}
	summary.Duration = time.Since(start)

	if len(errs) > 0 {
		return summary, errors.Join(errs...)
	}
	if err := r.sink.Flush(); err != nil {
		return summary, fmt.Errorf("flushing report sink: %w", err)
	}
	logging.Info("Runner", "Run %s finished in %s", runID, summary.Duration.Round(time.Millisecond))
	return summary, nil
}

func (r *Runner) runCategory(ctx context.Context, category string, resolutions []capability.Resolution) (CategorySummary, error) {
	summary := CategorySummary{Category: category}
	start := time.Now()

	if err := r.sink.Emit(reporting.NewRunStarted(category)); err != nil {
		return summary, fmt.Errorf("category %s: emitting run start: %w", category, err)
	}

	// The step index is monotonic across the whole category, not per
	// scenario, so replayed timelines keep a total order.
	stepIndex := 0
	anyFailed := false
	cancelled := false

scenarios:
	for _, res := range resolutions {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		if !res.Verdict.Eligible {
			logging.Info("Runner", "Skipping scenario %q: %s", res.Scenario.Name, res.Verdict.Reason)
			summary.Total++
			summary.Skipped++
			event := reporting.NewStepResult(category, stepIndex, res.Scenario.Name, reporting.OutcomeSkipped, 0, res.Verdict.Reason)
			stepIndex++
			if err := r.sink.Emit(event); err != nil {
				return summary, fmt.Errorf("category %s: emitting skip for %q: %w", category, res.Scenario.Name, err)
			}
			continue
		}

		logging.Debug("Runner", "Running scenario %q with %d steps", res.Scenario.Name, len(res.Scenario.Steps))
		for _, step := range res.Scenario.Steps {
			if ctx.Err() != nil {
				cancelled = true
				break scenarios
			}

			stepStart := time.Now()
			outcome := r.executor.ExecuteStep(ctx, step)
			duration := time.Since(stepStart)

			summary.Total++
			switch outcome.Outcome {
			case reporting.OutcomePassed:
				summary.Passed++
			case reporting.OutcomeFailed:
				summary.Failed++
				anyFailed = true
			case reporting.OutcomeSkipped:
				summary.Skipped++
			default:
				summary.Errors++
				anyFailed = true
			}

			stepName := res.Scenario.Name + ": " + step.Name
			event := reporting.NewStepResult(category, stepIndex, stepName, outcome.Outcome, duration, outcome.Output)
			stepIndex++
			if err := r.sink.Emit(event); err != nil {
				return summary, fmt.Errorf("category %s: emitting result for %q: %w", category, stepName, err)
			}

			if outcome.Outcome == reporting.OutcomeFailed || outcome.Outcome == reporting.OutcomeError {
				logging.Warn("Runner", "Step %q %s, stopping scenario %q", step.Name, outcome.Outcome, res.Scenario.Name)
				continue scenarios
			}
		}
	}

	switch {
	case cancelled:
		summary.Overall = reporting.OutcomeEndedPrematurely
	case anyFailed:
		summary.Overall = reporting.OutcomeFailed
	default:
		summary.Overall = reporting.OutcomePassed
	}
	summary.Duration = time.Since(start)

	if err := r.sink.Emit(reporting.NewRunEnded(category, summary.Overall)); err != nil {
		return summary, fmt.Errorf("category %s: emitting run end: %w", category, err)
	}

	logging.Info("Runner", "Category %s %s: %d passed, %d failed, %d skipped, %d errors in %s",
		category, summary.Overall, summary.Passed, summary.Failed, summary.Skipped, summary.Errors,
		summary.Duration.Round(time.Millisecond))
	return summary, nil
}
