// Package scenarios defines E2E scenarios that exercise a real llmbridge
// worker process over the stdio frame protocol.
package scenarios

import (
	"context"
	"time"
)

// Scenario is one end-to-end exercise against a spawned worker.
type Scenario interface {
	// Name returns the scenario name for identification and reporting.
	Name() string

	// Description says what the scenario proves.
	Description() string

	// Setup spawns and prepares the worker under test.
	Setup(ctx context.Context) error

	// Execute runs the scenario. A failed stage is reported through the
	// Result; the error return is for harness-level breakage only.
	Execute(ctx context.Context) (*Result, error)

	// Teardown reaps the worker and restores the environment.
	Teardown(ctx context.Context) error
}

// Result is the outcome of one scenario run.
type Result struct {
	ScenarioName string        `json:"scenario_name"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Duration     time.Duration `json:"duration"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	Metrics  map[string]any `json:"metrics,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Errors   []string       `json:"errors,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

// newResult seeds a Result for a starting scenario.
func newResult(name string) *Result {
	return &Result{
		ScenarioName: name,
		StartTime:    time.Now(),
		Metrics:      make(map[string]any),
		Details:      make(map[string]any),
	}
}

// finish stamps the end time and duration.
func (r *Result) finish(success bool) *Result {
	r.Success = success
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	return r
}

// stage is one named step of a scenario.
type stage struct {
	name string
	fn   func(context.Context, *Result) error
}

// runStages executes stages in order, recording per-stage durations. The
// first failure stops the run and lands in the Result.
func runStages(ctx context.Context, result *Result, stages []stage) *Result {
	for _, s := range stages {
		start := time.Now()
		if err := s.fn(ctx, result); err != nil {
			result.Error = s.name + " failed: " + err.Error()
			result.Errors = append(result.Errors, result.Error)
			return result.finish(false)
		}
		result.Metrics[s.name+"_duration_ms"] = time.Since(start).Milliseconds()
	}
	return result.finish(true)
}
