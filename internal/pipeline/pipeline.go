// Package pipeline runs an ordered list of named steps.
//
// Steps always run in sequence and a step's failure never stops the ones
// after it. Failures from steps the operator needs to see are surfaced
// through logging; everything is reported in the returned results.
package pipeline

import (
	"context"
	"time"

	"github.com/wrgoldstein/copypg/internal/logging"
	"github.com/wrgoldstein/copypg/internal/progress"
)

// Step is a single named pipeline operation.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result is the recorded outcome of one step.
type Result struct {
	Name     string
	Err      error
	Duration time.Duration
}

// Status renders the result as a history status string.
func (r Result) Status() string {
	if r.Err != nil {
		return "failed"
	}
	return "success"
}

// Execute runs every step in order and returns one result per step.
// tracker may be nil.
func Execute(ctx context.Context, steps []Step, tracker *progress.Tracker) []Result {
	results := make([]Result, 0, len(steps))

	for _, step := range steps {
		if tracker != nil {
			tracker.StartStep(step.Name)
		}
		logging.Info("%s...", step.Name)

		start := time.Now()
		err := step.Run(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logging.Warn("%s failed: %v", step.Name, err)
		} else {
			logging.Info("%s...done (%s)", step.Name, elapsed.Round(time.Millisecond))
		}

		results = append(results, Result{Name: step.Name, Err: err, Duration: elapsed})
		if tracker != nil {
			tracker.StepDone()
		}
	}

	if tracker != nil {
		tracker.Finish(CountFailed(results))
	}

	return results
}

// CountFailed returns the number of failed results.
func CountFailed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
