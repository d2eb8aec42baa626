package progress

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Tracker tracks pipeline step progress
type Tracker struct {
	bar       *progressbar.ProgressBar
	total     int
	done      atomic.Int64
	startTime time.Time
}

// New creates a tracker for a pipeline of totalSteps steps
func New(totalSteps int) *Tracker {
	t := &Tracker{
		total:     totalSteps,
		startTime: time.Now(),
	}
	t.bar = progressbar.NewOptions(
		totalSteps,
		progressbar.OptionSetDescription("Starting"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetItsString("steps"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
	return t
}

// StartStep updates the bar description to the running step's name
func (t *Tracker) StartStep(name string) {
	if t.bar != nil {
		t.bar.Describe(name)
	}
}

// StepDone marks one step finished
func (t *Tracker) StepDone() {
	t.done.Add(1)
	if t.bar != nil {
		t.bar.Add(1)
	}
}

// Finish completes the bar and prints a summary
func (t *Tracker) Finish(failed int) {
	if t.bar != nil {
		t.bar.Finish()
	}

	elapsed := time.Since(t.startTime)
	fmt.Println()
	if failed > 0 {
		fmt.Printf("Completed %d of %d steps in %s (%d failed)\n",
			t.done.Load(), t.total, elapsed.Round(time.Second), failed)
		return
	}
	fmt.Printf("Completed %d steps in %s\n", t.done.Load(), elapsed.Round(time.Second))
}
