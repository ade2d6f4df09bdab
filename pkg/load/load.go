// Package load generates background CPU pressure while an experiment runs,
// so timing distributions can be compared under a contended host.
package load

import (
	"context"
	"errors"
	"math"
	"runtime"
	"time"
)

// slice is the busy+idle cadence each worker repeats. Short enough that the
// pressure looks continuous at millisecond sensor periods, long enough that
// the sleep/wake overhead stays negligible.
const slice = 4 * time.Millisecond

var errNoWorkers = errors.New("load: worker count must be positive")

// Generator drives workers that alternate a busy burst with a sleep inside a
// fixed slice. The duty ratio is set once per run: background noise for a
// benchmark is a constant, not a control target, so the split is computed at
// construction and workers share it read-only.
type Generator struct {
	workers int
	duty    float64
	busy    time.Duration
	idle    time.Duration

	spin  func(time.Duration)
	sleep func(time.Duration)
}

// NewGenerator constructs a generator with the given worker count and duty
// ratio in [0,1]. NaN and out-of-range ratios are clamped.
func NewGenerator(workers int, duty float64) (*Generator, error) {
	if workers <= 0 {
		return nil, errNoWorkers
	}

	if math.IsNaN(duty) || duty < 0 {
		duty = 0
	} else if duty > 1 {
		duty = 1
	}

	busy := time.Duration(duty * float64(slice))

	return &Generator{
		workers: workers,
		duty:    duty,
		busy:    busy,
		idle:    slice - busy,
		spin:    spinFor,
		sleep:   time.Sleep,
	}, nil
}

// Start launches the workers. They terminate when the context is cancelled.
func (g *Generator) Start(ctx context.Context) {
	for range g.workers {
		go g.run(ctx)
	}
}

// Duty returns the configured busy ratio.
func (g *Generator) Duty() float64 {
	return g.duty
}

// Workers reports the configured worker count.
func (g *Generator) Workers() int {
	return g.workers
}

func (g *Generator) run(ctx context.Context) {
	for ctx.Err() == nil {
		if g.busy > 0 {
			g.spin(g.busy)
		}

		if g.idle > 0 {
			g.sleep(g.idle)
		} else {
			// Fully busy: still give the scheduler a seam between slices.
			runtime.Gosched()
		}
	}
}

// sink keeps the spin loop's work observable so it cannot be elided.
var sink uint64

// spinFor burns the CPU with integer arithmetic until the deadline passes.
// This is deliberate load, not a wait: the point is to occupy an execution
// unit the pipeline tasks would otherwise have to themselves.
func spinFor(d time.Duration) {
	deadline := time.Now().Add(d)

	x := uint64(time.Now().UnixNano()) | 1
	for time.Now().Before(deadline) {
		// LCG step; cheap, dependency-chained, and impossible to hoist.
		x = x*6364136223846793005 + 1442695040888963407
	}

	sink = x
}
