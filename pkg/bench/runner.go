package bench

import (
	"context"
	"time"

	"go.uber.org/zap"

	"rt-sensor-bench/pkg/dash"
	"rt-sensor-bench/pkg/diag"
	"rt-sensor-bench/pkg/record"
)

// Options carries the collaborators a backend needs beyond the experiment
// parameters. Zero-value fields get sane substitutes.
type Options struct {
	// Logger receives task-level logging; nil means no logging. When the
	// config disables logging, backends must replace it with a nop logger so
	// the hot path stays quiet.
	Logger *zap.Logger

	// Strategy selects the recorder synchronization under benchmark. Empty
	// defaults to StrategyExclusive.
	Strategy record.Strategy

	// Recorder, when non-nil, is used instead of constructing one from
	// Strategy. Callers that watch a run live pass the recorder in so they
	// hold a reference before the first cycle fires.
	Recorder record.Recorder

	// Diagnostics is shared with the caller so live exporters can read the
	// counters while the run is in flight. Nil allocates a private one.
	Diagnostics *diag.Diagnostics

	// Dashboard, when non-nil, receives snapshot events from the tasks.
	Dashboard *dash.Buffer

	// Observer, when non-nil, receives live jitter and filter-window signals.
	Observer Observer
}

// Normalize returns a copy of the options with the defaults filled in; the
// receiver itself is left unchanged.
func (o Options) Normalize(cfg ExperimentConfig) Options {
	if o.Logger == nil || !cfg.EnableLogging {
		o.Logger = zap.NewNop()
	}

	if o.Strategy == "" {
		o.Strategy = record.StrategyExclusive
	}

	if o.Diagnostics == nil {
		o.Diagnostics = diag.New()
	}

	return o
}

// Period returns the sensor tick interval configured for the experiment.
func (c ExperimentConfig) Period() time.Duration {
	return time.Duration(c.SensorPeriodMS) * time.Millisecond
}

// Duration returns the configured experiment length.
func (c ExperimentConfig) Duration() time.Duration {
	return time.Duration(c.DurationSecs) * time.Second
}

// Runner is one execution backend over the shared pipeline topology. Run
// blocks for the configured duration plus a small grace interval and returns
// the populated recorder. A zero-duration run returns an empty recorder.
type Runner interface {
	Name() string
	Run(ctx context.Context, cfg ExperimentConfig, opts Options) (record.Recorder, error)
}
