// Package coop is the cooperative execution backend: tasks are goroutines on
// the shared scheduler that suspend only at channel operations, timer waits,
// and explicit yields. The topology and observable behavior match the
// threaded backend; only the timing distribution differs.
package coop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"rt-sensor-bench/pkg/bench"
	"rt-sensor-bench/pkg/load"
	"rt-sensor-bench/pkg/model"
	"rt-sensor-bench/pkg/record"
	"rt-sensor-bench/pkg/sched"
)

// Runner implements bench.Runner on cooperative tasks.
type Runner struct{}

// New constructs the cooperative backend.
func New() *Runner {
	return &Runner{}
}

// Name identifies the backend in reports and CSV file names.
func (*Runner) Name() string {
	return "coop"
}

// Run wires the topology, executes the experiment for the configured
// duration, and returns the populated recorder. A zero duration returns an
// empty recorder without spawning any task.
func (r *Runner) Run(ctx context.Context, cfg bench.ExperimentConfig, opts bench.Options) (record.Recorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts = opts.Normalize(cfg)

	recorder := opts.Recorder
	if recorder == nil {
		var err error

		recorder, err = record.New(opts.Strategy)
		if err != nil {
			return nil, err
		}
	}

	if cfg.DurationSecs == 0 {
		return recorder, nil
	}

	logger := opts.Logger.Named("coop")

	loadCtx, stopLoad := context.WithCancel(ctx)
	defer stopLoad()

	if cfg.CPULoadThreads > 0 {
		generator, err := load.NewGenerator(cfg.CPULoadThreads, cfg.CPULoadDuty)
		if err != nil {
			return nil, err
		}

		generator.Start(loadCtx)
		logger.Info("background load started",
			zap.Int("workers", generator.Workers()),
			zap.Float64("duty", generator.Duty()),
		)
	}

	clock := sched.NewClock()

	var shutdown atomic.Bool

	sensorCh := make(chan model.SensorSample, cfg.QueueCapacity)
	feedbackCh := make(chan model.ActuatorFeedback, cfg.QueueCapacity)

	actuatorChs := make(map[model.ActuatorKind]chan model.SensorSample, len(model.Kinds))
	for _, kind := range model.Kinds {
		actuatorChs[kind] = make(chan model.SensorSample, cfg.QueueCapacity)
	}

	var tasks sync.WaitGroup

	var actuators sync.WaitGroup

	tasks.Add(1)

	go func() {
		defer tasks.Done()
		runSensor(cfg, opts, clock, &shutdown, sensorCh, feedbackCh, recorder, logger)
	}()

	tasks.Add(1)

	go func() {
		defer tasks.Done()
		runDispatcher(sensorCh, actuatorChs, logger)
	}()

	for _, kind := range model.Kinds {
		tasks.Add(1)
		actuators.Add(1)

		go func(kind model.ActuatorKind) {
			defer tasks.Done()
			defer actuators.Done()
			runActuator(kind, cfg, opts, clock, actuatorChs[kind], feedbackCh, recorder, logger)
		}(kind)
	}

	go func() {
		actuators.Wait()
		close(feedbackCh)
	}()

	timer := time.NewTimer(cfg.Duration())
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}

	shutdown.Store(true)
	tasks.Wait()

	logger.Info("experiment finished",
		zap.String("experiment", cfg.ExperimentName),
		zap.Int("records", recorder.Len()),
		zap.Uint64("missedDeadlines", recorder.MissedDeadlines()),
	)

	return recorder, nil
}

func trySend[T any](ch chan<- T, value T) bool {
	select {
	case ch <- value:
		return true
	default:
		return false
	}
}
