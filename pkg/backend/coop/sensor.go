package coop

import (
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"rt-sensor-bench/pkg/bench"
	"rt-sensor-bench/pkg/dash"
	"rt-sensor-bench/pkg/model"
	"rt-sensor-bench/pkg/record"
	"rt-sensor-bench/pkg/sched"
	"rt-sensor-bench/pkg/sense"
)

// runSensor mirrors the threaded sensor but suspends on a timer channel for
// its absolute schedule and yields explicitly at the end of every cycle.
func runSensor(
	cfg bench.ExperimentConfig,
	opts bench.Options,
	clock *sched.Clock,
	shutdown *atomic.Bool,
	sensorCh chan<- model.SensorSample,
	feedbackCh <-chan model.ActuatorFeedback,
	recorder record.Recorder,
	logger *zap.Logger,
) {
	defer close(sensorCh)

	core := sense.NewCore(opts.Diagnostics, logger)
	waker := sched.NewWaker(clock, cfg.Period())

	timer := time.NewTimer(0)
	defer timer.Stop()

	if !timer.Stop() {
		<-timer.C
	}

	for !shutdown.Load() {
		timer.Reset(time.Until(waker.Next()))
		<-timer.C

		wake := waker.Advance()

		// Shutdown may have landed during the timer wait; do not start a
		// cycle past the experiment window.
		if shutdown.Load() {
			return
		}

		processingStart := time.Now()
		sample := core.Measure()
		sample.OriginTimestampNS = clock.SinceNS(wake.Actual)
		processing := time.Since(processingStart)

		transmitStart := time.Now()
		sent := trySend(sensorCh, sample)
		transmit := time.Since(transmitStart)

		lateness := sensorLateness(processing, transmit, sent)

		recorder.Record(record.CycleRecord{
			CycleID:          sample.ID,
			Mode:             cfg.ModeTag,
			ProcessingTimeNS: uint64(processing),
			DeadlineMet:      lateness == 0,
			LatenessNS:       int64(lateness),
		})

		if opts.Observer != nil {
			opts.Observer.ObserveJitter(wake.Jitter)
			opts.Observer.ObserveFilterWindow(core.WindowSize())
		}

		if opts.Dashboard != nil {
			opts.Dashboard.Add(dash.Event{
				TimestampNS: sample.OriginTimestampNS,
				Sample:      &sample,
			})
		}

		if !sent {
			logger.Debug("sample dropped, dispatcher queue full", zap.Uint64("cycle", sample.ID))
		}

		drainFeedback(core, &feedbackCh)
		core.AdvanceCycle()
		runtime.Gosched()
	}
}

// sensorLateness folds the processing and transmission budgets into one
// overshoot; a refused enqueue forfeits the whole transmission budget.
func sensorLateness(processing, transmit time.Duration, sent bool) time.Duration {
	processingOver := overshoot(processing, sense.ProcessingDeadline)
	transmitOver := overshoot(transmit, sense.TransmitDeadline)

	if !sent && transmitOver < sense.TransmitDeadline {
		transmitOver = sense.TransmitDeadline
	}

	if processingOver > transmitOver {
		return processingOver
	}

	return transmitOver
}

func overshoot(elapsed, deadline time.Duration) time.Duration {
	if elapsed > deadline {
		return elapsed - deadline
	}

	return 0
}

func drainFeedback(core *sense.Core, feedbackCh *<-chan model.ActuatorFeedback) {
	for {
		select {
		case fb, ok := <-*feedbackCh:
			if !ok {
				*feedbackCh = nil

				return
			}

			core.ApplyFeedback(fb)
		default:
			return
		}
	}
}
