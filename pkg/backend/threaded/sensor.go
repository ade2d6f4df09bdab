package threaded

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

// runSensor produces one sample per period on an absolute wake schedule,
// records its own processing and transmission budgets, and recalibrates from
// whatever feedback arrived since the last tick.
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
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	// Closing the sample queue is the dispatcher's shutdown signal.
	defer close(sensorCh)

	core := sense.NewCore(opts.Diagnostics, logger)
	waker := sched.NewWaker(clock, cfg.Period())

	for !shutdown.Load() {
		wake := waker.Wait()

		// Shutdown may have landed during the sleep; do not start a cycle
		// past the experiment window.
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
	}
}

// sensorLateness folds the two per-cycle budgets into one overshoot. A
// refused enqueue forfeits the whole transmission budget, so a dropped cycle
// always carries positive lateness.
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

// drainFeedback applies every queued feedback item without blocking. A
// closed queue is parked as nil so later drains fall straight through.
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
