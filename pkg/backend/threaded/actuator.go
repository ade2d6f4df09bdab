package threaded

import (
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"rt-sensor-bench/pkg/act"
	"rt-sensor-bench/pkg/bench"
	"rt-sensor-bench/pkg/dash"
	"rt-sensor-bench/pkg/model"
	"rt-sensor-bench/pkg/pid"
	"rt-sensor-bench/pkg/record"
	"rt-sensor-bench/pkg/sched"
)

// runActuator consumes one sample stream against its kind's deadline. The
// cycle is recorded before feedback is emitted so the stored processing time
// stays independent of feedback-queue contention.
func runActuator(
	kind model.ActuatorKind,
	cfg bench.ExperimentConfig,
	opts bench.Options,
	clock *sched.Clock,
	shutdown *atomic.Bool,
	inCh <-chan model.SensorSample,
	feedbackCh chan<- model.ActuatorFeedback,
	recorder record.Recorder,
	logger *zap.Logger,
) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	core := act.NewCore(kind, pid.New(pid.DefaultGains), logger)
	core.SetWorkload(time.Duration(cfg.ProcessingTimeNS))

	dt := float64(cfg.SensorPeriodMS) / 1000.0

	for {
		select {
		case sample, ok := <-inCh:
			if !ok {
				return
			}

			handleSample(core, sample, dt, cfg, opts, clock, feedbackCh, recorder, logger)
		case <-time.After(receiveTimeout):
			if shutdown.Load() {
				return
			}
		}
	}
}

func handleSample(
	core *act.Core,
	sample model.SensorSample,
	dt float64,
	cfg bench.ExperimentConfig,
	opts bench.Options,
	clock *sched.Clock,
	feedbackCh chan<- model.ActuatorFeedback,
	recorder record.Recorder,
	logger *zap.Logger,
) {
	outcome := core.Process(sample, dt)

	nowNS := clock.NowNS()

	latency := uint64(0)
	if nowNS > sample.OriginTimestampNS {
		latency = nowNS - sample.OriginTimestampNS
	}

	kind := core.Kind()

	cycle := record.CycleRecord{
		CycleID:          sample.ID,
		Mode:             cfg.ModeTag,
		Actuator:         &kind,
		TotalLatencyNS:   latency,
		ProcessingTimeNS: uint64(outcome.ProcessingTime),
		DeadlineMet:      outcome.DeadlineMet,
		LatenessNS:       int64(outcome.Lateness),
	}

	stored := recorder.Record(cycle)

	feedback := model.ActuatorFeedback{
		SensorID:        sample.ID,
		Status:          outcome.Status,
		ControlOutput:   outcome.ControlOutput,
		Error:           outcome.Error,
		EmitTimestampNS: clock.NowNS(),
	}

	emitStart := time.Now()
	sent := trySend(feedbackCh, feedback)
	emit := time.Since(emitStart)

	if emit > act.FeedbackEmitDeadline {
		logger.Debug("feedback emission over budget",
			zap.Stringer("actuator", kind),
			zap.Duration("emit", emit),
		)
	}

	if !sent {
		// Expected under contention: the feedback queue favors freshness over
		// completeness.
		logger.Debug("feedback dropped, queue full",
			zap.Stringer("actuator", kind),
			zap.Uint64("cycle", sample.ID),
		)
	}

	if opts.Dashboard != nil {
		opts.Dashboard.Add(dash.Event{
			TimestampNS: feedback.EmitTimestampNS,
			Feedback:    &dash.KindFeedback{Kind: kind, Feedback: feedback},
			Metrics: &dash.MetricsSnapshot{
				CycleID:          stored.CycleID,
				ProcessingTimeNS: stored.ProcessingTimeNS,
				LockWaitNS:       stored.LockWaitNS,
				TotalLatencyNS:   stored.TotalLatencyNS,
				DeadlineMet:      stored.DeadlineMet,
				LatenessNS:       stored.LatenessNS,
			},
		})
	}
}
