package coop

import (
	"runtime"
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

// runActuator consumes its sample stream until the queue closes, recording
// each cycle before emitting feedback and yielding between samples.
func runActuator(
	kind model.ActuatorKind,
	cfg bench.ExperimentConfig,
	opts bench.Options,
	clock *sched.Clock,
	inCh <-chan model.SensorSample,
	feedbackCh chan<- model.ActuatorFeedback,
	recorder record.Recorder,
	logger *zap.Logger,
) {
	core := act.NewCore(kind, pid.New(pid.DefaultGains), logger)
	core.SetWorkload(time.Duration(cfg.ProcessingTimeNS))

	dt := float64(cfg.SensorPeriodMS) / 1000.0

	for sample := range inCh {
		outcome := core.Process(sample, dt)

		nowNS := clock.NowNS()

		latency := uint64(0)
		if nowNS > sample.OriginTimestampNS {
			latency = nowNS - sample.OriginTimestampNS
		}

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

		runtime.Gosched()
	}
}
