package coop

import (
	"go.uber.org/zap"

	"rt-sensor-bench/pkg/model"
)

// runDispatcher fans every sensor sample out to all actuator queues. The
// closed sensor queue is its only exit signal: the close cascades from the
// sensor within one period of shutdown.
func runDispatcher(
	sensorCh <-chan model.SensorSample,
	actuatorChs map[model.ActuatorKind]chan model.SensorSample,
	logger *zap.Logger,
) {
	defer func() {
		for _, ch := range actuatorChs {
			close(ch)
		}
	}()

	for sample := range sensorCh {
		for _, kind := range model.Kinds {
			if !trySend(actuatorChs[kind], sample) {
				logger.Debug("actuator queue full, sample lost",
					zap.Stringer("actuator", kind),
					zap.Uint64("cycle", sample.ID),
				)
			}
		}
	}
}
