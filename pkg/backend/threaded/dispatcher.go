package threaded

import (
	"time"

	"go.uber.org/zap"

	"rt-sensor-bench/pkg/model"
)

// runDispatcher fans every sensor sample out to all actuator queues. An
// actuator whose queue is full simply misses that cycle; the drop shows up
// as a missing record downstream, not as an error here.
func runDispatcher(
	sensorCh <-chan model.SensorSample,
	actuatorChs map[model.ActuatorKind]chan model.SensorSample,
	logger *zap.Logger,
) {
	// The actuator queues close when the sensor queue is closed and drained.
	defer func() {
		for _, ch := range actuatorChs {
			close(ch)
		}
	}()

	for {
		select {
		case sample, ok := <-sensorCh:
			if !ok {
				return
			}

			fanOut(sample, actuatorChs, logger)
		case <-time.After(receiveTimeout):
			// Bounded wait; the closed sensor queue is the actual exit signal.
		}
	}
}

func fanOut(
	sample model.SensorSample,
	actuatorChs map[model.ActuatorKind]chan model.SensorSample,
	logger *zap.Logger,
) {
	for _, kind := range model.Kinds {
		if !trySend(actuatorChs[kind], sample) {
			logger.Debug("actuator queue full, sample lost",
				zap.Stringer("actuator", kind),
				zap.Uint64("cycle", sample.ID),
			)
		}
	}
}
