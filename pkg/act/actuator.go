// Package act implements the actuator-side cycle logic: PID control against
// the sampled position, hysteretic status classification, and the per-kind
// processing deadline accounting.
package act

import (
	"math"
	"time"

	"go.uber.org/zap"

	"rt-sensor-bench/pkg/model"
	"rt-sensor-bench/pkg/pid"
)

// FeedbackEmitDeadline is the informational budget for pushing feedback into
// the return queue. Overshooting it is logged, never folded into the cycle's
// deadline verdict.
const FeedbackEmitDeadline = 500 * time.Microsecond

const (
	emergencyError = 10.0

	initialErrorThreshold = 5.0
	thresholdFloor        = 3.0
	thresholdCap          = 7.0
	tightenBelow          = 2.0
	relaxAbove            = 8.0
	tightenFactor         = 0.99
	relaxFactor           = 1.01
)

// Outcome is the result of processing one sample.
type Outcome struct {
	Status         model.ActuatorStatus
	ControlOutput  float64
	Error          float64
	ProcessingTime time.Duration
	DeadlineMet    bool
	Lateness       time.Duration
}

// Core holds one actuator's control state. Each actuator task owns exactly
// one Core; it is not safe for concurrent use.
type Core struct {
	kind       model.ActuatorKind
	deadline   time.Duration
	controller *pid.Controller
	logger     *zap.Logger

	errorThreshold float64
	injectSpin     time.Duration

	now func() time.Time
}

// NewCore constructs actuator state for the given kind.
func NewCore(kind model.ActuatorKind, controller *pid.Controller, logger *zap.Logger) *Core {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Core{
		kind:           kind,
		deadline:       kind.Deadline(),
		controller:     controller,
		logger:         logger,
		errorThreshold: initialErrorThreshold,
		now:            time.Now,
	}
}

// SetWorkload configures the busy-spin injected into every cycle, used to
// benchmark behavior under synthetic processing cost.
func (c *Core) SetWorkload(d time.Duration) {
	c.injectSpin = d
}

// Kind returns the actuator identity.
func (c *Core) Kind() model.ActuatorKind {
	return c.kind
}

// ErrorThreshold exposes the adaptive correcting threshold for tests.
func (c *Core) ErrorThreshold() float64 {
	return c.errorThreshold
}

// Process runs one control cycle for the sample: PID computation, hysteretic
// status classification, threshold adaptation, and deadline accounting
// against the kind's fixed budget.
func (c *Core) Process(sample model.SensorSample, dt float64) Outcome {
	start := c.now()

	controlError := -sample.Position
	control := c.controller.Compute(controlError, dt)

	status := c.classify(controlError)
	c.adaptThreshold(controlError)

	if c.injectSpin > 0 {
		busySpin(c.injectSpin)
	}

	processing := c.now().Sub(start)
	if processing < 0 {
		processing = 0
	}

	lateness := processing - c.deadline
	if lateness < 0 {
		lateness = 0
	}

	if lateness > 0 {
		c.logger.Debug("deadline overrun",
			zap.Stringer("actuator", c.kind),
			zap.Uint64("sample", sample.ID),
			zap.Duration("processing", processing),
			zap.Duration("lateness", lateness),
		)
	}

	return Outcome{
		Status:         status,
		ControlOutput:  control,
		Error:          controlError,
		ProcessingTime: processing,
		DeadlineMet:    lateness == 0,
		Lateness:       lateness,
	}
}

// classify applies the two-level rule: a hard emergency bound, then the
// adaptive correcting threshold.
func (c *Core) classify(controlError float64) model.ActuatorStatus {
	magnitude := math.Abs(controlError)

	switch {
	case magnitude > emergencyError:
		return model.StatusEmergency
	case magnitude > c.errorThreshold:
		return model.StatusCorrecting
	default:
		return model.StatusNormal
	}
}

// adaptThreshold slowly tightens the correcting band while the loop is calm
// and relaxes it under sustained large error. The dead zone between the two
// triggers is the hysteresis that keeps the band from oscillating.
func (c *Core) adaptThreshold(controlError float64) {
	magnitude := math.Abs(controlError)

	switch {
	case magnitude < tightenBelow:
		c.errorThreshold = math.Max(thresholdFloor, c.errorThreshold*tightenFactor)
	case magnitude > relaxAbove:
		c.errorThreshold = math.Min(thresholdCap, c.errorThreshold*relaxFactor)
	}
}

// busySpin burns CPU for the configured duration. This is a deliberate spin,
// not a sleep: the injected cost must occupy the processing budget.
func busySpin(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) { //nolint:revive // intentional busy loop
	}
}
