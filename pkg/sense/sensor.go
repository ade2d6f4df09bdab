// Package sense implements the sensor-side cycle logic: deterministic sample
// synthesis, the dynamic moving-average filter, anomaly detection, and the
// recalibration driven by actuator feedback.
package sense

import (
	"math"
	"time"

	"go.uber.org/zap"

	"rt-sensor-bench/pkg/diag"
	"rt-sensor-bench/pkg/model"
)

// Per-operation budgets for the sensor cycle. Jitter is measured separately
// and never counted against these.
const (
	ProcessingDeadline = 200 * time.Microsecond
	TransmitDeadline   = 100 * time.Microsecond
)

const (
	initialWindow = 5
	minWindow     = 3
	maxWindow     = 10

	anomalyThreshold = 80.0

	growErrorThreshold   = 5.0
	shrinkErrorThreshold = 1.0
	driftErrorThreshold  = 3.0
	driftGain            = 0.01

	temperatureMin = 20.0
	temperatureMax = 30.0
)

// Core holds the sensor state that survives across cycles. It is owned by a
// single task and is not safe for concurrent use.
type Core struct {
	diagnostics *diag.Diagnostics
	logger      *zap.Logger

	window       []float64
	windowSize   int
	positionBase float64
	cycleID      uint64
}

// NewCore constructs sensor state with the initial filter window.
func NewCore(diagnostics *diag.Diagnostics, logger *zap.Logger) *Core {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Core{
		diagnostics: diagnostics,
		logger:      logger,
		window:      make([]float64, 0, maxWindow),
		windowSize:  initialWindow,
	}
}

// CycleID returns the id the next produced sample will carry.
func (c *Core) CycleID() uint64 {
	return c.cycleID
}

// WindowSize exposes the current filter window for tests and live metrics.
func (c *Core) WindowSize() int {
	return c.windowSize
}

// PositionBase exposes the drift-compensated position origin.
func (c *Core) PositionBase() float64 {
	return c.positionBase
}

// Measure synthesizes the raw readings for the current cycle, pushes the raw
// force through the moving-average filter, and flags anomalies. The returned
// sample still needs its origin timestamp stamped by the caller.
func (c *Core) Measure() model.SensorSample {
	k := float64(c.cycleID)

	rawForce := 50.0 + 10.0*math.Sin(0.1*k) + 5.0*math.Sin(0.33*k)
	position := c.positionBase + 2.0*math.Sin(0.05*k)
	temperature := clamp(25.0+5.0*math.Sin(0.01*k), temperatureMin, temperatureMax)

	c.window = append(c.window, rawForce)
	if len(c.window) > c.windowSize {
		c.window = c.window[len(c.window)-c.windowSize:]
	}

	sum := 0.0
	for _, v := range c.window {
		sum += v
	}

	filtered := sum / float64(len(c.window))

	if math.Abs(filtered) > anomalyThreshold {
		c.diagnostics.RecordAnomaly()
		c.logger.Debug("force anomaly", zap.Uint64("cycle", c.cycleID), zap.Float64("filteredForce", filtered))
	}

	return model.SensorSample{
		ID:          c.cycleID,
		Force:       filtered,
		Position:    position,
		Temperature: temperature,
	}
}

// AdvanceCycle moves on to the next cycle id after the current cycle has been
// recorded.
func (c *Core) AdvanceCycle() {
	c.cycleID++
}

// ApplyFeedback recalibrates the sensor from one actuator feedback item.
// High downstream error widens the filter window (more smoothing), low error
// narrows it (faster response); the middle band changes nothing. Large errors
// also pull the position base against the drift.
func (c *Core) ApplyFeedback(fb model.ActuatorFeedback) {
	if fb.Status == model.StatusEmergency {
		c.diagnostics.RecordEmergency()
	}

	magnitude := math.Abs(fb.Error)

	switch {
	case magnitude > growErrorThreshold:
		c.setWindowSize(c.windowSize + 1)
	case magnitude < shrinkErrorThreshold:
		c.setWindowSize(c.windowSize - 1)
	}

	if magnitude > driftErrorThreshold {
		c.positionBase -= driftGain * fb.Error
	}
}

// setWindowSize clamps the window to its bounds and discards the oldest
// samples when shrinking; the most recent readings always survive a resize.
func (c *Core) setWindowSize(size int) {
	if size < minWindow {
		size = minWindow
	} else if size > maxWindow {
		size = maxWindow
	}

	if size == c.windowSize {
		return
	}

	c.windowSize = size
	if len(c.window) > size {
		c.window = c.window[len(c.window)-size:]
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
