//nolint:testpackage // tests reach into the filter window directly
package sense

import (
	"math"
	"testing"

	"go.uber.org/zap"

	"rt-sensor-bench/pkg/diag"
	"rt-sensor-bench/pkg/model"
)

func newTestCore() (*Core, *diag.Diagnostics) {
	diagnostics := diag.New()

	return NewCore(diagnostics, zap.NewNop()), diagnostics
}

func feedback(err float64, status model.ActuatorStatus) model.ActuatorFeedback {
	return model.ActuatorFeedback{SensorID: 0, Status: status, Error: err}
}

func TestMeasureIsDeterministic(t *testing.T) {
	t.Parallel()

	first, _ := newTestCore()
	second, _ := newTestCore()

	for range 50 {
		a := first.Measure()
		b := second.Measure()

		if a != b {
			t.Fatalf("same cycle produced different samples: %+v vs %+v", a, b)
		}

		first.AdvanceCycle()
		second.AdvanceCycle()
	}
}

func TestTemperatureStaysInBounds(t *testing.T) {
	t.Parallel()

	core, _ := newTestCore()

	for range 1000 {
		sample := core.Measure()

		if sample.Temperature < 20 || sample.Temperature > 30 {
			t.Fatalf("temperature out of range: %f", sample.Temperature)
		}

		core.AdvanceCycle()
	}
}

func TestFilterAveragesWindow(t *testing.T) {
	t.Parallel()

	core, _ := newTestCore()

	// After many cycles the filtered force must track the raw signal's
	// neighborhood: the synthetic force stays within 50 +- 15.
	var last model.SensorSample

	for range 200 {
		last = core.Measure()
		core.AdvanceCycle()
	}

	if math.Abs(last.Force-50) > 15 {
		t.Fatalf("filtered force strayed from the signal band: %f", last.Force)
	}
}

func TestWindowGrowsOnlyOnHighError(t *testing.T) {
	t.Parallel()

	core, _ := newTestCore()

	if core.WindowSize() != 5 {
		t.Fatalf("initial window must be 5, got %d", core.WindowSize())
	}

	// Middle band: no change.
	core.ApplyFeedback(feedback(3, model.StatusCorrecting))

	if core.WindowSize() != 5 {
		t.Fatalf("middle-band error must not resize, got %d", core.WindowSize())
	}

	core.ApplyFeedback(feedback(6, model.StatusCorrecting))

	if core.WindowSize() != 6 {
		t.Fatalf("high error must grow window, got %d", core.WindowSize())
	}

	core.ApplyFeedback(feedback(-0.5, model.StatusNormal))

	if core.WindowSize() != 5 {
		t.Fatalf("low error must shrink window, got %d", core.WindowSize())
	}
}

func TestWindowStaysWithinBounds(t *testing.T) {
	t.Parallel()

	core, _ := newTestCore()

	for range 100 {
		core.ApplyFeedback(feedback(50, model.StatusCorrecting))
	}

	if core.WindowSize() != 10 {
		t.Fatalf("window must cap at 10, got %d", core.WindowSize())
	}

	for range 100 {
		core.ApplyFeedback(feedback(0.1, model.StatusNormal))
	}

	if core.WindowSize() != 3 {
		t.Fatalf("window must floor at 3, got %d", core.WindowSize())
	}
}

func TestResizePreservesMostRecentSamples(t *testing.T) {
	t.Parallel()

	core, _ := newTestCore()

	// Fill the window, then shrink hard and confirm the average only uses the
	// most recent readings.
	for range 10 {
		core.Measure()
		core.AdvanceCycle()
	}

	for range 10 {
		core.ApplyFeedback(feedback(0.1, model.StatusNormal))
	}

	if got := len(core.window); got > core.WindowSize() {
		t.Fatalf("retained %d samples for window %d", got, core.WindowSize())
	}

	want := core.window[len(core.window)-1]

	core.ApplyFeedback(feedback(0.1, model.StatusNormal))

	if core.window[len(core.window)-1] != want {
		t.Fatalf("resize dropped the most recent sample")
	}
}

func TestEmergencyFeedbackCountsOnce(t *testing.T) {
	t.Parallel()

	core, diagnostics := newTestCore()

	core.ApplyFeedback(feedback(12, model.StatusEmergency))
	core.ApplyFeedback(feedback(12, model.StatusEmergency))
	core.ApplyFeedback(feedback(0, model.StatusNormal))

	if got := diagnostics.EmergencyCount(); got != 2 {
		t.Fatalf("expected 2 emergencies, got %d", got)
	}
}

func TestPositionBaseDriftCompensation(t *testing.T) {
	t.Parallel()

	core, _ := newTestCore()

	core.ApplyFeedback(feedback(6, model.StatusCorrecting))

	want := -0.01 * 6.0
	if math.Abs(core.PositionBase()-want) > 1e-12 {
		t.Fatalf("expected base %f, got %f", want, core.PositionBase())
	}

	// Small errors leave the base alone.
	core.ApplyFeedback(feedback(2, model.StatusNormal))

	if math.Abs(core.PositionBase()-want) > 1e-12 {
		t.Fatalf("small error moved the base to %f", core.PositionBase())
	}
}

func TestAnomalyDetection(t *testing.T) {
	t.Parallel()

	core, diagnostics := newTestCore()

	// The synthetic signal never exceeds 80, so no anomalies under normal
	// operation.
	for range 500 {
		core.Measure()
		core.AdvanceCycle()
	}

	if got := diagnostics.AnomalyCount(); got != 0 {
		t.Fatalf("synthetic signal must not trip anomalies, got %d", got)
	}

	// Force the window contents past the threshold.
	core.window = core.window[:0]
	for range 5 {
		core.window = append(core.window, 200)
	}

	core.Measure()

	if got := diagnostics.AnomalyCount(); got == 0 {
		t.Fatalf("expected anomaly after saturating the window")
	}
}
