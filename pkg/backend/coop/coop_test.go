package coop

import (
	"context"
	"testing"
	"time"

	"rt-sensor-bench/pkg/bench"
	"rt-sensor-bench/pkg/record"
)

func baseConfig() bench.ExperimentConfig {
	cfg := bench.DefaultConfig()
	cfg.ExperimentName = "coop-test"
	cfg.ModeTag = "coop-test"
	cfg.DurationSecs = 1
	cfg.SensorPeriodMS = 10

	return cfg
}

func sensorRecords(records []record.CycleRecord) []record.CycleRecord {
	var out []record.CycleRecord

	for _, rec := range records {
		if rec.Actuator == nil {
			out = append(out, rec)
		}
	}

	return out
}

func TestZeroDurationReturnsEmptyRecorder(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.DurationSecs = 0

	recorder, err := New().Run(context.Background(), cfg, bench.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if recorder.Len() != 0 {
		t.Fatalf("zero-duration run must record nothing, got %d", recorder.Len())
	}
}

func TestOneSecondRunProducesExpectedCycleCount(t *testing.T) {
	cfg := baseConfig()

	recorder, err := New().Run(context.Background(), cfg, bench.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sensors := sensorRecords(recorder.Snapshot())

	if len(sensors) < 90 || len(sensors) > 100 {
		t.Fatalf("expected 90..100 sensor records for 1s at 10ms, got %d", len(sensors))
	}
}

func TestSensorCycleIDsStrictlyIncreaseFromZero(t *testing.T) {
	cfg := baseConfig()

	recorder, err := New().Run(context.Background(), cfg, bench.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sensors := sensorRecords(recorder.Snapshot())
	if len(sensors) == 0 {
		t.Fatalf("expected sensor records")
	}

	if sensors[0].CycleID != 0 {
		t.Fatalf("first sensor cycle must be 0, got %d", sensors[0].CycleID)
	}

	for i := 1; i < len(sensors); i++ {
		if sensors[i].CycleID != sensors[i-1].CycleID+1 {
			t.Fatalf("sensor ids must increase by one: %d then %d",
				sensors[i-1].CycleID, sensors[i].CycleID)
		}
	}
}

func TestRecordInvariantsHoldEndToEnd(t *testing.T) {
	cfg := baseConfig()

	recorder, err := New().Run(context.Background(), cfg, bench.Options{
		Strategy: record.StrategyAtomic,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missed := uint64(0)

	for _, rec := range recorder.Snapshot() {
		if rec.LatenessNS < 0 {
			t.Fatalf("negative lateness on cycle %d", rec.CycleID)
		}

		if rec.DeadlineMet != (rec.LatenessNS == 0) {
			t.Fatalf("deadline/lateness inconsistent on cycle %d", rec.CycleID)
		}

		if !rec.DeadlineMet {
			missed++
		}
	}

	if got := recorder.MissedDeadlines(); got != missed {
		t.Fatalf("missed counter %d != stored misses %d", got, missed)
	}
}

func TestSlowActuatorsDropSamples(t *testing.T) {
	cfg := baseConfig()
	cfg.SensorPeriodMS = 5
	cfg.QueueCapacity = 1
	cfg.ProcessingTimeNS = uint64(20 * time.Millisecond)

	recorder, err := New().Run(context.Background(), cfg, bench.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snapshot := recorder.Snapshot()
	sensorCount := len(sensorRecords(snapshot))
	actuatorCount := len(snapshot) - sensorCount

	if sensorCount == 0 {
		t.Fatalf("expected sensor records")
	}

	if actuatorCount >= 3*sensorCount {
		t.Fatalf("expected actuator drops: %d actuator records for %d sensor cycles",
			actuatorCount, sensorCount)
	}
}

func TestContextCancelStopsRunEarly(t *testing.T) {
	cfg := baseConfig()
	cfg.DurationSecs = 30

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()

	if _, err := New().Run(ctx, cfg, bench.Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancelled run took %v", elapsed)
	}
}
