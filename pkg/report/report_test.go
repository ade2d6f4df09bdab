package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rt-sensor-bench/pkg/model"
	"rt-sensor-bench/pkg/record"
)

func kindPtr(k model.ActuatorKind) *model.ActuatorKind {
	return &k
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()

	summary := Summarize("empty", nil)

	require.Equal(t, 0, summary.TotalCycles)
	require.Equal(t, 0.0, summary.Compliance)
	require.Empty(t, summary.Actuators)
}

func TestSummarizeCountsAndCompliance(t *testing.T) {
	t.Parallel()

	records := []record.CycleRecord{
		{CycleID: 0, DeadlineMet: true, ProcessingTimeNS: 1000},
		{CycleID: 1, DeadlineMet: false, LatenessNS: 500, ProcessingTimeNS: 3000},
		{CycleID: 0, Actuator: kindPtr(model.Gripper), DeadlineMet: true, ProcessingTimeNS: 2000, TotalLatencyNS: 10_000},
		{CycleID: 1, Actuator: kindPtr(model.Gripper), DeadlineMet: false, LatenessNS: 2500, ProcessingTimeNS: 4000, TotalLatencyNS: 20_000},
	}

	summary := Summarize("run", records)

	require.Equal(t, 4, summary.TotalCycles)
	require.Equal(t, 2, summary.SensorCycles)
	require.Equal(t, 2, summary.MissedDeadlines)
	require.InDelta(t, 50.0, summary.Compliance, 1e-9)
	require.Equal(t, 2, summary.LateCycles)
	require.Equal(t, time.Duration(2500), summary.MaxLateness)

	require.Len(t, summary.Actuators, 1)
	gripper := summary.Actuators[0]
	require.Equal(t, model.Gripper, gripper.Kind)
	require.Equal(t, 2, gripper.Cycles)
	require.Equal(t, 1, gripper.Missed)
	require.InDelta(t, 50.0, gripper.Compliance, 1e-9)
	require.Equal(t, time.Duration(3000), gripper.AvgProcessing)
}

func TestSummarizeLatencySkipsZeroes(t *testing.T) {
	t.Parallel()

	records := []record.CycleRecord{
		{CycleID: 0, DeadlineMet: true},
		{CycleID: 0, Actuator: kindPtr(model.Motor), DeadlineMet: true, TotalLatencyNS: 400},
	}

	summary := Summarize("run", records)

	require.Equal(t, time.Duration(400), summary.Latency.Min)
	require.Equal(t, time.Duration(400), summary.Latency.Max)
}

func TestWriteRendersActuatorBreakdown(t *testing.T) {
	t.Parallel()

	records := []record.CycleRecord{
		{CycleID: 0, DeadlineMet: true},
		{CycleID: 0, Actuator: kindPtr(model.Stabilizer), DeadlineMet: true, ProcessingTimeNS: 1500},
	}

	var sb strings.Builder

	require.NoError(t, Summarize("THREADED", records).Write(&sb))

	out := sb.String()
	require.Contains(t, out, "=== THREADED ===")
	require.Contains(t, out, "Stabilizer")
	require.Contains(t, out, "compliance")
}
