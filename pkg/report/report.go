// Package report summarizes a finished experiment's cycle records for the
// CLI and for cross-backend comparison.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"rt-sensor-bench/pkg/model"
	"rt-sensor-bench/pkg/record"
)

// DurationStats holds min/avg/max over a set of durations.
type DurationStats struct {
	Min time.Duration
	Avg time.Duration
	Max time.Duration
}

// ActuatorSummary aggregates the cycles of one actuator kind.
type ActuatorSummary struct {
	Kind          model.ActuatorKind
	Cycles        int
	Missed        int
	Compliance    float64
	AvgProcessing time.Duration
}

// Summary is the digest of one experiment run.
type Summary struct {
	Name            string
	TotalCycles     int
	MissedDeadlines int
	Compliance      float64
	SensorCycles    int
	Processing      DurationStats
	Latency         DurationStats
	LockWait        DurationStats
	MaxLateness     time.Duration
	LateCycles      int
	Actuators       []ActuatorSummary
}

// Summarize computes the digest over a snapshot. An empty snapshot yields a
// zeroed summary; its Compliance is 0, not 100%.
func Summarize(name string, records []record.CycleRecord) Summary {
	summary := Summary{Name: name, TotalCycles: len(records)}

	if len(records) == 0 {
		return summary
	}

	var (
		processing []time.Duration
		latencies  []time.Duration
		lockWaits  []time.Duration
	)

	perKind := make(map[model.ActuatorKind]*ActuatorSummary)

	for _, rec := range records {
		if !rec.DeadlineMet {
			summary.MissedDeadlines++
		}

		if rec.LatenessNS > 0 {
			summary.LateCycles++

			if lateness := time.Duration(rec.LatenessNS); lateness > summary.MaxLateness {
				summary.MaxLateness = lateness
			}
		}

		processing = append(processing, time.Duration(rec.ProcessingTimeNS))
		lockWaits = append(lockWaits, time.Duration(rec.LockWaitNS))

		if rec.TotalLatencyNS > 0 {
			latencies = append(latencies, time.Duration(rec.TotalLatencyNS))
		}

		if rec.Actuator == nil {
			summary.SensorCycles++

			continue
		}

		kind := *rec.Actuator

		entry, ok := perKind[kind]
		if !ok {
			entry = &ActuatorSummary{Kind: kind}
			perKind[kind] = entry
		}

		entry.Cycles++
		if !rec.DeadlineMet {
			entry.Missed++
		}

		entry.AvgProcessing += time.Duration(rec.ProcessingTimeNS)
	}

	summary.Compliance = compliance(summary.TotalCycles, summary.MissedDeadlines)
	summary.Processing = durationStats(processing)
	summary.Latency = durationStats(latencies)
	summary.LockWait = durationStats(lockWaits)

	for _, entry := range perKind {
		entry.Compliance = compliance(entry.Cycles, entry.Missed)
		entry.AvgProcessing /= time.Duration(entry.Cycles)
		summary.Actuators = append(summary.Actuators, *entry)
	}

	sort.Slice(summary.Actuators, func(i, j int) bool {
		return summary.Actuators[i].Kind < summary.Actuators[j].Kind
	})

	return summary
}

// Write renders the summary in the CLI's human-readable layout.
func (s Summary) Write(w io.Writer) error {
	lines := []string{
		fmt.Sprintf("=== %s ===\n", s.Name),
		fmt.Sprintf("Total cycles: %d (sensor %d)\n", s.TotalCycles, s.SensorCycles),
		fmt.Sprintf("Deadline compliance: %.2f%% (%d missed)\n", s.Compliance, s.MissedDeadlines),
		fmt.Sprintf("Processing: min=%v avg=%v max=%v\n", s.Processing.Min, s.Processing.Avg, s.Processing.Max),
		fmt.Sprintf("Latency: min=%v avg=%v max=%v\n", s.Latency.Min, s.Latency.Avg, s.Latency.Max),
		fmt.Sprintf("Lock wait: min=%v avg=%v max=%v\n", s.LockWait.Min, s.LockWait.Avg, s.LockWait.Max),
		fmt.Sprintf("Late cycles: %d (max lateness %v)\n", s.LateCycles, s.MaxLateness),
	}

	for _, a := range s.Actuators {
		lines = append(lines, fmt.Sprintf("  %s: %d cycles, %.2f%% compliance, avg %v\n",
			a.Kind, a.Cycles, a.Compliance, a.AvgProcessing))
	}

	for _, line := range lines {
		if _, err := io.WriteString(w, line); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	return nil
}

func compliance(total, missed int) float64 {
	if total == 0 {
		return 0
	}

	return float64(total-missed) / float64(total) * 100
}

func durationStats(values []time.Duration) DurationStats {
	if len(values) == 0 {
		return DurationStats{}
	}

	stats := DurationStats{Min: values[0], Max: values[0]}

	var sum time.Duration

	for _, v := range values {
		sum += v

		if v < stats.Min {
			stats.Min = v
		}

		if v > stats.Max {
			stats.Max = v
		}
	}

	stats.Avg = sum / time.Duration(len(values))

	return stats
}
