package record

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/gofrs/flock"
	"go.uber.org/multierr"

	"rt-sensor-bench/pkg/model"
)

// csvHeader fixes the exported column order. Parsers depend on it.
var csvHeader = []string{
	"cycle_id",
	"mode",
	"actuator",
	"total_latency_ns",
	"processing_time_ns",
	"lock_wait_ns",
	"deadline_met",
	"lateness_ns",
}

// exportCSV writes one row per record to path. The file is guarded with an
// advisory lock so concurrent benchmark invocations targeting the same path
// cannot interleave rows.
func exportCSV(path string, records []CycleRecord) (err error) {
	lock := flock.New(path + ".lock")

	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}

	if !locked {
		return fmt.Errorf("lock %s: %w", path, os.ErrExist)
	}

	defer func() {
		err = multierr.Append(err, lock.Unlock())
	}()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	defer func() {
		err = multierr.Append(err, file.Close())
	}()

	writer := csv.NewWriter(file)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, rec := range records {
		if err := writer.Write(csvRow(rec)); err != nil {
			return fmt.Errorf("write record %d: %w", rec.CycleID, err)
		}
	}

	writer.Flush()

	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}

	return nil
}

func csvRow(rec CycleRecord) []string {
	actuator := ""
	if rec.Actuator != nil {
		actuator = rec.Actuator.String()
	}

	return []string{
		strconv.FormatUint(rec.CycleID, 10),
		rec.Mode,
		actuator,
		strconv.FormatUint(rec.TotalLatencyNS, 10),
		strconv.FormatUint(rec.ProcessingTimeNS, 10),
		strconv.FormatUint(rec.LockWaitNS, 10),
		strconv.FormatBool(rec.DeadlineMet),
		strconv.FormatInt(rec.LatenessNS, 10),
	}
}

// ParseCSV reads a file previously produced by ExportCSV back into records.
// It is the inverse used by analysis tooling and round-trip tests.
func ParseCSV(path string) ([]CycleRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	defer func() {
		_ = file.Close()
	}()

	reader := csv.NewReader(file)

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	records := make([]CycleRecord, 0, len(rows)-1)

	for _, row := range rows[1:] {
		rec, err := parseCSVRow(row)
		if err != nil {
			return nil, err
		}

		records = append(records, rec)
	}

	return records, nil
}

func parseCSVRow(row []string) (CycleRecord, error) {
	if len(row) != len(csvHeader) {
		return CycleRecord{}, fmt.Errorf("malformed row: %d columns", len(row))
	}

	cycleID, err := strconv.ParseUint(row[0], 10, 64)
	if err != nil {
		return CycleRecord{}, fmt.Errorf("parse cycle_id: %w", err)
	}

	var actuator *model.ActuatorKind

	if row[2] != "" {
		kind, err := parseActuator(row[2])
		if err != nil {
			return CycleRecord{}, err
		}

		actuator = &kind
	}

	totalLatency, err := strconv.ParseUint(row[3], 10, 64)
	if err != nil {
		return CycleRecord{}, fmt.Errorf("parse total_latency_ns: %w", err)
	}

	processing, err := strconv.ParseUint(row[4], 10, 64)
	if err != nil {
		return CycleRecord{}, fmt.Errorf("parse processing_time_ns: %w", err)
	}

	lockWait, err := strconv.ParseUint(row[5], 10, 64)
	if err != nil {
		return CycleRecord{}, fmt.Errorf("parse lock_wait_ns: %w", err)
	}

	deadlineMet, err := strconv.ParseBool(row[6])
	if err != nil {
		return CycleRecord{}, fmt.Errorf("parse deadline_met: %w", err)
	}

	lateness, err := strconv.ParseInt(row[7], 10, 64)
	if err != nil {
		return CycleRecord{}, fmt.Errorf("parse lateness_ns: %w", err)
	}

	return CycleRecord{
		CycleID:          cycleID,
		Mode:             row[1],
		Actuator:         actuator,
		TotalLatencyNS:   totalLatency,
		ProcessingTimeNS: processing,
		LockWaitNS:       lockWait,
		DeadlineMet:      deadlineMet,
		LatenessNS:       lateness,
	}, nil
}

func parseActuator(name string) (model.ActuatorKind, error) {
	for _, kind := range model.Kinds {
		if kind.String() == name {
			return kind, nil
		}
	}

	return 0, fmt.Errorf("unknown actuator %q", name)
}
