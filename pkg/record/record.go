// Package record implements the concurrency-safe cycle recorder and the
// interchangeable synchronization strategies benchmarked against each other.
package record

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"rt-sensor-bench/pkg/model"
)

// CycleRecord is one per-cycle timing measurement. Records are append-only
// and never mutated after insertion.
type CycleRecord struct {
	CycleID          uint64
	Mode             string
	Actuator         *model.ActuatorKind
	TotalLatencyNS   uint64
	ProcessingTimeNS uint64
	LockWaitNS       uint64
	DeadlineMet      bool
	LatenessNS       int64
}

// Strategy selects how the recorder synchronizes its shared state.
type Strategy string

const (
	// StrategyExclusive guards the sequence with a single exclusive lock.
	StrategyExclusive Strategy = "exclusive"
	// StrategyReaderWriter uses a reader/writer lock so snapshots can overlap.
	StrategyReaderWriter Strategy = "rwlock"
	// StrategyAtomic keeps the counters lock-free and locks only the append.
	StrategyAtomic Strategy = "atomic"
)

// Strategies lists every supported strategy.
var Strategies = []Strategy{StrategyExclusive, StrategyReaderWriter, StrategyAtomic}

var errUnknownStrategy = errors.New("record: unknown strategy")

// ParseStrategy maps a config string onto a Strategy.
func ParseStrategy(raw string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(raw))) {
	case StrategyExclusive:
		return StrategyExclusive, nil
	case StrategyReaderWriter:
		return StrategyReaderWriter, nil
	case StrategyAtomic:
		return StrategyAtomic, nil
	default:
		return "", fmt.Errorf("%w: %q", errUnknownStrategy, raw)
	}
}

// Recorder is the shared sink every task writes its cycle measurements into.
// Record measures its own lock-acquisition latency, stores it in the
// record's LockWaitNS just before appending, and returns the record as
// stored so callers can propagate the measured value. Once a Snapshot
// contains a record, every later Snapshot contains it too; ordering across
// concurrent producers is not defined.
type Recorder interface {
	Record(r CycleRecord) CycleRecord
	Snapshot() []CycleRecord
	Len() int
	MissedDeadlines() uint64
	ExportCSV(path string) error
	StrategyName() Strategy
}

const initialCapacity = 10_000

// New constructs a recorder backed by the requested strategy.
func New(strategy Strategy) (Recorder, error) {
	switch strategy {
	case StrategyExclusive:
		return newExclusiveRecorder(), nil
	case StrategyReaderWriter:
		return newReaderWriterRecorder(), nil
	case StrategyAtomic:
		return newAtomicRecorder(), nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownStrategy, strategy)
	}
}

// stamp injects the measured lock wait into the record about to be stored.
func stamp(r CycleRecord, lockStart time.Time) CycleRecord {
	r.LockWaitNS = uint64(time.Since(lockStart))

	return r
}
