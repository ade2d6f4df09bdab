package record

import (
	"sync"
	"sync/atomic"
	"time"
)

// exclusiveRecorder guards both the sequence and the missed counter with a
// single exclusive lock.
type exclusiveRecorder struct {
	mu      sync.Mutex
	results []CycleRecord
	missed  uint64
	started time.Time
}

func newExclusiveRecorder() *exclusiveRecorder {
	return &exclusiveRecorder{
		results: make([]CycleRecord, 0, initialCapacity),
		started: time.Now(),
	}
}

func (r *exclusiveRecorder) Record(rec CycleRecord) CycleRecord {
	lockStart := time.Now()
	r.mu.Lock()
	rec = stamp(rec, lockStart)

	if !rec.DeadlineMet {
		r.missed++
	}

	r.results = append(r.results, rec)
	r.mu.Unlock()

	return rec
}

func (r *exclusiveRecorder) Snapshot() []CycleRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]CycleRecord, len(r.results))
	copy(out, r.results)

	return out
}

func (r *exclusiveRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.results)
}

func (r *exclusiveRecorder) MissedDeadlines() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.missed
}

func (r *exclusiveRecorder) ExportCSV(path string) error {
	return exportCSV(path, r.Snapshot())
}

func (r *exclusiveRecorder) StrategyName() Strategy {
	return StrategyExclusive
}

// readerWriterRecorder lets snapshots share a reader lock while appends take
// the writer lock.
type readerWriterRecorder struct {
	mu      sync.RWMutex
	results []CycleRecord
	missed  uint64
	started time.Time
}

func newReaderWriterRecorder() *readerWriterRecorder {
	return &readerWriterRecorder{
		results: make([]CycleRecord, 0, initialCapacity),
		started: time.Now(),
	}
}

func (r *readerWriterRecorder) Record(rec CycleRecord) CycleRecord {
	lockStart := time.Now()
	r.mu.Lock()
	rec = stamp(rec, lockStart)

	if !rec.DeadlineMet {
		r.missed++
	}

	r.results = append(r.results, rec)
	r.mu.Unlock()

	return rec
}

func (r *readerWriterRecorder) Snapshot() []CycleRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]CycleRecord, len(r.results))
	copy(out, r.results)

	return out
}

func (r *readerWriterRecorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.results)
}

func (r *readerWriterRecorder) MissedDeadlines() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.missed
}

func (r *readerWriterRecorder) ExportCSV(path string) error {
	return exportCSV(path, r.Snapshot())
}

func (r *readerWriterRecorder) StrategyName() Strategy {
	return StrategyReaderWriter
}

// atomicRecorder increments its counters lock-free and only takes the
// exclusive lock for the append itself.
type atomicRecorder struct {
	mu          sync.Mutex
	results     []CycleRecord
	missed      atomic.Uint64
	totalCycles atomic.Uint64
	started     time.Time
}

func newAtomicRecorder() *atomicRecorder {
	return &atomicRecorder{
		results: make([]CycleRecord, 0, initialCapacity),
		started: time.Now(),
	}
}

func (r *atomicRecorder) Record(rec CycleRecord) CycleRecord {
	r.totalCycles.Add(1)

	if !rec.DeadlineMet {
		r.missed.Add(1)
	}

	lockStart := time.Now()
	r.mu.Lock()
	rec = stamp(rec, lockStart)
	r.results = append(r.results, rec)
	r.mu.Unlock()

	return rec
}

func (r *atomicRecorder) Snapshot() []CycleRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]CycleRecord, len(r.results))
	copy(out, r.results)

	return out
}

func (r *atomicRecorder) Len() int {
	return int(r.totalCycles.Load())
}

func (r *atomicRecorder) MissedDeadlines() uint64 {
	return r.missed.Load()
}

func (r *atomicRecorder) ExportCSV(path string) error {
	return exportCSV(path, r.Snapshot())
}

func (r *atomicRecorder) StrategyName() Strategy {
	return StrategyAtomic
}
