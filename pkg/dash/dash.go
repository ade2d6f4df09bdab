// Package dash provides the bounded event ring a live dashboard can poll
// without touching the pipeline's hot path.
package dash

import (
	"sync"

	"rt-sensor-bench/pkg/model"
)

// MetricsSnapshot mirrors one cycle's timing figures for display.
type MetricsSnapshot struct {
	CycleID          uint64
	ProcessingTimeNS uint64
	LockWaitNS       uint64
	TotalLatencyNS   uint64
	DeadlineMet      bool
	LatenessNS       int64
}

// KindFeedback pairs a feedback item with the actuator that emitted it.
type KindFeedback struct {
	Kind     model.ActuatorKind
	Feedback model.ActuatorFeedback
}

// Event is one dashboard observation. Any of the payload fields may be nil.
type Event struct {
	TimestampNS uint64
	Sample      *model.SensorSample
	Feedback    *KindFeedback
	Metrics     *MetricsSnapshot
}

// Buffer is a concurrency-safe bounded ring of events. When full, adding a
// new event drops the oldest one.
type Buffer struct {
	mu      sync.Mutex
	events  []Event
	maxSize int
}

// NewBuffer constructs a ring bounded at maxSize events.
func NewBuffer(maxSize int) *Buffer {
	if maxSize <= 0 {
		maxSize = 1
	}

	return &Buffer{
		events:  make([]Event, 0, maxSize),
		maxSize: maxSize,
	}
}

// Add appends an event, evicting the oldest entry on overflow.
func (b *Buffer) Add(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, event)
	if len(b.events) > b.maxSize {
		b.events = b.events[1:]
	}
}

// Recent returns up to count of the newest events, oldest first.
func (b *Buffer) Recent(count int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := len(b.events) - count
	if start < 0 {
		start = 0
	}

	out := make([]Event, len(b.events)-start)
	copy(out, b.events[start:])

	return out
}

// All returns a copy of the whole ring, oldest first.
func (b *Buffer) All() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Event, len(b.events))
	copy(out, b.events)

	return out
}

// Len reports the number of buffered events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.events)
}

// Clear empties the ring.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = b.events[:0]
}
