package sched

import "time"

// Wake describes one periodic wake-up.
type Wake struct {
	// Scheduled is the absolute instant the waker aimed for.
	Scheduled time.Time
	// Actual is the instant the caller actually resumed.
	Actual time.Time
	// Jitter is Actual minus Scheduled. It is measured, not policed: jitter
	// alone never causes a deadline miss.
	Jitter time.Duration
}

// Waker drives an absolute wake schedule: tick k fires at origin + k*period,
// independent of how late the previous wake was. This eliminates the
// cumulative drift a relative sleep(period) loop would accumulate.
type Waker struct {
	period time.Duration
	next   time.Time

	sleep func(time.Duration)
	now   func() time.Time
}

// NewWaker starts the schedule at the clock origin; the first wake is one
// period after it.
func NewWaker(clock *Clock, period time.Duration) *Waker {
	return &Waker{
		period: period,
		next:   clock.Origin(),
		sleep:  time.Sleep,
		now:    time.Now,
	}
}

// Period returns the configured tick interval.
func (w *Waker) Period() time.Duration {
	return w.period
}

// Wait blocks until the next scheduled tick and reports the wake timing.
func (w *Waker) Wait() Wake {
	w.next = w.next.Add(w.period)

	if remaining := w.next.Sub(w.now()); remaining > 0 {
		w.sleep(remaining)
	}

	actual := w.now()

	return Wake{
		Scheduled: w.next,
		Actual:    actual,
		Jitter:    actual.Sub(w.next),
	}
}

// Next exposes the upcoming scheduled instant, used by cooperative loops that
// wait on a timer channel instead of a blocking sleep.
func (w *Waker) Next() time.Time {
	return w.next.Add(w.period)
}

// Advance consumes the upcoming tick and reports timing for a wake that was
// awaited externally (timer or channel based).
func (w *Waker) Advance() Wake {
	w.next = w.next.Add(w.period)
	actual := w.now()

	return Wake{
		Scheduled: w.next,
		Actual:    actual,
		Jitter:    actual.Sub(w.next),
	}
}
