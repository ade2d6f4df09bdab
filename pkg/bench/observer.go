package bench

import "time"

// Observer receives low-rate live signals from a running experiment. It is
// deliberately tiny: implementations must be cheap enough for once-per-cycle
// calls without disturbing the timing under measurement.
type Observer interface {
	// ObserveJitter reports the sensor's wake deviation for one cycle.
	ObserveJitter(d time.Duration)
	// ObserveFilterWindow reports the sensor's current filter window size.
	ObserveFilterWindow(size int)
}
