// Package diag holds the lock-free counters shared by pipeline tasks.
package diag

import "sync/atomic"

// Diagnostics counts anomalies and emergency events. Both counters only ever
// increase; relaxed ordering is sufficient because nothing synchronizes on
// them.
type Diagnostics struct {
	anomalies   atomic.Uint64
	emergencies atomic.Uint64
}

// New returns zeroed diagnostics.
func New() *Diagnostics {
	return new(Diagnostics)
}

// RecordAnomaly bumps the anomaly counter.
func (d *Diagnostics) RecordAnomaly() {
	d.anomalies.Add(1)
}

// RecordEmergency bumps the emergency counter.
func (d *Diagnostics) RecordEmergency() {
	d.emergencies.Add(1)
}

// AnomalyCount reports the anomalies observed so far.
func (d *Diagnostics) AnomalyCount() uint64 {
	return d.anomalies.Load()
}

// EmergencyCount reports the emergency events observed so far.
func (d *Diagnostics) EmergencyCount() uint64 {
	return d.emergencies.Load()
}
