// Package model defines the value types flowing through the sensor-actuator pipeline.
package model

import "time"

// SensorSample is one filtered reading produced by the sensor task. It is
// copied by value through the pipeline; OriginTimestampNS is measured against
// the experiment clock origin and is never overwritten downstream.
type SensorSample struct {
	ID                uint64
	OriginTimestampNS uint64
	Force             float64
	Position          float64
	Temperature       float64
}

// ActuatorKind identifies one of the three deadline-specialized consumers.
type ActuatorKind int

const (
	Gripper ActuatorKind = iota
	Motor
	Stabilizer
)

// Kinds lists every actuator kind in dispatch order.
var Kinds = [3]ActuatorKind{Gripper, Motor, Stabilizer}

// Deadline returns the per-sample processing budget for the kind.
func (k ActuatorKind) Deadline() time.Duration {
	switch k {
	case Gripper:
		return time.Millisecond
	case Motor:
		return 2 * time.Millisecond
	case Stabilizer:
		return 1500 * time.Microsecond
	default:
		return 0
	}
}

// String reports the kind name used in CSV rows and metric labels.
func (k ActuatorKind) String() string {
	switch k {
	case Gripper:
		return "Gripper"
	case Motor:
		return "Motor"
	case Stabilizer:
		return "Stabilizer"
	default:
		return "Unknown"
	}
}

// ActuatorStatus classifies how far an actuator is from its setpoint.
type ActuatorStatus int

const (
	StatusNormal ActuatorStatus = iota
	StatusCorrecting
	StatusEmergency
)

// String reports the status name for logs and dashboard events.
func (s ActuatorStatus) String() string {
	switch s {
	case StatusNormal:
		return "Normal"
	case StatusCorrecting:
		return "Correcting"
	case StatusEmergency:
		return "Emergency"
	default:
		return "Unknown"
	}
}

// ActuatorFeedback travels from an actuator back to the sensor. SensorID is
// the id of the sample the feedback originated from.
type ActuatorFeedback struct {
	SensorID        uint64
	Status          ActuatorStatus
	ControlOutput   float64
	Error           float64
	EmitTimestampNS uint64
}
