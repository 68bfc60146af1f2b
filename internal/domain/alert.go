package domain

import "time"

type AlertKind string

const (
	AlertRaised  AlertKind = "raised"
	AlertCleared AlertKind = "cleared"
)

// AlertEvent is a point-in-time decision from the alert state machine,
// consumed once by the notification sink.
type AlertEvent struct {
	Kind        AlertKind  `json:"kind"`
	SensorPath  SensorPath `json:"sensor_path"`
	HealthIndex float64    `json:"health_index"`
	Threshold   float64    `json:"threshold"`
	Consecutive int        `json:"consecutive_breaches"`
	At          time.Time  `json:"at"`
}
