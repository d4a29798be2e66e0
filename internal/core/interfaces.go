package core

import (
	"bulldozer-service/internal/hardware"
	"bulldozer-service/internal/messaging"
	"bulldozer-service/internal/types"
)

// InputSource is the controller surface DriveSystem consumes. The real
// implementation is controller.Controller; tests substitute a fake.
type InputSource interface {
	Connect() error
	Poll() (steering, throttle float64, connected bool)
	IsConnected() bool
	Close()
}

// Actuator is the motor output surface DriveSystem consumes.
type Actuator interface {
	Run(throttle, steering float64) (left, right float64)
	Stop()
	Shutdown()
}

// Telemetry is the Redis surface DriveSystem consumes.
type Telemetry interface {
	SetCallbacks(callbacks messaging.Callbacks)
	Connect() error
	StartListening() error
	PublishDriveState(state types.DriveState) error
	SetDriveValues(steering, throttle, left, right float64) error
	SetControllerConnected(connected bool) error
	SetEmergencyStop(active bool) error
	Close() error
}

// EmergencyInput is the physical stop button surface DriveSystem consumes.
// Trigger fires on stop presses only; reset presses arrive separately so
// releasing the stop button can never be mistaken for a reset.
type EmergencyInput interface {
	OnTrigger(handler hardware.TriggerHandler)
	OnReset(handler hardware.ResetHandler)
	Start() error
	Triggered() (bool, error)
	Close()
}
