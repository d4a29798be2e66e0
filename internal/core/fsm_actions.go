package core

import (
	"context"

	"github.com/librescoot/librefsm"

	"bulldozer-service/internal/fsm"
	"bulldozer-service/internal/types"
)

// Ensure DriveSystem implements fsm.Actions
var _ fsm.Actions = (*DriveSystem)(nil)

// stateIDToDriveState converts a librefsm StateID to types.DriveState.
// The IDs are chosen to match, so this is a cast with a fallback.
func stateIDToDriveState(id librefsm.StateID) types.DriveState {
	switch id {
	case fsm.StateInit:
		return types.StateInit
	case fsm.StateStandby:
		return types.StateStandby
	case fsm.StateDrive:
		return types.StateDrive
	case fsm.StateEmergencyStop:
		return types.StateEmergencyStop
	case fsm.StateShuttingDown:
		return types.StateShuttingDown
	default:
		return types.DriveState(string(id))
	}
}

// initFSM builds and starts the librefsm machine.
func (d *DriveSystem) initFSM(ctx context.Context) error {
	def := fsm.NewDefinition(d)
	machine, err := def.Build()
	if err != nil {
		return err
	}
	d.machine = machine

	d.machine.OnStateChange(func(from, to librefsm.StateID) {
		newState := stateIDToDriveState(to)
		oldState := stateIDToDriveState(from)

		d.mu.Lock()
		d.state = newState
		d.mu.Unlock()

		d.logger.Infof("State transition: %s -> %s", oldState, newState)

		// Publish the known new state directly; CurrentState would call
		// back into the FSM while its mutex is held.
		if d.telemetryEnabled() {
			if err := d.redis.PublishDriveState(newState); err != nil {
				d.logger.Errorf("Failed to publish state: %v", err)
			}
		}
	})

	if err := d.machine.Start(ctx); err != nil {
		return err
	}
	d.logger.Infof("Drive state machine started")
	return nil
}

// sendEvent sends an event to the FSM and waits for it to be handled.
func (d *DriveSystem) sendEvent(event librefsm.EventID) error {
	return d.machine.SendSync(librefsm.Event{ID: event})
}

// === State Entry Actions ===

func (d *DriveSystem) EnterStandby(c *librefsm.Context) error {
	d.logger.Debugf("FSM: EnterStandby")
	d.actuator.Stop()
	if d.telemetryEnabled() {
		if stateIDToDriveState(c.FromState) == types.StateEmergencyStop {
			if err := d.redis.SetEmergencyStop(false); err != nil {
				d.logger.Debugf("Failed to clear emergency flag: %v", err)
			}
		}
		if err := d.redis.SetControllerConnected(d.controller.IsConnected()); err != nil {
			d.logger.Debugf("Failed to publish controller state: %v", err)
		}
	}
	return nil
}

func (d *DriveSystem) EnterDrive(c *librefsm.Context) error {
	d.logger.Infof("FSM: EnterDrive, controller active")
	if d.telemetryEnabled() {
		if err := d.redis.SetControllerConnected(true); err != nil {
			d.logger.Debugf("Failed to publish controller state: %v", err)
		}
	}
	return nil
}

func (d *DriveSystem) EnterEmergencyStop(c *librefsm.Context) error {
	d.logger.Warnf("FSM: EnterEmergencyStop, output neutralized")
	d.actuator.Stop()
	if d.telemetryEnabled() {
		if err := d.redis.SetEmergencyStop(true); err != nil {
			d.logger.Debugf("Failed to publish emergency flag: %v", err)
		}
	}
	return nil
}

func (d *DriveSystem) EnterShuttingDown(c *librefsm.Context) error {
	d.logger.Infof("FSM: EnterShuttingDown")
	d.actuator.Stop()
	return nil
}
