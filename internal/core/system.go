package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/librescoot/librefsm"

	"bulldozer-service/internal/config"
	"bulldozer-service/internal/fsm"
	"bulldozer-service/internal/logger"
	"bulldozer-service/internal/messaging"
	"bulldozer-service/internal/types"
)

// DriveSystem owns the control cycle: it polls the controller, feeds the
// actuator while in the drive state and mirrors everything to telemetry.
// All actuation decisions flow through the state machine, so the emergency
// latch and connectivity handling live in one place.
type DriveSystem struct {
	cfg        *config.Config
	actuator   Actuator
	controller InputSource
	redis      Telemetry
	estop      EmergencyInput
	logger     *logger.Logger

	machine *librefsm.Machine

	mu          sync.RWMutex
	state       types.DriveState
	telemetryOK bool
	lastConnect time.Time

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewDriveSystem wires the system from its parts. redis and estop may be
// nil when the telemetry plane or the stop button is not configured.
func NewDriveSystem(cfg *config.Config, actuator Actuator, controller InputSource,
	redis Telemetry, estop EmergencyInput, log *logger.Logger) *DriveSystem {
	return &DriveSystem{
		cfg:        cfg,
		actuator:   actuator,
		controller: controller,
		redis:      redis,
		estop:      estop,
		logger:     log.WithTag("system"),
		state:      types.StateInit,
		stopChan:   make(chan struct{}),
	}
}

// Start brings the system up: state machine, telemetry plane, emergency
// input, then the control loop. Telemetry failures are not fatal; the
// vehicle drives without Redis.
func (d *DriveSystem) Start(ctx context.Context) error {
	d.logger.Infof("Starting drive system")

	if err := d.initFSM(ctx); err != nil {
		return fmt.Errorf("failed to start state machine: %w", err)
	}

	if d.redis != nil {
		if err := d.redis.Connect(); err != nil {
			d.logger.Warnf("Telemetry disabled: %v", err)
		} else {
			d.setTelemetryOK(true)
			d.redis.SetCallbacks(messaging.Callbacks{
				StopCallback:  d.handleStopCommand,
				ResetCallback: d.handleResetCommand,
			})
		}
	}

	if d.estop != nil {
		d.estop.OnTrigger(d.handleEmergencyStop)
		d.estop.OnReset(d.handleEmergencyReset)
		if err := d.estop.Start(); err != nil {
			return fmt.Errorf("failed to start emergency stop input: %w", err)
		}
	}

	if err := d.sendEvent(fsm.EvStarted); err != nil {
		return fmt.Errorf("failed to leave init: %w", err)
	}

	// A stop button already held during boot must latch before anything
	// can drive.
	if d.estop != nil {
		if held, err := d.estop.Triggered(); err != nil {
			d.logger.Warnf("Failed to read emergency stop level: %v", err)
		} else if held {
			d.logger.Warnf("Emergency stop held at startup")
			d.handleEmergencyStop()
		}
	}

	// First connection attempt before the loop so a controller that is
	// already plugged in puts us in drive immediately.
	if err := d.controller.Connect(); err == nil {
		if err := d.sendEvent(fsm.EvControllerConnected); err != nil {
			d.logger.Warnf("Failed to enter drive: %v", err)
		}
	}
	d.mu.Lock()
	d.lastConnect = time.Now()
	d.mu.Unlock()

	d.wg.Add(1)
	go d.controlLoop()

	if d.redis != nil && d.telemetryEnabled() {
		if err := d.redis.StartListening(); err != nil {
			d.logger.Warnf("Failed to start command listener: %v", err)
		}
	}

	d.logger.Infof("Drive system started")
	return nil
}

// controlLoop runs the fixed-rate cycle until the stop signal.
func (d *DriveSystem) controlLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.Control.CycleInterval())
	defer ticker.Stop()

	for {
		select {
		case <-d.stopChan:
			return
		case <-ticker.C:
			d.cycle()
		}
	}
}

// cycle performs one control iteration. Reconnection attempts are rate
// limited so a missing device does not spam the log at cycle rate.
func (d *DriveSystem) cycle() {
	state := d.CurrentState()

	if !d.controller.IsConnected() && state != types.StateEmergencyStop {
		d.mu.Lock()
		due := time.Since(d.lastConnect) >= d.cfg.Controller.ReconnectInterval()
		if due {
			d.lastConnect = time.Now()
		}
		d.mu.Unlock()
		if due {
			d.controller.Connect()
		}
	}

	steering, throttle, connected := d.controller.Poll()

	switch state {
	case types.StateStandby:
		if connected {
			if err := d.sendEvent(fsm.EvControllerConnected); err != nil {
				d.logger.Warnf("Failed to enter drive: %v", err)
			}
		}
	case types.StateDrive:
		if !connected {
			if err := d.sendEvent(fsm.EvControllerDisconnected); err != nil {
				d.logger.Warnf("Failed to leave drive: %v", err)
			}
			return
		}
		left, right := d.actuator.Run(throttle, steering)
		if d.telemetryEnabled() {
			if err := d.redis.SetDriveValues(steering, throttle, left, right); err != nil {
				d.logger.Debugf("Failed to publish drive values: %v", err)
			}
		}
	case types.StateEmergencyStop:
		// Re-assert neutral output every cycle while latched.
		d.actuator.Stop()
	}
}

// handleEmergencyStop latches the emergency state on a stop button press.
// Releases never reach this path.
func (d *DriveSystem) handleEmergencyStop() {
	d.logger.Warnf("Emergency stop button pressed")
	if err := d.sendEvent(fsm.EvEmergencyStop); err != nil {
		d.logger.Debugf("Emergency stop event ignored: %v", err)
		// The transition may be rejected but the motors stop regardless.
		d.actuator.Stop()
	}
}

// handleEmergencyReset clears the latch on a reset button press.
func (d *DriveSystem) handleEmergencyReset() {
	d.logger.Infof("Emergency reset button pressed")
	if err := d.sendEvent(fsm.EvEmergencyReset); err != nil {
		d.logger.Debugf("Emergency reset event ignored: %v", err)
	}
}

// handleStopCommand latches the emergency state on a remote "stop".
func (d *DriveSystem) handleStopCommand() error {
	d.logger.Warnf("Remote emergency stop requested")
	return d.sendEvent(fsm.EvEmergencyStop)
}

// handleResetCommand clears the latch on a remote "reset".
func (d *DriveSystem) handleResetCommand() error {
	d.logger.Infof("Remote emergency reset requested")
	return d.sendEvent(fsm.EvEmergencyReset)
}

// CurrentState returns the current drive mode.
func (d *DriveSystem) CurrentState() types.DriveState {
	if d.machine != nil {
		return stateIDToDriveState(d.machine.CurrentState())
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

func (d *DriveSystem) setTelemetryOK(ok bool) {
	d.mu.Lock()
	d.telemetryOK = ok
	d.mu.Unlock()
}

func (d *DriveSystem) telemetryEnabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.redis != nil && d.telemetryOK
}

// Shutdown stops the control loop and tears everything down in reverse
// start order. Safe to call once.
func (d *DriveSystem) Shutdown() {
	d.logger.Infof("Shutting down drive system")

	if err := d.sendEvent(fsm.EvShutdown); err != nil {
		d.logger.Debugf("Shutdown event ignored: %v", err)
	}

	close(d.stopChan)
	d.wg.Wait()

	d.controller.Close()
	d.actuator.Shutdown()
	if d.estop != nil {
		d.estop.Close()
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			d.logger.Warnf("Failed to close Redis client: %v", err)
		}
	}
	d.logger.Infof("Drive system stopped")
}
