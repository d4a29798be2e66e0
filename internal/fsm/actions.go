package fsm

import "github.com/librescoot/librefsm"

// Actions defines the drive state machine's entry hooks. DriveSystem
// implements this interface.
type Actions interface {
	EnterStandby(c *librefsm.Context) error
	EnterDrive(c *librefsm.Context) error
	EnterEmergencyStop(c *librefsm.Context) error
	EnterShuttingDown(c *librefsm.Context) error
}
