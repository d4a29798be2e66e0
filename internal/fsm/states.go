package fsm

import "github.com/librescoot/librefsm"

// Drive modes
const (
	StateInit          librefsm.StateID = "init"
	StateStandby       librefsm.StateID = "stand-by"
	StateDrive         librefsm.StateID = "drive"
	StateEmergencyStop librefsm.StateID = "emergency-stop"
	StateShuttingDown  librefsm.StateID = "shutting-down"
)

// Drive events
const (
	// Lifecycle
	EvStarted  librefsm.EventID = "started"
	EvShutdown librefsm.EventID = "shutdown"

	// Controller connectivity
	EvControllerConnected    librefsm.EventID = "controller-connected"
	EvControllerDisconnected librefsm.EventID = "controller-disconnected"

	// Safety
	EvEmergencyStop  librefsm.EventID = "emergency-stop"
	EvEmergencyReset librefsm.EventID = "emergency-reset"
)
