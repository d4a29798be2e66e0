package fsm

import "github.com/librescoot/librefsm"

// NewDefinition creates the drive FSM definition. Actuation only happens
// in the drive state; standby and emergency-stop both neutralize output
// on entry. Emergency stop latches: only an explicit reset leaves it,
// controller connectivity changes are ignored while latched.
func NewDefinition(actions Actions) *librefsm.Definition {
	return librefsm.NewDefinition().
		State(StateInit).
		State(StateStandby,
			librefsm.WithOnEnter(actions.EnterStandby),
		).
		State(StateDrive,
			librefsm.WithOnEnter(actions.EnterDrive),
		).
		State(StateEmergencyStop,
			librefsm.WithOnEnter(actions.EnterEmergencyStop),
		).
		State(StateShuttingDown,
			librefsm.WithOnEnter(actions.EnterShuttingDown),
		).

		// Startup
		Transition(StateInit, EvStarted, StateStandby).

		// Controller connectivity
		Transition(StateStandby, EvControllerConnected, StateDrive).
		Transition(StateDrive, EvControllerDisconnected, StateStandby).

		// Safety latch
		Transition(StateStandby, EvEmergencyStop, StateEmergencyStop).
		Transition(StateDrive, EvEmergencyStop, StateEmergencyStop).
		Transition(StateEmergencyStop, EvEmergencyReset, StateStandby).

		// Shutdown from any operating state
		Transition(StateStandby, EvShutdown, StateShuttingDown).
		Transition(StateDrive, EvShutdown, StateShuttingDown).
		Transition(StateEmergencyStop, EvShutdown, StateShuttingDown).
		Transition(StateInit, EvShutdown, StateShuttingDown).
		Initial(StateInit)
}
