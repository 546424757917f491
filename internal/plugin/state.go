package plugin

// State represents the lifecycle state of a plugin instance.
type State int

// Plugin lifecycle states.
const (
	// StateRegistered - Instance is registered but not initialized.
	StateRegistered State = iota

	// StateInitialized - Initialize hook has run successfully.
	StateInitialized

	// StateActive - Plugin is active and usable.
	StateActive

	// StateDeactivated - Plugin was active and has been deactivated.
	// It can be re-activated without re-running Initialize.
	StateDeactivated

	// StateShutDown - Plugin has been shut down. Terminal.
	StateShutDown
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateInitialized:
		return "initialized"
	case StateActive:
		return "active"
	case StateDeactivated:
		return "deactivated"
	case StateShutDown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// CanActivate returns true if Activate is a valid transition from s.
func (s State) CanActivate() bool {
	return s == StateInitialized || s == StateDeactivated
}

// IsTerminal returns true if no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == StateShutDown
}
