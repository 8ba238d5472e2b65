package plugin

// State represents the lifecycle state of a registered plugin.
type State int

// Plugin states.
const (
	// StateRegistered - Plugin is registered but not initialized.
	StateRegistered State = iota

	// StateInitializing - Plugin init is running.
	StateInitializing

	// StateActive - Plugin initialized successfully.
	StateActive

	// StateError - Plugin init failed.
	StateError

	// StateClosed - Plugin was closed with the registry.
	StateClosed
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
