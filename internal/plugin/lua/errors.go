package lua

import "errors"

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when execution times out.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrNoSetup is returned when a collaboration script defines no setup
	// function.
	ErrNoSetup = errors.New("lua script does not define setup")

	// ErrBadReturn is returned when a Lua function returns a value of the
	// wrong type.
	ErrBadReturn = errors.New("lua function returned an unexpected value")

	// ErrNoScript is returned when a plugin has neither a path nor a source.
	ErrNoScript = errors.New("lua script not configured")
)
