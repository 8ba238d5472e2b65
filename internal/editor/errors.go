package editor

import "errors"

// Editor errors.
var (
	// ErrCommandNotFound indicates ExecCommand was given an unknown command.
	ErrCommandNotFound = errors.New("command not found")

	// ErrAlreadyInitialized indicates Init was called more than once.
	ErrAlreadyInitialized = errors.New("editor already initialized")

	// ErrClosed indicates the editor has been closed.
	ErrClosed = errors.New("editor closed")

	// ErrInvalidButton indicates a button without a name.
	ErrInvalidButton = errors.New("invalid button")

	// ErrInvalidArgument indicates a command received an argument of the
	// wrong type.
	ErrInvalidArgument = errors.New("invalid command argument")
)
