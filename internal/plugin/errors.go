package plugin

import "errors"

// Plugin registry errors.
var (
	// ErrPluginNotFound is returned when a plugin is not registered.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrAlreadyRegistered is returned when a name is registered twice.
	ErrAlreadyRegistered = errors.New("plugin is already registered")

	// ErrInvalidPlugin is returned for nil plugins or empty names.
	ErrInvalidPlugin = errors.New("invalid plugin")

	// ErrAlreadyInitialized is returned when Init runs a second time.
	ErrAlreadyInitialized = errors.New("plugins already initialized")

	// ErrClosed is returned by operations on a closed registry.
	ErrClosed = errors.New("plugin registry is closed")
)
