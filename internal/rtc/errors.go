package rtc

import (
	"errors"
	"fmt"
	"strings"
)

// RTC errors.
var (
	// ErrNotReady is returned by operations issued before setup resolves.
	ErrNotReady = errors.New("rtc: setup has not completed")

	// ErrSetupFailed is returned by operations issued after setup failed.
	ErrSetupFailed = errors.New("rtc: setup failed")

	// ErrAlreadySetup is returned when setup is started more than once.
	ErrAlreadySetup = errors.New("rtc: setup already started")

	// ErrInvalidRuntime is returned when a collaboration plugin yields a
	// runtime that does not match its declared capabilities.
	ErrInvalidRuntime = errors.New("rtc: invalid runtime")

	// ErrUnsupported is matched by every UnsupportedError.
	ErrUnsupported = errors.New("rtc: unsupported in collaborative mode")
)

// UnsupportedError reports a capability with no collaborative implementation.
type UnsupportedError struct {
	Feature string
}

// Error implements error.
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("rtc: unimplemented feature %q in collaborative mode", e.Feature)
}

// Unwrap returns ErrUnsupported.
func (e *UnsupportedError) Unwrap() error {
	return ErrUnsupported
}

// ShapeError reports a runtime whose methods do not match the capabilities it
// declares.
type ShapeError struct {
	Plugin  string
	Missing []Capability
	Unknown []Capability
}

// Error implements error.
func (e *ShapeError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+joinCaps(e.Missing))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown "+joinCaps(e.Unknown))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("rtc: plugin %q returned no runtime", e.Plugin)
	}
	return fmt.Sprintf("rtc: plugin %q runtime shape mismatch: %s", e.Plugin, strings.Join(parts, "; "))
}

// Unwrap returns ErrInvalidRuntime.
func (e *ShapeError) Unwrap() error {
	return ErrInvalidRuntime
}

// StateError reports a rejected state transition.
type StateError struct {
	From State
	To   State
}

// Error implements error.
func (e *StateError) Error() string {
	return fmt.Sprintf("rtc: invalid transition %s -> %s", e.From, e.To)
}

func joinCaps(caps []Capability) string {
	s := make([]string, len(caps))
	for i, c := range caps {
		s[i] = string(c)
	}
	return strings.Join(s, ", ")
}
