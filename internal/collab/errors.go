package collab

import "errors"

var (
	// ErrHubClosed is returned when joining or writing to a closed hub.
	ErrHubClosed = errors.New("collab: hub closed")

	// ErrHubNotOpen is returned when joining a hub that has not been opened.
	ErrHubNotOpen = errors.New("collab: hub not open")

	// ErrClientClosed is returned for operations on a client that left.
	ErrClientClosed = errors.New("collab: client closed")
)
