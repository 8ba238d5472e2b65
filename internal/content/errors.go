package content

import "errors"

// Errors returned by content operations.
var (
	// ErrUnknownFormat indicates an unsupported content format name.
	ErrUnknownFormat = errors.New("unknown content format")

	// ErrNilTree indicates a nil tree was passed where one is required.
	ErrNilTree = errors.New("nil content tree")
)
