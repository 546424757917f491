package settings

import "errors"

// Errors returned by settings operations.
var (
	// ErrInvalidPath indicates an empty path or a path that descends through
	// a non-map value.
	ErrInvalidPath = errors.New("invalid setting path")

	// ErrNoPath indicates the store has no file path configured.
	ErrNoPath = errors.New("no settings file path configured")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("settings store is closed")
)
