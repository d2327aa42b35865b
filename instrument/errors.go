package instrument

import "errors"

var (
	// ErrSourceNotFound indicates the hub has no source with the given ID.
	ErrSourceNotFound = errors.New("instrument: source not found")

	// ErrDuplicateSource indicates a source with the same ID is already registered.
	ErrDuplicateSource = errors.New("instrument: source already registered")

	// ErrListenerNotRegistered indicates the listener was never added to the hub.
	ErrListenerNotRegistered = errors.New("instrument: listener not registered")

	// ErrDuplicateCounter indicates a counter name is already used within a source.
	ErrDuplicateCounter = errors.New("instrument: counter already exists")

	// ErrInvalidInterval indicates a reporting interval option could not be parsed.
	ErrInvalidInterval = errors.New("instrument: invalid reporting interval")
)
