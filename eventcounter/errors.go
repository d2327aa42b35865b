package eventcounter

import "errors"

// Sentinel errors for aggregator lifecycle and construction.
var (
	// ErrNilHub is returned by New when no host is given.
	ErrNilHub = errors.New("eventcounter: hub is nil")

	// ErrNilFilter is returned by New when a filter is nil.
	ErrNilFilter = errors.New("eventcounter: filter is nil")

	// ErrAlreadyStarted is returned by Start on a running aggregator.
	ErrAlreadyStarted = errors.New("eventcounter: aggregator already started")

	// ErrStopped is returned by Start on a stopped aggregator.
	ErrStopped = errors.New("eventcounter: aggregator stopped")
)
