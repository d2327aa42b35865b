package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrPanic wraps a value recovered from a panicking call.
	ErrPanic = errors.New("resilience: recovered panic")
)
