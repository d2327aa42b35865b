// Package resilience isolates calls into code the caller does not trust.
//
// A CircuitBreaker counts consecutive failures of the calls it guards and,
// past a threshold, rejects further calls with ErrCircuitOpen until a reset
// timeout elapses. Panics are recovered and counted as failures, so a single
// misbehaving callee cannot take down the caller's goroutine:
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    MaxFailures:  3,
//	    ResetTimeout: 30 * time.Second,
//	})
//
//	err := cb.Do(func() error {
//	    filter.OnSnapshot(snap)
//	    return nil
//	})
//	if errors.Is(err, resilience.ErrPanic) { ... }
package resilience
