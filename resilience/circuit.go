package resilience

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means calls pass through.
	StateClosed State = iota
	// StateOpen means calls are rejected until the reset timeout elapses.
	StateOpen
	// StateHalfOpen means a limited number of probe calls are allowed.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures before opening.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before probing.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxCalls is the number of probe calls allowed while half-open.
	// Default: 1
	HalfOpenMaxCalls int

	// OnStateChange is called after every transition, outside the lock.
	OnStateChange func(from, to State)
}

// withDefaults returns a copy of c with zero fields replaced by defaults.
func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if c.MaxFailures <= 0 {
		c.MaxFailures = 5
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 30 * time.Second
	}
	if c.HalfOpenMaxCalls <= 0 {
		c.HalfOpenMaxCalls = 1
	}
	return c
}

// CircuitBreaker guards synchronous calls into code that may fail or panic.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: a rejected call returns ErrCircuitOpen; a panicking call
//     returns an error wrapping ErrPanic.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu           sync.Mutex
	state        State
	failures     int
	openedAt     time.Time
	probesIssued int
	lastErr      error
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		config: config.withDefaults(),
		now:    time.Now,
		state:  StateClosed,
	}
}

// Do runs fn through the breaker. Panics inside fn are recovered and counted
// as failures.
func (cb *CircuitBreaker) Do(fn func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}

	err := Recover(fn)
	cb.record(err)
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	from, to := cb.advanceLocked()
	state := cb.state
	cb.mu.Unlock()

	cb.notify(from, to)
	return state
}

// Reset closes the circuit and clears the failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.probesIssued = 0
	cb.lastErr = nil
	cb.mu.Unlock()

	cb.notify(from, StateClosed)
}

// Metrics returns a point-in-time view of the breaker.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	from, to := cb.advanceLocked()
	m := CircuitBreakerMetrics{
		State:     cb.state,
		Failures:  cb.failures,
		OpenedAt:  cb.openedAt,
		LastError: cb.lastErr,
	}
	cb.mu.Unlock()

	cb.notify(from, to)
	return m
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State     State
	Failures  int
	OpenedAt  time.Time
	LastError error
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	from, to := cb.advanceLocked()

	var err error
	switch cb.state {
	case StateOpen:
		err = ErrCircuitOpen
	case StateHalfOpen:
		if cb.probesIssued >= cb.config.HalfOpenMaxCalls {
			err = ErrCircuitOpen
		} else {
			cb.probesIssued++
		}
	}
	cb.mu.Unlock()

	cb.notify(from, to)
	return err
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	from := cb.state

	switch cb.state {
	case StateClosed:
		if err == nil {
			cb.failures = 0
			break
		}
		cb.failures++
		cb.lastErr = err
		if cb.failures >= cb.config.MaxFailures {
			cb.openLocked()
		}

	case StateHalfOpen:
		if err != nil {
			cb.lastErr = err
			cb.openLocked()
			break
		}
		cb.state = StateClosed
		cb.failures = 0
	}

	to := cb.state
	cb.mu.Unlock()

	cb.notify(from, to)
}

func (cb *CircuitBreaker) openLocked() {
	cb.state = StateOpen
	cb.openedAt = cb.now()
}

// advanceLocked moves an expired open circuit to half-open.
func (cb *CircuitBreaker) advanceLocked() (from, to State) {
	from = cb.state
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.config.ResetTimeout {
		cb.state = StateHalfOpen
		cb.probesIssued = 0
	}
	return from, cb.state
}

func (cb *CircuitBreaker) notify(from, to State) {
	if from != to && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}
