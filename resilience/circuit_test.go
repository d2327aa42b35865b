package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(cfg CircuitBreakerConfig) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cb := NewCircuitBreaker(cfg)
	cb.now = clock.Now
	return cb, clock
}

func fail(err error) func() error { return func() error { return err } }
func succeed() func() error       { return func() error { return nil } }
func panics(v any) func() error   { return func() error { panic(v) } }

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	if cb.State() != StateClosed {
		t.Errorf("Initial state = %v, want closed", cb.State())
	}
	if cb.config.MaxFailures != 5 {
		t.Errorf("MaxFailures = %d, want 5", cb.config.MaxFailures)
	}
	if cb.config.ResetTimeout != 30*time.Second {
		t.Errorf("ResetTimeout = %v, want 30s", cb.config.ResetTimeout)
	}
	if cb.config.HalfOpenMaxCalls != 1 {
		t.Errorf("HalfOpenMaxCalls = %d, want 1", cb.config.HalfOpenMaxCalls)
	}
}

func TestCircuitBreaker_OpenAfterFailures(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{MaxFailures: 3, ResetTimeout: time.Second})
	testErr := errors.New("test error")

	for i := 0; i < 2; i++ {
		if err := cb.Do(fail(testErr)); !errors.Is(err, testErr) {
			t.Errorf("Do() error = %v, want %v", err, testErr)
		}
		if cb.State() != StateClosed {
			t.Errorf("After %d failures, state = %v, want closed", i+1, cb.State())
		}
	}

	if err := cb.Do(fail(testErr)); !errors.Is(err, testErr) {
		t.Errorf("Do() error = %v, want %v", err, testErr)
	}
	if cb.State() != StateOpen {
		t.Errorf("After 3 failures, state = %v, want open", cb.State())
	}

	err := cb.Do(func() error {
		t.Error("Should not be called when circuit is open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Do() when open = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{MaxFailures: 2})
	testErr := errors.New("boom")

	_ = cb.Do(fail(testErr))
	_ = cb.Do(succeed())
	_ = cb.Do(fail(testErr))

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed after non-consecutive failures", cb.State())
	}
	if got := cb.Metrics().Failures; got != 1 {
		t.Errorf("Failures = %d, want 1", got)
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: 10 * time.Second})

	_ = cb.Do(fail(errors.New("x")))
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	clock.Advance(10 * time.Second)
	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", cb.State())
	}

	if err := cb.Do(succeed()); err != nil {
		t.Errorf("probe Do() error = %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed after successful probe", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Second})

	_ = cb.Do(fail(errors.New("x")))
	clock.Advance(time.Second)

	_ = cb.Do(fail(errors.New("still broken")))
	if cb.State() != StateOpen {
		t.Errorf("state = %v, want open after failed probe", cb.State())
	}

	clock.Advance(500 * time.Millisecond)
	if err := cb.Do(succeed()); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Do() = %v, want ErrCircuitOpen before the new timeout elapses", err)
	}
}

func TestCircuitBreaker_HalfOpenLimitsProbes(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Second})

	_ = cb.Do(fail(errors.New("x")))
	clock.Advance(time.Second)

	release := make(chan struct{})
	entered := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Do(func() error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	if err := cb.Do(succeed()); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("second probe = %v, want ErrCircuitOpen", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("first probe = %v, want nil", err)
	}
}

func TestCircuitBreaker_PanicCountsAsFailure(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{MaxFailures: 2})

	err := cb.Do(panics("filter exploded"))
	if !errors.Is(err, ErrPanic) {
		t.Fatalf("Do() error = %v, want ErrPanic", err)
	}
	_ = cb.Do(panics("again"))

	if cb.State() != StateOpen {
		t.Errorf("state = %v, want open after two panics", cb.State())
	}
	if !errors.Is(cb.Metrics().LastError, ErrPanic) {
		t.Errorf("LastError = %v, want ErrPanic", cb.Metrics().LastError)
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var mu sync.Mutex
	var transitions []string
	cb, clock := newTestBreaker(CircuitBreakerConfig{
		MaxFailures:  1,
		ResetTimeout: time.Second,
		OnStateChange: func(from, to State) {
			mu.Lock()
			transitions = append(transitions, from.String()+"->"+to.String())
			mu.Unlock()
		},
	})

	_ = cb.Do(fail(errors.New("x")))
	clock.Advance(time.Second)
	_ = cb.Do(succeed())

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %q, want %q", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreaker_OnStateChangeMayReenter(t *testing.T) {
	var cb *CircuitBreaker
	cb, _ = newTestBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		OnStateChange: func(from, to State) {
			_ = cb.State()
		},
	})

	done := make(chan struct{})
	go func() {
		_ = cb.Do(fail(errors.New("x")))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback re-entering the breaker deadlocked")
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1})

	_ = cb.Do(fail(errors.New("x")))
	cb.Reset()

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed after Reset", cb.State())
	}
	if m := cb.Metrics(); m.Failures != 0 || m.LastError != nil {
		t.Errorf("Metrics after Reset = %+v, want zero failures", m)
	}
}

func TestCircuitBreaker_Concurrent(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1000})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = cb.Do(succeed())
			} else {
				_ = cb.Do(panics(i))
			}
		}(i)
	}
	wg.Wait()

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(42):     "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
