package instrument

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// EventWriter accepts events written by a source. *Hub implements it.
type EventWriter interface {
	Write(ev Event)
}

// CounterSource is a Controllable source that owns a set of counters and,
// while enabled with an IntervalOption, publishes one EventCounters event
// per counter on every interval.
type CounterSource struct {
	*BasicSource
	writer EventWriter

	mu         sync.Mutex
	counters   []reporter
	names      map[string]struct{}
	interval   time.Duration
	cancel     context.CancelFunc
	lastReport time.Time

	// reportMu serializes delivery for this source.
	reportMu sync.Mutex
}

// NewCounterSource creates a counter source that publishes through w.
// The source still has to be registered with a Hub to be discoverable.
func NewCounterSource(name string, w EventWriter) *CounterSource {
	return &CounterSource{
		BasicSource: NewBasicSource(name),
		writer:      w,
		names:       make(map[string]struct{}),
	}
}

// NewCounter adds a Counter that aggregates written values.
func (s *CounterSource) NewCounter(name string, opts ...CounterOption) (*Counter, error) {
	c := &Counter{info: newCounterInfo(name, opts)}
	if err := s.add(c); err != nil {
		return nil, err
	}
	return c, nil
}

// NewPollingCounter adds a counter that reports fn's value each interval.
func (s *CounterSource) NewPollingCounter(name string, fn func() float64, opts ...CounterOption) (*PollingCounter, error) {
	c := &PollingCounter{info: newCounterInfo(name, opts), fn: fn}
	if err := s.add(c); err != nil {
		return nil, err
	}
	return c, nil
}

// NewIncrementingPollingCounter adds a counter that reports how much the
// cumulative value returned by fn grew during each interval.
func (s *CounterSource) NewIncrementingPollingCounter(name string, fn func() float64, opts ...CounterOption) (*IncrementingPollingCounter, error) {
	c := &IncrementingPollingCounter{info: newCounterInfo(name, opts), fn: fn}
	if err := s.add(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CounterSource) add(r reporter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.names[r.counterName()]; exists {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateCounter, s.Name(), r.counterName())
	}
	s.names[r.counterName()] = struct{}{}
	s.counters = append(s.counters, r)
	return nil
}

// OnCommand starts, restarts or stops the reporting timer.
func (s *CounterSource) OnCommand(cmd Command) {
	if !cmd.Enable {
		s.stop()
		return
	}

	interval, err := ParseInterval(cmd.Options)
	if err != nil || interval <= 0 {
		s.stop()
		return
	}
	s.start(interval)
}

// Interval returns the active reporting interval, or zero when stopped.
func (s *CounterSource) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Close stops the reporting timer.
func (s *CounterSource) Close() {
	s.stop()
}

// Report publishes one report per counter immediately.
func (s *CounterSource) Report() {
	s.reportMu.Lock()
	defer s.reportMu.Unlock()

	now := time.Now()
	s.mu.Lock()
	counters := make([]reporter, len(s.counters))
	copy(counters, s.counters)
	interval := s.interval
	elapsed := interval
	if !s.lastReport.IsZero() {
		elapsed = now.Sub(s.lastReport)
	}
	s.lastReport = now
	s.mu.Unlock()

	for _, c := range counters {
		s.writer.Write(Event{
			Source:  s,
			Name:    EventCounters,
			Payload: []any{c.report(elapsed, interval)},
		})
	}
}

func (s *CounterSource) start(interval time.Duration) {
	s.mu.Lock()
	if s.cancel != nil && s.interval == interval {
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.interval = interval
	s.lastReport = time.Now()
	s.mu.Unlock()

	go s.run(ctx, interval)
}

func (s *CounterSource) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.interval = 0
}

func (s *CounterSource) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			s.Report()
		}
	}
}

// ParseInterval reads IntervalOption from enable options. A missing option
// yields zero and no error.
func ParseInterval(options map[string]string) (time.Duration, error) {
	raw, ok := options[IntervalOption]
	if !ok || raw == "" {
		return 0, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInterval, raw)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

var _ Controllable = (*CounterSource)(nil)
