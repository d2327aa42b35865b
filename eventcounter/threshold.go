package eventcounter

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jonwraymond/counterhealth/health"
)

// Direction says which side of a threshold is bad.
type Direction int

const (
	// DirectionMax treats high values as bad and tracks the snapshot's Max.
	DirectionMax Direction = iota
	// DirectionMin treats low values as bad and tracks the snapshot's Min.
	DirectionMin
)

// String returns "max" or "min".
func (d Direction) String() string {
	if d == DirectionMin {
		return "min"
	}
	return "max"
}

// ParseDirection parses "max" or "min", case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "max":
		return DirectionMax, nil
	case "min":
		return DirectionMin, nil
	default:
		return DirectionMax, fmt.Errorf("eventcounter: unknown threshold direction %q", s)
	}
}

// ThresholdFilter compares one counter of one source against a degraded and
// an unhealthy threshold. Threshold values themselves count as crossed.
//
// The diagnostic entry is keyed by counter name alone, so two filters that
// watch the same counter on different sources overwrite each other's entry.
// Use one counter name per aggregator.
type ThresholdFilter struct {
	sourceName string
	counter    string
	unhealthy  float64
	degraded   float64
	direction  Direction

	mu      sync.RWMutex
	current float64
}

// NewThresholdFilter creates a filter for counter on sourceName. Names are
// matched case-insensitively.
func NewThresholdFilter(sourceName, counter string, unhealthy, degraded float64, direction Direction) *ThresholdFilter {
	return &ThresholdFilter{
		sourceName: sourceName,
		counter:    counter,
		unhealthy:  unhealthy,
		degraded:   degraded,
		direction:  direction,
	}
}

// Name returns the counter name, which is also the diagnostic key.
func (f *ThresholdFilter) Name() string {
	return f.counter
}

// ShouldRecordEventSource reports whether sourceName is the filter's source.
func (f *ThresholdFilter) ShouldRecordEventSource(sourceName string) bool {
	return strings.EqualFold(sourceName, f.sourceName)
}

// OnSnapshot records Max or Min, depending on the direction, when the
// snapshot is for the filter's counter.
func (f *ThresholdFilter) OnSnapshot(s Snapshot) {
	if !strings.EqualFold(s.Name(), f.counter) {
		return
	}
	v := s.Max()
	if f.direction == DirectionMin {
		v = s.Min()
	}

	f.mu.Lock()
	f.current = v
	f.mu.Unlock()
}

// UpdateHealthStatus writes the current value and thresholds under the
// counter name and returns the status of the last recorded value.
func (f *ThresholdFilter) UpdateHealthStatus(data map[string]any) health.Status {
	f.mu.RLock()
	v := f.current
	f.mu.RUnlock()

	data[f.counter] = fmt.Sprintf("current=%v, degraded=%v, unhealthy=%v", v, f.degraded, f.unhealthy)
	return f.status(v)
}

// Current returns the last recorded value.
func (f *ThresholdFilter) Current() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

func (f *ThresholdFilter) status(v float64) health.Status {
	crossed := func(threshold float64) bool { return v >= threshold }
	if f.direction == DirectionMin {
		crossed = func(threshold float64) bool { return v <= threshold }
	}

	switch {
	case crossed(f.unhealthy):
		return health.StatusUnhealthy
	case crossed(f.degraded):
		return health.StatusDegraded
	default:
		return health.StatusHealthy
	}
}

var _ Filter = (*ThresholdFilter)(nil)
