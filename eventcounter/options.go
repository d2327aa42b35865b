package eventcounter

import (
	"time"

	"github.com/jonwraymond/counterhealth/observe"
	"github.com/jonwraymond/counterhealth/resilience"
)

// DefaultInterval is the aggregation period and the reporting interval
// requested from every enabled source.
const DefaultInterval = time.Second

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithInterval sets the aggregation period. Non-positive values are ignored.
// Sources are always asked to report every DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observe.CounterMetrics) Option {
	return func(a *Aggregator) {
		if m != nil {
			a.metrics = m
		}
	}
}

// WithTracer sets the tracer used for discovery and cycle spans.
func WithTracer(t observe.Tracer) Option {
	return func(a *Aggregator) {
		if t != nil {
			a.tracer = t
		}
	}
}

// WithFilterIsolation runs every filter call through a circuit breaker,
// one per filter and operation. A panicking filter is reported as unhealthy
// for that call instead of crashing the dispatch or aggregation goroutine,
// and the failing operation is skipped while its breaker is open.
func WithFilterIsolation(cfg resilience.CircuitBreakerConfig) Option {
	return func(a *Aggregator) {
		c := cfg
		a.isolation = &c
	}
}
