package instrument

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// Counter types reported in the CounterType payload field.
const (
	CounterTypeMean = "Mean"
	CounterTypeSum  = "Sum"
)

// Payload keys of a counter report.
const (
	FieldName              = "Name"
	FieldDisplayName       = "DisplayName"
	FieldMean              = "Mean"
	FieldStandardDeviation = "StandardDeviation"
	FieldCount             = "Count"
	FieldMin               = "Min"
	FieldMax               = "Max"
	FieldIncrement         = "Increment"
	FieldIntervalSec       = "IntervalSec"
	FieldSeries            = "Series"
	FieldCounterType       = "CounterType"
	FieldMetadata          = "Metadata"
	FieldDisplayUnits      = "DisplayUnits"
)

// CounterOption configures the descriptive fields of a counter.
type CounterOption func(*counterInfo)

// WithDisplayName sets the human readable counter name.
func WithDisplayName(name string) CounterOption {
	return func(c *counterInfo) { c.displayName = name }
}

// WithDisplayUnits sets the unit shown next to counter values, e.g. "MB" or "%".
func WithDisplayUnits(units string) CounterOption {
	return func(c *counterInfo) { c.displayUnits = units }
}

// WithMetadata attaches a key/value pair to every report of the counter.
func WithMetadata(key, value string) CounterOption {
	return func(c *counterInfo) {
		if c.metadata == nil {
			c.metadata = make(map[string]string)
		}
		c.metadata[key] = value
	}
}

type counterInfo struct {
	name         string
	displayName  string
	displayUnits string
	metadata     map[string]string
}

func newCounterInfo(name string, opts []CounterOption) counterInfo {
	info := counterInfo{name: name}
	for _, opt := range opts {
		opt(&info)
	}
	return info
}

// payload builds the descriptive part of a report.
func (c *counterInfo) payload(counterType string, elapsed, interval time.Duration) map[string]any {
	return map[string]any{
		FieldName:         c.name,
		FieldDisplayName:  c.displayName,
		FieldDisplayUnits: c.displayUnits,
		FieldMetadata:     c.metadataString(),
		FieldCounterType:  counterType,
		FieldIntervalSec:  float32(elapsed.Seconds()),
		FieldSeries:       fmt.Sprintf("Interval=%d", interval.Milliseconds()),
	}
}

func (c *counterInfo) metadataString() string {
	if len(c.metadata) == 0 {
		return ""
	}
	keys := make([]string, 0, len(c.metadata))
	for k := range c.metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ":" + c.metadata[k]
	}
	return strings.Join(parts, ",")
}

// reporter is implemented by every counter kind a CounterSource owns.
type reporter interface {
	counterName() string
	report(elapsed, interval time.Duration) map[string]any
}

// Counter aggregates values written during an interval and reports their
// mean, standard deviation, count, min and max.
type Counter struct {
	info counterInfo

	mu    sync.Mutex
	count int
	sum   float64
	sumSq float64
	min   float64
	max   float64
}

// WriteMetric records one observation.
func (c *Counter) WriteMetric(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.count == 0 || v < c.min {
		c.min = v
	}
	if c.count == 0 || v > c.max {
		c.max = v
	}
	c.count++
	c.sum += v
	c.sumSq += v * v
}

func (c *Counter) counterName() string { return c.info.name }

func (c *Counter) report(elapsed, interval time.Duration) map[string]any {
	c.mu.Lock()
	count, sum, sumSq, lo, hi := c.count, c.sum, c.sumSq, c.min, c.max
	c.count, c.sum, c.sumSq, c.min, c.max = 0, 0, 0, 0, 0
	c.mu.Unlock()

	var mean, stddev float64
	if count > 0 {
		mean = sum / float64(count)
		if variance := sumSq/float64(count) - mean*mean; variance > 0 {
			stddev = math.Sqrt(variance)
		}
	}

	p := c.info.payload(CounterTypeMean, elapsed, interval)
	p[FieldMean] = mean
	p[FieldStandardDeviation] = stddev
	p[FieldCount] = count
	p[FieldMin] = lo
	p[FieldMax] = hi
	return p
}

// PollingCounter samples a gauge function once per interval.
type PollingCounter struct {
	info counterInfo
	fn   func() float64
}

func (c *PollingCounter) counterName() string { return c.info.name }

func (c *PollingCounter) report(elapsed, interval time.Duration) map[string]any {
	v := c.fn()

	p := c.info.payload(CounterTypeMean, elapsed, interval)
	p[FieldMean] = v
	p[FieldStandardDeviation] = 0.0
	p[FieldCount] = 1
	p[FieldMin] = v
	p[FieldMax] = v
	return p
}

// IncrementingPollingCounter samples a cumulative total once per interval
// and reports the increase since the previous report.
type IncrementingPollingCounter struct {
	info counterInfo
	fn   func() float64

	mu      sync.Mutex
	last    float64
	started bool
}

func (c *IncrementingPollingCounter) counterName() string { return c.info.name }

func (c *IncrementingPollingCounter) report(elapsed, interval time.Duration) map[string]any {
	total := c.fn()

	c.mu.Lock()
	var delta float64
	if c.started {
		delta = total - c.last
	}
	c.last = total
	c.started = true
	c.mu.Unlock()

	p := c.info.payload(CounterTypeSum, elapsed, interval)
	p[FieldIncrement] = delta
	p[FieldMean] = delta
	p[FieldStandardDeviation] = 0.0
	p[FieldCount] = 1
	p[FieldMin] = delta
	p[FieldMax] = delta
	return p
}
