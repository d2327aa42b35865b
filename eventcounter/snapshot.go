package eventcounter

import (
	"maps"

	"github.com/jonwraymond/counterhealth/instrument"
)

// Snapshot is one decoded counter report.
//
// The typed accessors read from the report payload and return the zero
// value when a field is absent or holds an incompatible type.
type Snapshot struct {
	// SourceName is the name of the source that published the report.
	SourceName string

	// SourceID is the identity of the source that published the report.
	SourceID instrument.SourceID

	fields map[string]any
}

// NewSnapshot builds a snapshot from a source envelope and a report payload.
// The payload is copied.
func NewSnapshot(sourceName string, sourceID instrument.SourceID, payload map[string]any) Snapshot {
	return Snapshot{
		SourceName: sourceName,
		SourceID:   sourceID,
		fields:     maps.Clone(payload),
	}
}

// Name is the machine name of the counter, e.g. "cpu-usage".
func (s Snapshot) Name() string { return s.str(instrument.FieldName) }

// DisplayName is the human readable counter name.
func (s Snapshot) DisplayName() string { return s.str(instrument.FieldDisplayName) }

// Mean is the mean of the values observed during the interval.
func (s Snapshot) Mean() float64 { return s.float(instrument.FieldMean) }

// Min is the smallest value observed during the interval.
func (s Snapshot) Min() float64 { return s.float(instrument.FieldMin) }

// Max is the largest value observed during the interval.
func (s Snapshot) Max() float64 { return s.float(instrument.FieldMax) }

// StandardDeviation of the values observed during the interval.
func (s Snapshot) StandardDeviation() float64 { return s.float(instrument.FieldStandardDeviation) }

// Count is the number of values observed during the interval.
func (s Snapshot) Count() int {
	v, _ := toFloat64(s.fields[instrument.FieldCount])
	return int(v)
}

// IntervalSec is the measured length of the reporting interval.
func (s Snapshot) IntervalSec() float32 {
	return float32(s.float(instrument.FieldIntervalSec))
}

// Series describes the configured interval, e.g. "Interval=1000".
func (s Snapshot) Series() string { return s.str(instrument.FieldSeries) }

// CounterType is "Mean" or "Sum".
func (s Snapshot) CounterType() string { return s.str(instrument.FieldCounterType) }

// DisplayUnits is the unit shown next to the counter's values.
func (s Snapshot) DisplayUnits() string { return s.str(instrument.FieldDisplayUnits) }

// Metadata is the counter's "key:value" metadata list.
func (s Snapshot) Metadata() string { return s.str(instrument.FieldMetadata) }

// Field returns a raw payload field.
func (s Snapshot) Field(key string) (any, bool) {
	v, ok := s.fields[key]
	return v, ok
}

// Payload returns a copy of the complete report payload.
func (s Snapshot) Payload() map[string]any {
	return maps.Clone(s.fields)
}

func (s Snapshot) str(key string) string {
	v, _ := s.fields[key].(string)
	return v
}

func (s Snapshot) float(key string) float64 {
	v, _ := toFloat64(s.fields[key])
	return v
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// counterPayload extracts the report payload of a counter event. Only
// EventCounters events carrying a map with a Name key qualify.
func counterPayload(ev instrument.Event) (map[string]any, bool) {
	if ev.Name != instrument.EventCounters {
		return nil, false
	}
	for _, p := range ev.Payload {
		m, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if _, ok := m[instrument.FieldName]; ok {
			return m, true
		}
	}
	return nil, false
}
