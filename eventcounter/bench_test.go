package eventcounter

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonwraymond/counterhealth/instrument"
	"github.com/jonwraymond/counterhealth/resilience"
)

func newBenchAggregator(b *testing.B, src instrument.Source, opts ...Option) *Aggregator {
	b.Helper()
	filters := make([]Filter, 0, len(instrument.RuntimeCounters))
	for _, counter := range instrument.RuntimeCounters {
		filters = append(filters, NewThresholdFilter(src.Name(), counter, 100, 80, DirectionMax))
	}
	agg, err := New(newFakeHost(src), filters, append([]Option{WithInterval(time.Hour)}, opts...)...)
	if err != nil {
		b.Fatalf("New() error = %v", err)
	}
	if err := agg.Start(context.Background()); err != nil {
		b.Fatalf("Start() error = %v", err)
	}
	b.Cleanup(func() { _ = agg.Stop(context.Background()) })
	return agg
}

// BenchmarkAggregator_OnEventWritten measures decode and dispatch of one snapshot.
func BenchmarkAggregator_OnEventWritten(b *testing.B) {
	src := instrument.NewBasicSource(instrument.RuntimeSourceName)
	agg := newBenchAggregator(b, src)
	ev := counterEvent(src, instrument.CounterCPUUsage, 42)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		agg.OnEventWritten(ev)
	}
}

// BenchmarkAggregator_OnEventWritten_Isolated measures dispatch through circuit breakers.
func BenchmarkAggregator_OnEventWritten_Isolated(b *testing.B) {
	src := instrument.NewBasicSource(instrument.RuntimeSourceName)
	agg := newBenchAggregator(b, src, WithFilterIsolation(resilience.CircuitBreakerConfig{}))
	ev := counterEvent(src, instrument.CounterCPUUsage, 42)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		agg.OnEventWritten(ev)
	}
}

// BenchmarkAggregator_OnEventWritten_Parallel measures dispatch from concurrent publishers.
func BenchmarkAggregator_OnEventWritten_Parallel(b *testing.B) {
	src := instrument.NewBasicSource(instrument.RuntimeSourceName)
	agg := newBenchAggregator(b, src)
	ev := counterEvent(src, instrument.CounterCPUUsage, 42)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			agg.OnEventWritten(ev)
		}
	})
}

// BenchmarkAggregator_update measures one aggregation cycle.
func BenchmarkAggregator_update(b *testing.B) {
	src := instrument.NewBasicSource(instrument.RuntimeSourceName)
	agg := newBenchAggregator(b, src)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		agg.update(ctx)
	}
}

// BenchmarkAggregator_update_VaryingFilters measures cycle cost by filter count.
func BenchmarkAggregator_update_VaryingFilters(b *testing.B) {
	for _, size := range []int{1, 10, 100} {
		b.Run(fmt.Sprintf("filters=%d", size), func(b *testing.B) {
			src := instrument.NewBasicSource("app")
			filters := make([]Filter, size)
			for i := range filters {
				filters[i] = NewThresholdFilter("app", fmt.Sprintf("counter-%d", i), 100, 80, DirectionMax)
			}
			agg, err := New(newFakeHost(src), filters, WithInterval(time.Hour))
			if err != nil {
				b.Fatalf("New() error = %v", err)
			}
			if err := agg.Start(context.Background()); err != nil {
				b.Fatalf("Start() error = %v", err)
			}
			defer agg.Stop(context.Background())
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				agg.update(ctx)
			}
		})
	}
}

// BenchmarkAggregator_Current measures the verdict read path.
func BenchmarkAggregator_Current(b *testing.B) {
	src := instrument.NewBasicSource(instrument.RuntimeSourceName)
	agg := newBenchAggregator(b, src)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = agg.Current()
		}
	})
}
