package instrument

import (
	"runtime/metrics"
	"sync"
	"time"
)

const bytesPerMB = 1024 * 1024

// runtime/metrics keys sampled by the runtime source.
const (
	metricGoroutines = "/sched/goroutines:goroutines"
	metricHeapObject = "/memory/classes/heap/objects:bytes"
	metricHeapGoal   = "/gc/heap/goal:bytes"
	metricTotalBytes = "/memory/classes/total:bytes"
	metricGCCycles   = "/gc/cycles/total:gc-cycles"
	metricAllocBytes = "/gc/heap/allocs:bytes"
	metricGOMAXPROCS = "/sched/gomaxprocs:threads"
	metricCPUSeconds = "/cpu/classes/total:cpu-seconds"
)

// NewRuntimeSource creates the go.runtime counter source and registers it
// with the hub.
func NewRuntimeSource(hub *Hub) (*CounterSource, error) {
	src := NewCounterSource(RuntimeSourceName, hub)

	cpu := &cpuUsage{}
	polling := []struct {
		name string
		fn   func() float64
		opts []CounterOption
	}{
		{CounterCPUUsage, cpu.sample, []CounterOption{WithDisplayName("CPU Usage"), WithDisplayUnits("%")}},
		{CounterGoroutineCount, func() float64 { return readMetric(metricGoroutines) }, []CounterOption{WithDisplayName("Goroutine Count")}},
		{CounterHeapSize, func() float64 { return readMetric(metricHeapObject) / bytesPerMB }, []CounterOption{WithDisplayName("Heap Size"), WithDisplayUnits("MB")}},
		{CounterHeapGoal, func() float64 { return readMetric(metricHeapGoal) / bytesPerMB }, []CounterOption{WithDisplayName("GC Heap Goal"), WithDisplayUnits("MB")}},
		{CounterTotalMemory, func() float64 { return readMetric(metricTotalBytes) / bytesPerMB }, []CounterOption{WithDisplayName("Total Runtime Memory"), WithDisplayUnits("MB")}},
		{CounterGOMAXPROCS, func() float64 { return readMetric(metricGOMAXPROCS) }, []CounterOption{WithDisplayName("GOMAXPROCS")}},
	}
	for _, p := range polling {
		if _, err := src.NewPollingCounter(p.name, p.fn, p.opts...); err != nil {
			return nil, err
		}
	}

	if _, err := src.NewIncrementingPollingCounter(CounterGCCount,
		func() float64 { return readMetric(metricGCCycles) },
		WithDisplayName("GC Count")); err != nil {
		return nil, err
	}
	if _, err := src.NewIncrementingPollingCounter(CounterAllocRate,
		func() float64 { return readMetric(metricAllocBytes) },
		WithDisplayName("Allocation Rate"), WithDisplayUnits("B")); err != nil {
		return nil, err
	}

	if err := hub.Register(src); err != nil {
		return nil, err
	}
	return src, nil
}

// readMetric returns a runtime metric as float64, or 0 if the running Go
// version does not support it.
func readMetric(name string) float64 {
	sample := []metrics.Sample{{Name: name}}
	metrics.Read(sample)

	switch sample[0].Value.Kind() {
	case metrics.KindUint64:
		return float64(sample[0].Value.Uint64())
	case metrics.KindFloat64:
		return sample[0].Value.Float64()
	default:
		return 0
	}
}

// cpuUsage turns cumulative CPU seconds into a percentage of the CPU time
// available since the previous sample.
type cpuUsage struct {
	mu       sync.Mutex
	lastCPU  float64
	lastWall time.Time
}

func (c *cpuUsage) sample() float64 {
	now := time.Now()
	cpu := readMetric(metricCPUSeconds)
	procs := readMetric(metricGOMAXPROCS)

	c.mu.Lock()
	defer c.mu.Unlock()

	var pct float64
	if !c.lastWall.IsZero() && procs > 0 {
		wall := now.Sub(c.lastWall).Seconds()
		if wall > 0 {
			pct = (cpu - c.lastCPU) / (wall * procs) * 100
		}
	}
	c.lastCPU = cpu
	c.lastWall = now

	if pct < 0 {
		return 0
	}
	return pct
}
