package instrument

// Well-known source and counter names published by this module. Filters
// can match against these without hard-coding strings.
const (
	// RuntimeSourceName is the name of the Go runtime counter source.
	RuntimeSourceName = "go.runtime"

	// CounterCPUUsage is the share of available CPU time used by the
	// process during the interval, in percent.
	CounterCPUUsage = "cpu-usage"

	// CounterGoroutineCount is the number of live goroutines.
	CounterGoroutineCount = "goroutine-count"

	// CounterHeapSize is the memory occupied by live and unswept heap
	// objects, in MB.
	CounterHeapSize = "heap-size"

	// CounterHeapGoal is the heap size target of the next GC cycle, in MB.
	CounterHeapGoal = "gc-heap-goal"

	// CounterTotalMemory is all memory mapped by the Go runtime, in MB.
	CounterTotalMemory = "total-memory"

	// CounterGCCount is the number of completed GC cycles per interval.
	CounterGCCount = "gc-count"

	// CounterAllocRate is the number of bytes allocated per interval.
	CounterAllocRate = "alloc-rate"

	// CounterGOMAXPROCS is the current GOMAXPROCS setting.
	CounterGOMAXPROCS = "gomaxprocs"
)

// RuntimeCounters lists every counter published by the runtime source.
var RuntimeCounters = []string{
	CounterCPUUsage,
	CounterGoroutineCount,
	CounterHeapSize,
	CounterHeapGoal,
	CounterTotalMemory,
	CounterGCCount,
	CounterAllocRate,
	CounterGOMAXPROCS,
}
