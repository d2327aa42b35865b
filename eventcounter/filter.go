package eventcounter

import (
	"fmt"

	"github.com/jonwraymond/counterhealth/health"
)

// Filter decides which sources to monitor, consumes their snapshots and
// contributes to the aggregate verdict.
//
// Contract:
//   - ShouldRecordEventSource is a pure predicate, called once per source per
//     Start.
//   - OnSnapshot runs on the publisher's goroutine, shared with every other
//     filter of the same source. It must not block.
//   - UpdateHealthStatus runs once per cycle on the aggregation goroutine. It
//     adds its diagnostic entries to data and must not block.
//   - Concurrency: OnSnapshot and UpdateHealthStatus run concurrently; the
//     filter synchronizes its own state.
//   - Errors: without WithFilterIsolation a panic is not recovered. A panic
//     in OnSnapshot unwinds the publisher's goroutine, and a panic in
//     UpdateHealthStatus unwinds the aggregation goroutine, which crashes the
//     process. Build the aggregator WithFilterIsolation to contain them.
//   - Names: a filter with a Name method should use it as its diagnostic
//     key, and the names should be unique within one aggregator; entries
//     written under the same key overwrite each other.
type Filter interface {
	ShouldRecordEventSource(sourceName string) bool
	OnSnapshot(s Snapshot)
	UpdateHealthStatus(data map[string]any) health.Status
}

// filterName returns f's Name when it has one, else a positional name.
func filterName(f Filter, idx int) string {
	if n, ok := f.(interface{ Name() string }); ok && n.Name() != "" {
		return n.Name()
	}
	return fmt.Sprintf("filter-%d", idx)
}
