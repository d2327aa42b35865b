package eventcounter

import (
	"github.com/jonwraymond/counterhealth/health"
	"github.com/jonwraymond/counterhealth/resilience"
)

// Filter operation names used in logs and metrics.
const (
	opShouldRecord = "ShouldRecordEventSource"
	opOnSnapshot   = "OnSnapshot"
	opUpdateHealth = "UpdateHealthStatus"
)

// guardedFilter calls into a Filter, through per-operation circuit breakers
// when isolation is enabled. Without breakers calls are direct and panics
// propagate to the caller.
//
// Each operation has its own breaker so that frequent successful snapshots
// cannot reset the failure count of a failing UpdateHealthStatus.
type guardedFilter struct {
	filter Filter
	name   string

	discoverCB *resilience.CircuitBreaker
	snapshotCB *resilience.CircuitBreaker
	updateCB   *resilience.CircuitBreaker
}

func (g *guardedFilter) shouldRecord(sourceName string) (bool, error) {
	if g.discoverCB == nil {
		return g.filter.ShouldRecordEventSource(sourceName), nil
	}
	var ok bool
	err := g.discoverCB.Do(func() error {
		ok = g.filter.ShouldRecordEventSource(sourceName)
		return nil
	})
	return ok && err == nil, err
}

func (g *guardedFilter) onSnapshot(s Snapshot) error {
	if g.snapshotCB == nil {
		g.filter.OnSnapshot(s)
		return nil
	}
	return g.snapshotCB.Do(func() error {
		g.filter.OnSnapshot(s)
		return nil
	})
}

func (g *guardedFilter) updateHealthStatus(data map[string]any) (health.Status, error) {
	if g.updateCB == nil {
		return g.filter.UpdateHealthStatus(data), nil
	}
	status := health.StatusUnhealthy
	err := g.updateCB.Do(func() error {
		status = g.filter.UpdateHealthStatus(data)
		return nil
	})
	if err != nil {
		data[g.name] = "filter failed: " + err.Error()
		return health.StatusUnhealthy, err
	}
	return status, nil
}
