// Package eventcounter turns periodic counter reports published on an
// instrument.Hub into a single health verdict.
//
// An Aggregator is built with an ordered set of Filters. When started it
// asks every filter which of the sources known to the hub it wants, enables
// counter reporting on those sources once each, and routes every decoded
// Snapshot to the filters that claimed its source. A background loop then
// polls every filter once per interval and publishes the worst status
// together with the filters' diagnostic data.
//
//	agg, err := eventcounter.New(hub, []eventcounter.Filter{
//	    eventcounter.NewThresholdFilter(instrument.RuntimeSourceName,
//	        instrument.CounterCPUUsage, 95, 80, eventcounter.DirectionMax),
//	})
//	if err != nil { ... }
//	if err := agg.Start(ctx); err != nil { ... }
//	defer agg.Stop(context.Background())
//
//	verdict := agg.Current()
//
// The set of monitored sources is fixed when Start runs. Filters synchronize
// their own state: OnSnapshot runs on publisher goroutines while
// UpdateHealthStatus runs on the aggregation loop.
package eventcounter
