// Package health provides health checking primitives.
//
// A Checker is any component that can report its health as a Result. The
// Status type represents the health state and is ordered so that worse
// compares lower: Unhealthy < Degraded < Healthy.
//
// # Aggregating Health Checks
//
// Use Aggregator to combine multiple checkers:
//
//	agg := health.NewAggregator()
//	agg.Register("eventcounter", counterChecker)
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// # HTTP Endpoints
//
//	// Liveness probe (for Kubernetes)
//	http.Handle("/healthz", health.LivenessHandler())
//
//	// Readiness probe with component checks
//	http.Handle("/readyz", health.ReadinessHandler(agg))
//
//	// Detailed health status including diagnostic data
//	http.Handle("/health", health.DetailedHandler(agg))
package health
