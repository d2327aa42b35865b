package health

import (
	"context"
	"time"
)

// Status represents the health status of a component.
//
// Statuses are ordered: a worse status compares lower, so the zero value is
// StatusUnhealthy.
type Status int

const (
	// StatusUnhealthy indicates the component is not functioning properly.
	StatusUnhealthy Status = iota
	// StatusDegraded indicates the component is functioning but with issues.
	StatusDegraded
	// StatusHealthy indicates the component is functioning normally.
	StatusHealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Worst returns the lowest ranked of the given statuses, or StatusHealthy
// when none are given.
func Worst(statuses ...Status) Status {
	worst := StatusHealthy
	for _, s := range statuses {
		if s < worst {
			worst = s
		}
	}
	return worst
}

// Result is a health verdict: a status plus diagnostic data.
//
// A Result is treated as immutable once published; producers build a new
// one instead of updating a shared instance.
type Result struct {
	// Status is the health status.
	Status Status

	// Description is a human readable summary.
	Description string

	// Data contains diagnostic entries contributed by the check.
	Data map[string]any

	// Duration is how long the check took.
	Duration time.Duration

	// Timestamp is when the result was produced.
	Timestamp time.Time

	// Error is the error if the check failed.
	Error error
}

// Healthy creates a healthy result.
func Healthy(description string) Result {
	return Result{
		Status:      StatusHealthy,
		Description: description,
		Timestamp:   time.Now(),
	}
}

// Degraded creates a degraded result.
func Degraded(description string) Result {
	return Result{
		Status:      StatusDegraded,
		Description: description,
		Timestamp:   time.Now(),
	}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(description string, err error) Result {
	return Result{
		Status:      StatusUnhealthy,
		Description: description,
		Error:       err,
		Timestamp:   time.Now(),
	}
}

// WithData attaches diagnostic data to a result.
func (r Result) WithData(data map[string]any) Result {
	r.Data = data
	return r
}

// WithDuration sets the duration on a result.
func (r Result) WithDuration(d time.Duration) Result {
	r.Duration = d
	return r
}

// Checker is the interface for health checks.
type Checker interface {
	// Name returns the name of this checker.
	Name() string

	// Check performs the health check and returns the result.
	Check(ctx context.Context) Result
}

// CheckerFunc is an adapter to allow ordinary functions to be used as Checkers.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a new CheckerFunc.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name returns the name of this checker.
func (f *CheckerFunc) Name() string {
	return f.name
}

// Check performs the health check.
func (f *CheckerFunc) Check(ctx context.Context) Result {
	return f.fn(ctx)
}
