package observe

import (
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Middleware wraps HTTP handlers with a span and an access log entry.
//
// Contract:
//   - Concurrency: Wrap returns a handler safe for concurrent use.
//   - Context: the span context is propagated to the wrapped handler.
//   - Errors: 5xx responses are recorded on the span as errors.
type Middleware struct {
	tracer Tracer
	logger Logger
}

// NewMiddleware creates a new Middleware with the given components.
func NewMiddleware(tracer Tracer, logger Logger) *Middleware {
	return &Middleware{tracer: tracer, logger: logger}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) *Middleware {
	return NewMiddleware(NewTracer(obs.Tracer()), obs.Logger().WithComponent("http"))
}

// Wrap instruments next under the given route name.
func (m *Middleware) Wrap(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := m.tracer.StartSpan(r.Context(), "http "+route,
			attribute.String("http.route", route),
			attribute.String("http.method", r.Method),
		)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		duration := time.Since(start)

		span.SetAttributes(attribute.Int("http.status_code", rec.status))
		var err error
		if rec.status >= http.StatusInternalServerError {
			err = fmt.Errorf("http status %d", rec.status)
		}
		m.tracer.EndSpan(span, err)

		m.logger.Debug(ctx, "request served",
			Field{Key: "route", Value: route},
			Field{Key: "method", Value: r.Method},
			Field{Key: "status", Value: rec.status},
			Field{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000},
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
