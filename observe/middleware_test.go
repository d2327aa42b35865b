package observe

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TestMiddleware_SuccessPath verifies a span and a log entry per request.
func TestMiddleware_SuccessPath(t *testing.T) {
	tr, recorder := newRecordingTracer()
	var buf bytes.Buffer
	mw := NewMiddleware(tr, NewLoggerWithWriter("debug", &buf))

	h := mw.Wrap("health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "http health" {
		t.Errorf("expected span name 'http health', got %q", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("expected Ok status, got %v", spans[0].Status().Code)
	}

	entries := decodeEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0]["route"] != "health" {
		t.Errorf("expected route='health', got %v", entries[0]["route"])
	}
	if entries[0]["status"] != float64(http.StatusOK) {
		t.Errorf("expected status=200, got %v", entries[0]["status"])
	}
	if _, ok := entries[0]["duration_ms"]; !ok {
		t.Error("expected duration_ms field")
	}
}

// TestMiddleware_ServerErrorMarksSpan verifies 5xx responses mark the span as failed.
func TestMiddleware_ServerErrorMarksSpan(t *testing.T) {
	tr, recorder := newRecordingTracer()
	mw := NewMiddleware(tr, NopLogger())

	h := mw.Wrap("health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}

	s := recorder.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Errorf("expected Error status, got %v", s.Status().Code)
	}
	var code int64
	for _, a := range s.Attributes() {
		if a.Key == attribute.Key("http.status_code") {
			code = a.Value.AsInt64()
		}
	}
	if code != http.StatusServiceUnavailable {
		t.Errorf("expected http.status_code=503, got %d", code)
	}
}

// TestMiddleware_PropagatesContext verifies the handler sees the request span.
func TestMiddleware_PropagatesContext(t *testing.T) {
	tr, _ := newRecordingTracer()
	mw := NewMiddleware(tr, NopLogger())

	var seen context.Context
	h := mw.Wrap("metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Context()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !trace.SpanFromContext(seen).SpanContext().IsValid() {
		t.Error("expected a valid span in the handler context")
	}
}

// TestMiddleware_DisabledNoop verifies an all-disabled observer still serves requests.
func TestMiddleware_DisabledNoop(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "test"})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	mw := MiddlewareFromObserver(obs)

	h := mw.Wrap("health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Body.String() != "ok" {
		t.Errorf("expected body 'ok', got %q", rec.Body.String())
	}
}
