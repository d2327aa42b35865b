package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
)

func decodeEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log output as JSON: %v\nOutput: %s", err, line)
		}
		entries = append(entries, entry)
	}
	return entries
}

// TestLogger_ComponentField verifies WithComponent tags every entry.
func TestLogger_ComponentField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).WithComponent("eventcounter")

	logger.Info(context.Background(), "source enabled", Field{Key: "source", Value: "go.runtime"})

	entries := decodeEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if v := entries[0]["component"]; v != "eventcounter" {
		t.Errorf("expected component='eventcounter', got %v", v)
	}
	if v := entries[0]["source"]; v != "go.runtime" {
		t.Errorf("expected source='go.runtime', got %v", v)
	}
	if v := entries[0]["msg"]; v != "source enabled" {
		t.Errorf("expected msg='source enabled', got %v", v)
	}
}

// TestLogger_WithComponentDoesNotMutateParent verifies derived loggers are independent.
func TestLogger_WithComponentDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLoggerWithWriter("info", &buf)
	_ = parent.WithComponent("child")

	parent.Info(context.Background(), "parent message")

	entries := decodeEntries(t, &buf)
	if _, ok := entries[0]["component"]; ok {
		t.Errorf("parent logger should not carry component, got %v", entries[0]["component"])
	}
}

// TestLogger_ErrorValuesRendered verifies error fields are written as strings.
func TestLogger_ErrorValuesRendered(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Error(context.Background(), "disable failed", Field{Key: "error", Value: errors.New("source gone")})

	entries := decodeEntries(t, &buf)
	if v := entries[0]["error"]; v != "source gone" {
		t.Errorf("expected error='source gone', got %v", v)
	}
	if v := entries[0]["level"]; v != "error" {
		t.Errorf("expected level='error', got %v", v)
	}
}

// TestLogger_RedactsSensitiveFields verifies redacted keys never reach the output.
func TestLogger_RedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "auth configured",
		Field{Key: "token", Value: "super-secret-token"},
		Field{Key: "api_key", Value: "k-123"},
		Field{Key: "user", Value: "ops"},
	)

	output := buf.String()
	if strings.Contains(output, "super-secret-token") || strings.Contains(output, "k-123") {
		t.Errorf("sensitive value leaked into log output: %s", output)
	}

	entries := decodeEntries(t, &buf)
	if v := entries[0]["token"]; v != "[REDACTED]" {
		t.Errorf("expected token='[REDACTED]', got %v", v)
	}
	if v := entries[0]["user"]; v != "ops" {
		t.Errorf("expected user='ops', got %v", v)
	}
}

// TestLogger_LevelFiltering verifies entries below the configured level are dropped.
func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{level: "debug", want: []string{"debug", "info", "warn", "error"}},
		{level: "info", want: []string{"info", "warn", "error"}},
		{level: "warn", want: []string{"warn", "error"}},
		{level: "error", want: []string{"error"}},
	}

	for _, tc := range tests {
		t.Run(tc.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(tc.level, &buf)
			ctx := context.Background()

			logger.Debug(ctx, "d")
			logger.Info(ctx, "i")
			logger.Warn(ctx, "w")
			logger.Error(ctx, "e")

			entries := decodeEntries(t, &buf)
			if len(entries) != len(tc.want) {
				t.Fatalf("expected %d entries, got %d", len(tc.want), len(entries))
			}
			for i, entry := range entries {
				if entry["level"] != tc.want[i] {
					t.Errorf("entry %d: expected level %q, got %v", i, tc.want[i], entry["level"])
				}
			}
		})
	}
}

// TestParseLogLevel_UnknownDefaultsToInfo verifies the fallback level.
func TestParseLogLevel_UnknownDefaultsToInfo(t *testing.T) {
	if got := ParseLogLevel("verbose"); got != LevelInfo {
		t.Errorf("expected LevelInfo, got %v", got)
	}
	if got := LevelWarn.String(); got != "warn" {
		t.Errorf("expected 'warn', got %q", got)
	}
}

// TestLogger_ConcurrentWritesAreLineAtomic verifies concurrent entries do not interleave.
func TestLogger_ConcurrentWritesAreLineAtomic(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerWithWriter("info", &buf)
	a := base.WithComponent("a")
	b := base.WithComponent("b")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			a.Info(context.Background(), "from a")
		}()
		go func() {
			defer wg.Done()
			b.Info(context.Background(), "from b")
		}()
	}
	wg.Wait()

	entries := decodeEntries(t, &buf)
	if len(entries) != 100 {
		t.Errorf("expected 100 entries, got %d", len(entries))
	}
}

// TestNopLogger_Discards verifies the nop logger is safe to use.
func TestNopLogger_Discards(t *testing.T) {
	l := NopLogger().WithComponent("x")
	l.Info(context.Background(), "ignored", Field{Key: "k", Value: 1})
	l.Error(context.Background(), "ignored")
}
