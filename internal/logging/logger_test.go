package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_JSONFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "json")

	logger.Info("dropped")
	logger.Warn("kept", "files", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["msg"] != "kept" || entry["files"] != float64(2) {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestForUpload_CarriesRequestContext(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, "info", "text")

	r := httptest.NewRequest("POST", "/api/upload", nil)
	r = r.WithContext(context.WithValue(r.Context(), middleware.RequestIDKey, "req-42"))

	ForUpload(base, r).Info("stored uploaded file")

	out := buf.String()
	for _, want := range []string{"request_id=req-42", "method=POST", "path=/api/upload", "remote_addr="} {
		if !strings.Contains(out, want) {
			t.Errorf("log line missing %q: %s", want, out)
		}
	}
}

func TestForUpload_WithoutRequestID(t *testing.T) {
	var buf bytes.Buffer
	r := httptest.NewRequest("POST", "/api/upload/stream", nil)

	ForUpload(New(&buf, "info", "text"), r).Info("x")

	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("unexpected request_id: %s", buf.String())
	}
}
