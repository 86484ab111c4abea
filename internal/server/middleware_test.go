package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRequestIDMiddleware(t *testing.T) {
	var got string
	h := RequestIDMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/acme/api/tenant", nil))

	if got == "" {
		t.Error("GetRequestID() empty inside handler")
	}
	if header := rec.Header().Get("X-Request-ID"); header != got {
		t.Errorf("X-Request-ID = %q, want %q", header, got)
	}
	if GetRequestID(context.Background()) != "" {
		t.Error("GetRequestID() = non-empty outside middleware")
	}
}

func TestLoggingMiddleware_CompletionFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddLogField(r.Context(), "tenant", "acme")
		AddLogField(r.Context(), "user_id", "") // empty values never log
		AddError(r.Context(), nil)              // nor do nil errors
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/acme/api/tenant", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("log lines = %d, want start and completion", len(lines))
	}

	var completed map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &completed); err != nil {
		t.Fatalf("unmarshal completion line: %v", err)
	}
	if completed["tenant"] != "acme" {
		t.Errorf("completion tenant = %v, want acme", completed["tenant"])
	}
	if completed["status"] != float64(http.StatusTeapot) {
		t.Errorf("completion status = %v, want 418", completed["status"])
	}
	if _, ok := completed["user_id"]; ok {
		t.Error("completion line carries an empty field")
	}
	if _, ok := completed["error"]; ok {
		t.Error("completion line carries an error for a nil error")
	}
}

func TestAddLogField_WithoutMiddleware(t *testing.T) {
	// Both are no-ops when the middleware's map is absent.
	AddLogField(context.Background(), "tenant", "acme")
	AddError(context.Background(), errors.New("boom"))
}

func TestTimeoutMiddleware_WatchExempt(t *testing.T) {
	mw := TimeoutMiddleware(30 * time.Second)

	var hasDeadline bool
	h := mw(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/acme/api/collections/products", nil))
	if !hasDeadline {
		t.Error("plain request missing a deadline")
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/acme/api/collections/products/watch", nil))
	if hasDeadline {
		t.Error("watch stream request has a deadline")
	}
}
