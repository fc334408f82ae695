package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecovery(t *testing.T) {
	h := Recovery(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
	var response map[string]string
	json.NewDecoder(w.Body).Decode(&response)
	if response["error"] != "internal server error" {
		t.Errorf("Unexpected body: %v", response)
	}
}

func TestRequestLoggerAssignsID(t *testing.T) {
	var seen string
	h := RequestLogger(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if seen == "" {
		t.Fatal("Expected request id in context")
	}
	if w.Header().Get("X-Request-ID") != seen {
		t.Errorf("Header id %q does not match context id %q", w.Header().Get("X-Request-ID"), seen)
	}
	if w.Code != http.StatusTeapot {
		t.Errorf("Expected status passed through, got %d", w.Code)
	}
}

func TestPanicIsLoggedWithRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	h := RequestLogger(logger)(Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/sessions", nil))

	id := w.Header().Get("X-Request-ID")
	if id == "" {
		t.Fatal("Expected X-Request-ID header")
	}

	panics := logs.FilterMessage("panic recovered").All()
	if len(panics) != 1 || panics[0].ContextMap()["request_id"] != id {
		t.Errorf("Expected panic logged with request id %s, got %v", id, panics)
	}

	requests := logs.FilterMessage("request").All()
	if len(requests) != 1 {
		t.Fatalf("Expected one access log entry, got %d", len(requests))
	}
	fields := requests[0].ContextMap()
	if fields["request_id"] != id || fields["status"] != int64(http.StatusInternalServerError) {
		t.Errorf("Unexpected access log fields: %v", fields)
	}
}
