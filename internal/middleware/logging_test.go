package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithRequestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := WithRequestLogging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "rid-1")
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "rid-1" {
		t.Errorf("response request id = %q; want %q", got, "rid-1")
	}
	entries := logs.FilterMessage("http request served").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) {
		t.Errorf("logged status = %v; want %d", fields["status"], http.StatusTeapot)
	}
	if fields["path"] != "/ping" || fields["request_id"] != "rid-1" {
		t.Errorf("unexpected fields: %v", fields)
	}
	if fields["bytes"] != int64(5) {
		t.Errorf("logged bytes = %v; want 5", fields["bytes"])
	}
}

func TestWithRequestLogging_ServerErrorAndGeneratedID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := WithRequestLogging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/repo/add", nil))

	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected a generated request id")
	}
	if logs.FilterMessage("http request failed").Len() != 1 {
		t.Errorf("expected an error log, got %v", logs.All())
	}
}
