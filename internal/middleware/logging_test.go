package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusNotFound, "level=WARN"},
		{http.StatusBadGateway, "level=ERROR"},
	}
	for _, tt := range tests {
		logger, buf := captureLogger()
		h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		req := httptest.NewRequest(http.MethodGet, "/state", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.7, 10.0.0.1")
		h.ServeHTTP(httptest.NewRecorder(), req)

		out := buf.String()
		for _, want := range []string{tt.level, "path=/state", "remote=10.0.0.7"} {
			if !strings.Contains(out, want) {
				t.Errorf("status %d: log %q missing %q", tt.status, out, want)
			}
		}
	}
}

func TestRemoteIPFallsBackToPeer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.20:5555"
	if got := RemoteIP(req); got != "192.168.1.20" {
		t.Errorf("RemoteIP = %q, want 192.168.1.20", got)
	}
	req.RemoteAddr = "not-an-addr"
	if got := RemoteIP(req); got != "not-an-addr" {
		t.Errorf("RemoteIP = %q, want not-an-addr", got)
	}
}

func TestRecover(t *testing.T) {
	logger, buf := captureLogger()
	h := Recover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("panic not logged: %q", buf.String())
	}
}
