package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/coursedesk/internal/app/features/health"
	"github.com/dalemusser/coursedesk/internal/testutil"
	"go.uber.org/zap"
)

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

type healthBody struct {
	Status   string `json:"status"`
	Backend  string `json:"backend"`
	Database string `json:"database"`
	Error    string `json:"error"`
}

func TestServe_DatabaseConnected(t *testing.T) {
	handler := health.NewHandler(testutil.NewMemStore(), "memory", zap.NewNop())

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()

	handler.Serve(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", contentType, "application/json")
	}

	var response healthBody
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("status: got %q, want %q", response.Status, "ok")
	}
	if response.Database != "connected" {
		t.Errorf("database: got %q, want %q", response.Database, "connected")
	}
	if response.Backend != "memory" {
		t.Errorf("backend: got %q, want %q", response.Backend, "memory")
	}
}

func TestServe_DatabaseDown(t *testing.T) {
	handler := health.NewHandler(downStore{}, "mongo", zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}

	var response healthBody
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response.Status != "error" || response.Database != "disconnected" {
		t.Errorf("got status=%q database=%q", response.Status, response.Database)
	}
	if response.Error == "" {
		t.Error("expected error detail in response")
	}
}

func TestRoutes_Head(t *testing.T) {
	tests := []struct {
		name  string
		store health.Pinger
		want  int
	}{
		{"up", testutil.NewMemStore(), http.StatusOK},
		{"down", downStore{}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := health.Routes(health.NewHandler(tt.store, "memory", zap.NewNop()))
			rec := testutil.Serve(r, httptest.NewRequest(http.MethodHead, "/", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if rec.Body.Len() != 0 {
				t.Errorf("HEAD wrote a body: %q", rec.Body.String())
			}
		})
	}
}
