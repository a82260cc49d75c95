package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/playperu/vrquest/internal/handler/health"
)

type mockChecker struct{ err error }

func (m mockChecker) Check(_ context.Context) error { return m.err }

func TestHandler(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]health.Checker
		wantStatus int
		wantState  string
		wantBody   map[string]string
	}{
		{
			name: "all healthy",
			checks: map[string]health.Checker{
				"catalog":  mockChecker{},
				"progress": mockChecker{},
				"redis":    health.Optional(mockChecker{}),
			},
			wantStatus: http.StatusOK,
			wantState:  "ok",
			wantBody:   map[string]string{"catalog": "ok", "progress": "ok", "redis": "ok"},
		},
		{
			name: "progress store down",
			checks: map[string]health.Checker{
				"catalog":  mockChecker{},
				"progress": mockChecker{err: errors.New("locked")},
				"redis":    health.Optional(mockChecker{}),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "error",
			wantBody:   map[string]string{"catalog": "ok", "progress": "error", "redis": "ok"},
		},
		{
			name: "cache down is degraded",
			checks: map[string]health.Checker{
				"catalog":  mockChecker{},
				"progress": mockChecker{},
				"redis":    health.Optional(mockChecker{err: errors.New("refused")}),
			},
			wantStatus: http.StatusOK,
			wantState:  "degraded",
			wantBody:   map[string]string{"catalog": "ok", "progress": "ok", "redis": "error"},
		},
		{
			name: "everything down",
			checks: map[string]health.Checker{
				"catalog":  mockChecker{err: errors.New("db")},
				"progress": health.CheckerFunc(func(context.Context) error { return errors.New("db") }),
				"redis":    health.Optional(mockChecker{err: errors.New("cache")}),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "error",
			wantBody:   map[string]string{"catalog": "error", "progress": "error", "redis": "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := health.NewHandler(slog.Default(), tt.checks)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body struct {
				Status string
				Checks map[string]struct{ Status string }
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if body.Status != tt.wantState {
				t.Errorf("overall = %q, want %q", body.Status, tt.wantState)
			}
			for name, want := range tt.wantBody {
				if got := body.Checks[name].Status; got != want {
					t.Errorf("%s status = %q, want %q", name, got, want)
				}
			}
		})
	}
}
