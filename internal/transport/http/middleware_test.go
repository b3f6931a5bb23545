package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cimillas/eventapi/internal/auth"
	"github.com/cimillas/eventapi/internal/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger_LogsStatusAndPath(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()
	RequestLogger(handler, zap.New(core)).ServeHTTP(rec, req)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["method"] != "GET" {
		t.Fatalf("expected method GET, got %v", fields["method"])
	}
	if fields["path"] != "/events" {
		t.Fatalf("expected path /events, got %v", fields["path"])
	}
	if fields["status"] != int64(http.StatusCreated) {
		t.Fatalf("expected status 201, got %v", fields["status"])
	}
	if _, ok := fields["duration"]; !ok {
		t.Fatalf("expected duration field")
	}
}

func TestRequestLogger_DefaultsTo200(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	RequestLogger(handler, zap.New(core)).ServeHTTP(httptest.NewRecorder(), req)

	if got := logs.All()[0].ContextMap()["status"]; got != int64(http.StatusOK) {
		t.Fatalf("expected default status 200, got %v", got)
	}
}

type stubResolver struct {
	principal domain.Principal
	err       error
}

func (s stubResolver) Authenticate(_ context.Context, _ string) (domain.Principal, error) {
	return s.principal, s.err
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	user := domain.Principal{UserID: "u1", Email: "u@example.com", Role: domain.RoleUser}

	tests := []struct {
		name           string
		resolver       stubResolver
		expectedStatus int
		expectedCode   string
	}{
		{name: "missing token", resolver: stubResolver{err: auth.ErrNoToken}, expectedStatus: http.StatusUnauthorized, expectedCode: codeMissingToken},
		{name: "expired", resolver: stubResolver{err: auth.ErrTokenExpired}, expectedStatus: http.StatusUnauthorized, expectedCode: codeTokenExpired},
		{name: "invalid", resolver: stubResolver{err: auth.ErrTokenInvalid}, expectedStatus: http.StatusUnauthorized, expectedCode: codeInvalidToken},
		{name: "ok", resolver: stubResolver{principal: user}, expectedStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got domain.Principal
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = principalFrom(r)
				w.WriteHeader(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/events", nil)
			rec := httptest.NewRecorder()
			RequireAuth(tt.resolver, zap.NewNop())(next).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if tt.expectedCode != "" {
				var resp errorResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if resp.Code != tt.expectedCode {
					t.Fatalf("expected code %s, got %s", tt.expectedCode, resp.Code)
				}
				return
			}
			if got != user {
				t.Fatalf("expected principal %+v, got %+v", user, got)
			}
		})
	}
}

func withPrincipal(r *http.Request, p domain.Principal) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), principalKey{}, p))
}
