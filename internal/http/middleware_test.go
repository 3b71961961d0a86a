package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/study-scheduler/internal/application"
)

type fakeTokenValidator struct {
	principal application.Principal
	err       error
}

func (f fakeTokenValidator) ValidateToken(ctx context.Context, token string) (application.Principal, error) {
	return f.principal, f.err
}

func TestRequireSession(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests without valid tokens", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name        string
			cookieToken *http.Cookie
			headerToken string
			err         error
			want        int
		}{
			{name: "missing credentials", want: http.StatusUnauthorized},
			{name: "non bearer header", headerToken: "Basic abc", want: http.StatusUnauthorized},
			{name: "revoked token", cookieToken: &http.Cookie{Name: sessionCookieName, Value: "revoked"}, err: application.ErrNotLoggedIn, want: http.StatusUnauthorized},
			{name: "store failure", headerToken: "Bearer transient", err: errors.New("boom"), want: http.StatusInternalServerError},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				req := httptest.NewRequest(http.MethodGet, "/protected", nil)
				if tc.cookieToken != nil {
					req.AddCookie(tc.cookieToken)
				}
				if tc.headerToken != "" {
					req.Header.Set("Authorization", tc.headerToken)
				}
				rec := httptest.NewRecorder()

				handler := RequireSession(fakeTokenValidator{err: tc.err}, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					t.Fatal("next handler must not run when authentication fails")
				}))
				handler.ServeHTTP(rec, req)

				if rec.Code != tc.want {
					t.Fatalf("expected %d, got %d", tc.want, rec.Code)
				}
			})
		}
	})

	t.Run("attaches the principal to the request context", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "valid"})
		rec := httptest.NewRecorder()

		var captured application.Principal
		handler := RequireSession(fakeTokenValidator{principal: application.Principal{Username: "alice"}}, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				t.Fatal("expected principal in request context")
			}
			captured = p
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK || captured.Username != "alice" {
			t.Fatalf("unexpected result: code %d principal %+v", rec.Code, captured)
		}
	})
}

func TestRequestLogger_PropagatesRequestID(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()

	handler := RequestLogger(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if LoggerFromContext(r.Context()) == nil {
			t.Fatal("expected request logger in context")
		}
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}
}
