package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/room-booking/internal/logging"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequireUser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "blank header", header: "   ", wantStatus: http.StatusUnauthorized},
		{name: "valid header", header: " 42 ", wantStatus: http.StatusOK, wantUser: "42"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var gotUser string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				principal, ok := PrincipalFromContext(r.Context())
				if !ok {
					t.Errorf("expected principal in context")
				}
				gotUser = principal.UserID
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set(UserIDHeader, tc.header)
			}
			rec := httptest.NewRecorder()
			RequireUser(discardLogger())(next).ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			if gotUser != tc.wantUser {
				t.Fatalf("expected user %q, got %q", tc.wantUser, gotUser)
			}
			if tc.wantStatus == http.StatusUnauthorized {
				var body errorResponse
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
					t.Fatalf("decode body: %v", err)
				}
				if body.ErrorCode != "UNAUTHENTICATED" {
					t.Fatalf("expected UNAUTHENTICATED, got %q", body.ErrorCode)
				}
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("echoes the caller's request id", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logging.FromContext(r.Context()) == nil {
				t.Errorf("expected request logger in context")
			}
			w.WriteHeader(http.StatusTeapot)
		})

		req := httptest.NewRequest(http.MethodGet, "/rooms/r1", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		rec := httptest.NewRecorder()
		RequestLogger(logger)(next).ServeHTTP(rec, req)

		if got := rec.Header().Get(RequestIDHeader); got != "req-123" {
			t.Fatalf("expected request id echoed, got %q", got)
		}
		out := buf.String()
		for _, want := range []string{`"request_id":"req-123"`, `"status":418`, `"path":"/rooms/r1"`} {
			if !strings.Contains(out, want) {
				t.Fatalf("expected log output to contain %s, got %s", want, out)
			}
		}
	})

	t.Run("generates a request id when absent", func(t *testing.T) {
		t.Parallel()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
		rec := httptest.NewRecorder()
		RequestLogger(discardLogger())(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Header().Get(RequestIDHeader) == "" {
			t.Fatalf("expected generated request id")
		}
	})
}

func TestRecoverer(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	Recoverer(discardLogger())(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.ErrorCode != "INTERNAL" {
		t.Fatalf("expected INTERNAL, got %q", body.ErrorCode)
	}
}
