package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/goran-ethernal/BuildersIndexer/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(t *testing.T) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		require.NoError(t, err)
	})
}

func TestCORSMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		allowedOrigins []string
		requestOrigin  string
		requestMethod  string
		expectedOrigin string
	}{
		{
			name:           "wildcard echoes origin",
			allowedOrigins: []string{"*"},
			requestOrigin:  "https://dashboard.mor.org",
			requestMethod:  http.MethodGet,
			expectedOrigin: "https://dashboard.mor.org",
		},
		{
			name:           "wildcard without origin header",
			allowedOrigins: []string{"*"},
			requestMethod:  http.MethodGet,
			expectedOrigin: "*",
		},
		{
			name:           "listed origin",
			allowedOrigins: []string{"https://a.example", "https://b.example"},
			requestOrigin:  "https://b.example",
			requestMethod:  http.MethodPost,
			expectedOrigin: "https://b.example",
		},
		{
			name:           "unlisted origin",
			allowedOrigins: []string{"https://a.example"},
			requestOrigin:  "https://evil.example",
			requestMethod:  http.MethodGet,
		},
		{
			name:           "no allowed origins",
			allowedOrigins: []string{},
			requestOrigin:  "https://a.example",
			requestMethod:  http.MethodGet,
		},
		{
			name:           "preflight",
			allowedOrigins: []string{"https://a.example"},
			requestOrigin:  "https://a.example",
			requestMethod:  http.MethodOptions,
			expectedOrigin: "https://a.example",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.requestMethod, "/graphql", nil)
			if tt.requestOrigin != "" {
				req.Header.Set("Origin", tt.requestOrigin)
			}
			w := httptest.NewRecorder()

			CORSMiddleware(tt.allowedOrigins)(okHandler(t)).ServeHTTP(w, req)

			require.Equal(t, tt.expectedOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			if tt.expectedOrigin != "" {
				require.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
				require.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
				require.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
			}

			require.Equal(t, http.StatusOK, w.Code)
			if tt.requestMethod == http.MethodOptions {
				require.Empty(t, w.Body.String())
			} else {
				require.Equal(t, "OK", w.Body.String())
			}
		})
	}
}

func TestLoggingMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    int
	}{
		{
			name:    "explicit status",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) },
			want:    http.StatusServiceUnavailable,
		},
		{
			name: "implicit 200",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("OK"))
			},
			want: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			LoggingMiddleware(logger.NewNopLogger())(tt.handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			require.Equal(t, tt.want, w.Code)
		})
	}
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	t.Parallel()

	var seen string
	handler := LoggingMiddleware(logger.NewNopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(RequestIDHeader)
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	id, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	require.NoError(t, err)
	require.Equal(t, uuid.Version(7), id.Version())
	require.Equal(t, id.String(), seen)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, "upstream-id", w.Header().Get(RequestIDHeader))
}

func TestResponseWriter_KeepsFirstStatus(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusBadRequest)

	require.Equal(t, http.StatusCreated, rw.statusCode)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Parallel()

	for _, v := range []any{"boom", assert.AnError, 42} {
		handler := RecoveryMiddleware(logger.NewNopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(v)
		}))

		w := httptest.NewRecorder()
		require.NotPanics(t, func() {
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sql", nil))
		})

		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.Equal(t, "Internal Server Error\n", w.Body.String())
	}
}

func TestMiddlewareChaining(t *testing.T) {
	t.Parallel()

	log := logger.NewNopLogger()
	handler := CORSMiddleware([]string{"*"})(LoggingMiddleware(log)(RecoveryMiddleware(log)(okHandler(t))))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tables", nil)
	req.Header.Set("Origin", "https://dashboard.mor.org")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "OK", w.Body.String())
	require.Equal(t, "https://dashboard.mor.org", w.Header().Get("Access-Control-Allow-Origin"))
	require.NotEmpty(t, w.Header().Get(RequestIDHeader))
}
