package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_CORSMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		corsOrigin     string
		method         string
		expectedStatus int
		shouldCallNext bool
	}{
		{name: "GET request", corsOrigin: "*", method: http.MethodGet, expectedStatus: http.StatusOK, shouldCallNext: true},
		{name: "POST with specific origin", corsOrigin: "https://example.com", method: http.MethodPost, expectedStatus: http.StatusOK, shouldCallNext: true},
		{name: "OPTIONS preflight", corsOrigin: "*", method: http.MethodOptions, expectedStatus: http.StatusOK, shouldCallNext: false},
		{name: "empty origin", corsOrigin: "", method: http.MethodGet, expectedStatus: http.StatusOK, shouldCallNext: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := &Server{corsOrigin: tt.corsOrigin}

			nextCalled := false
			handler := server.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(tt.method, "/test", nil)
			w := httptest.NewRecorder()
			handler(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.corsOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
			assert.Equal(t, tt.shouldCallNext, nextCalled)
		})
	}
}

func TestServer_CORSMiddleware_ErrorInNext(t *testing.T) {
	server := &Server{corsOrigin: "*"}
	handler := server.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodPost, "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_RateLimitMiddleware(t *testing.T) {
	server := newTestServer(t, &fakeScanner{})
	server.rateLimiter = NewRateLimiter(1, 0, 0, 0)

	calls := 0
	handler := server.rateLimitMiddleware(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/scan/image", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	w := httptest.NewRecorder()
	handler(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "minute", w.Header().Get("X-RateLimit-Type"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, 1, calls)

	// another client is unaffected
	other := httptest.NewRequest(http.MethodPost, "/scan/image", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	w = httptest.NewRecorder()
	handler(w, other)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_RateLimitMiddleware_Quota(t *testing.T) {
	server := newTestServer(t, &fakeScanner{})
	server.rateLimiter = NewRateLimiter(0, 0, 0, 100)
	server.rateLimiter.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	handler := server.rateLimitMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/scan/image", nil)
	req.ContentLength = 150
	w := httptest.NewRecorder()
	handler(w, req)

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "data", w.Header().Get("X-Quota-Type"))
	assert.Equal(t, "100", w.Header().Get("X-Quota-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-Quota-Used"))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{name: "forwarded list", headers: map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"}, remoteAddr: "9.9.9.9:1", want: "1.2.3.4"},
		{name: "forwarded single", headers: map[string]string{"X-Forwarded-For": " 1.2.3.4 "}, remoteAddr: "9.9.9.9:1", want: "1.2.3.4"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "4.4.4.4"}, remoteAddr: "9.9.9.9:1", want: "4.4.4.4"},
		{name: "remote addr", remoteAddr: "9.9.9.9:1", want: "9.9.9.9"},
		{name: "remote addr without port", remoteAddr: "unix", want: "unix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}
