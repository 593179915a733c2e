package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCORSPolicy_Allows(t *testing.T) {
	p := NewCORSPolicy([]string{" http://localhost:5173/ ", "", "https://app.test"}, nil)

	assert.True(t, p.Allows("http://localhost:5173"))
	assert.True(t, p.Allows("https://app.test"))
	assert.False(t, p.Allows("http://localhost:5173/"))
	assert.False(t, p.Allows("http://evil.test"))
	assert.False(t, p.Allows(""))
}

func TestCORSPolicy_Handler(t *testing.T) {
	var reached bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})
	handler := NewCORSPolicy([]string{"http://localhost:5173"}, []string{"Idempotent-Replayed", RequestIDHeader}).Handler(next)

	tests := []struct {
		name        string
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantAllow   string
		wantExpose  string
		wantReached bool
		wantVary    bool
	}{
		{"preflight from allowed origin", http.MethodOptions, "http://localhost:5173", true, http.StatusNoContent, "http://localhost:5173", "", false, true},
		{"preflight from unknown origin", http.MethodOptions, "http://evil.test", true, http.StatusForbidden, "", "", false, true},
		{"plain options reaches the router", http.MethodOptions, "http://localhost:5173", false, http.StatusOK, "http://localhost:5173", "Idempotent-Replayed, X-Request-ID", true, true},
		{"request from allowed origin", http.MethodGet, "http://localhost:5173", false, http.StatusOK, "http://localhost:5173", "Idempotent-Replayed, X-Request-ID", true, true},
		{"request from unknown origin", http.MethodGet, "http://evil.test", false, http.StatusOK, "", "", true, true},
		{"same-origin request", http.MethodGet, "", false, http.StatusOK, "", "", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached = false
			req := httptest.NewRequest(tt.method, "http://test/events", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantReached, reached)
			assert.Equal(t, tt.wantAllow, rr.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantExpose, rr.Header().Get("Access-Control-Expose-Headers"))
			if tt.wantVary {
				assert.Contains(t, rr.Header().Values("Vary"), "Origin")
			} else {
				assert.Empty(t, rr.Header().Values("Vary"))
			}
		})
	}
}

func TestCORSPolicy_PreflightAllowsIdempotencyKey(t *testing.T) {
	handler := NewCORSPolicy([]string{"http://app.test"}, nil).Handler(http.NotFoundHandler())
	req := httptest.NewRequest(http.MethodOptions, "http://test/events/e1/reservations", nil)
	req.Header.Set("Origin", "http://app.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "idempotency-key, authorization")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "86400", rr.Header().Get("Access-Control-Max-Age"))
	assert.Empty(t, rr.Header().Get("Access-Control-Expose-Headers"))
}
