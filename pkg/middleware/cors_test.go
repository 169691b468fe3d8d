package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsRequest(cfg CORSConfig, method, origin string, preflight bool) *httptest.ResponseRecorder {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	req := httptest.NewRequest(method, "/api/v1/cart", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if preflight {
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}
	rec := httptest.NewRecorder()
	CORS(cfg)(next).ServeHTTP(rec, req)
	return rec
}

func TestCORS(t *testing.T) {
	shop := CORSConfig{
		AllowedOrigins: []string{"https://shop.example.com"},
		AllowedHeaders: []string{"Content-Type", "Idempotency-Key"},
		ExposedHeaders: []string{"X-Correlation-ID"},
	}

	tests := []struct {
		name        string
		cfg         CORSConfig
		method      string
		origin      string
		preflight   bool
		wantCode    int
		wantOrigin  string
		wantMethods bool
	}{
		{"allowed simple request", shop, http.MethodGet, "https://shop.example.com", false, http.StatusTeapot, "https://shop.example.com", false},
		{"allowed preflight", shop, http.MethodOptions, "https://shop.example.com", true, http.StatusNoContent, "https://shop.example.com", true},
		{"foreign origin passes through bare", shop, http.MethodGet, "https://evil.example", false, http.StatusTeapot, "", false},
		{"foreign preflight reaches router", shop, http.MethodOptions, "https://evil.example", true, http.StatusTeapot, "", false},
		{"options without preflight header", shop, http.MethodOptions, "https://shop.example.com", false, http.StatusTeapot, "https://shop.example.com", false},
		{"no origin", shop, http.MethodGet, "", false, http.StatusTeapot, "", false},
		{"wildcard", CORSConfig{AllowedOrigins: []string{"*"}}, http.MethodGet, "https://a.example", false, http.StatusTeapot, "*", false},
		{"wildcard with credentials echoes origin", CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true}, http.MethodGet, "https://a.example", false, http.StatusTeapot, "https://a.example", false},
		{"disabled", CORSConfig{}, http.MethodOptions, "https://shop.example.com", true, http.StatusTeapot, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := corsRequest(tt.cfg, tt.method, tt.origin, tt.preflight)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantMethods, rec.Header().Get("Access-Control-Allow-Methods") != "")
		})
	}
}

func TestCORS_PreflightHeaders(t *testing.T) {
	rec := corsRequest(CORSConfig{
		AllowedOrigins: []string{"https://shop.example.com"},
		AllowedHeaders: []string{"Content-Type", "Idempotency-Key"},
		MaxAge:         120,
	}, http.MethodOptions, "https://shop.example.com", true)

	assert.Equal(t, "Content-Type, Idempotency-Key", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "120", rec.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, rec.Header().Values("Vary"), "Origin")
}

func TestNoStore(t *testing.T) {
	rec := httptest.NewRecorder()
	NoStore(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}
