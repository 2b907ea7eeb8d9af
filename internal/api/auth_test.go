package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/FocuswithJustin/BibleEcho/internal/config"
)

const testAPIKey = "test-api-key-12345678"

func TestAuthMiddleware(t *testing.T) {
	enabled := config.AuthConfig{Enabled: true, APIKey: testAPIKey}

	tests := []struct {
		name       string
		cfg        config.AuthConfig
		method     string
		path       string
		header     string
		wantStatus int
		wantCalled bool
	}{
		{"disabled", config.AuthConfig{}, http.MethodGet, "/api/parse", "", http.StatusOK, true},
		{"valid key", enabled, http.MethodGet, "/api/parse", testAPIKey, http.StatusOK, true},
		{"missing key", enabled, http.MethodGet, "/api/parse", "", http.StatusUnauthorized, false},
		{"wrong key", enabled, http.MethodGet, "/api/parse", "wrong-key-000000000", http.StatusUnauthorized, false},
		{"root is public", enabled, http.MethodGet, "/", "", http.StatusOK, true},
		{"health is public", enabled, http.MethodGet, "/health", "", http.StatusOK, true},
		{"preflight passes", enabled, http.MethodOptions, "/api/parse", "", http.StatusOK, true},
		{"metrics is protected", enabled, http.MethodGet, "/metrics", "", http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := AuthMiddleware(tt.cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if called != tt.wantCalled {
				t.Errorf("handler called = %v, want %v", called, tt.wantCalled)
			}
			if w.Code == http.StatusUnauthorized && !strings.Contains(w.Body.String(), `"code":"UNAUTHORIZED"`) {
				t.Errorf("expected error envelope, got %s", w.Body.String())
			}
		})
	}
}

func TestAuthMiddlewareWebSocketQueryKey(t *testing.T) {
	cfg := config.AuthConfig{Enabled: true, APIKey: testAPIKey}
	handler := AuthMiddleware(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?api_key="+testAPIKey, nil))
	if w.Code != http.StatusOK {
		t.Errorf("websocket query key rejected: %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/parse?api_key="+testAPIKey, nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("query key must only be accepted on /ws, got %d", w.Code)
	}
}

func TestValidateAuthConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.AuthConfig
		wantErr bool
	}{
		{"disabled", config.AuthConfig{}, false},
		{"valid", config.AuthConfig{Enabled: true, APIKey: testAPIKey}, false},
		{"empty key", config.AuthConfig{Enabled: true}, true},
		{"short key", config.AuthConfig{Enabled: true, APIKey: "short"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateAuthConfig(tt.cfg); (err != nil) != tt.wantErr {
				t.Errorf("ValidateAuthConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConstantTimeCompare(t *testing.T) {
	if !constantTimeCompare("abc", "abc") {
		t.Error("equal strings should match")
	}
	if constantTimeCompare("abc", "abd") || constantTimeCompare("abc", "abcd") {
		t.Error("different strings should not match")
	}
}
