package server

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBuildCSPHeader(t *testing.T) {
	tests := []struct {
		name     string
		cfg      CSPConfig
		expected string
	}{
		{"empty", CSPConfig{}, ""},
		{
			name:     "api policy",
			cfg:      APICSPConfig(),
			expected: "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'",
		},
		{
			name:     "multiple sources",
			cfg:      CSPConfig{DefaultSrc: []string{"'self'"}, ConnectSrc: []string{"'self'", "wss://live.example.org"}},
			expected: "default-src 'self'; connect-src 'self' wss://live.example.org",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.BuildCSPHeader(); got != tt.expected {
				t.Errorf("BuildCSPHeader() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(APICSPConfig(), okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
		"Content-Security-Policy": APICSPConfig().BuildCSPHeader(),
	}
	for header, value := range want {
		if got := w.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must only be sent over TLS")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.TLS = &tls.ConnectionState{}
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Header().Get("Strict-Transport-Security") == "" {
		t.Error("expected HSTS over TLS")
	}
}

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims", "  John 3:16  ", "John 3:16"},
		{"control characters", "John\x00 3:16\x07", "John 3:16"},
		{"keeps tabs", "love\tjoy", "love\tjoy"},
		{"unicode", "Psalm 23 – shepherd", "Psalm 23 – shepherd"},
		{"blank", " \x00 ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeQuery(tt.input); got != tt.want {
				t.Errorf("SanitizeQuery(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	long := strings.Repeat("é", MaxQueryLength+10)
	if got := []rune(SanitizeQuery(long)); len(got) != MaxQueryLength {
		t.Errorf("long query truncated to %d runes, want %d", len(got), MaxQueryLength)
	}
}

func TestValidateContentType(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"audio/webm", true},
		{"audio/webm;codecs=opus", true},
		{"AUDIO/WAV", true},
		{"", true},
		{"text/html", false},
		{"image/png", false},
		{";;;", false},
	}
	for _, tt := range tests {
		if got := ValidateContentType(tt.contentType, AllowedAudioContentTypes); got != tt.want {
			t.Errorf("ValidateContentType(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}
