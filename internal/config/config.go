// Package config loads the service configuration from YAML and the
// environment.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/BibleEcho/core/errors"
	"github.com/FocuswithJustin/BibleEcho/core/resolve"
	"github.com/FocuswithJustin/BibleEcho/core/verse"
	"github.com/FocuswithJustin/BibleEcho/internal/logging"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Transcription providers.
const (
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

// Environment variables read by ApplyEnv.
const (
	EnvPort         = "PORT"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvAPIKey       = "BIBLE_ECHO_API_KEY"
)

// Config is the complete service configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Store         StoreConfig         `yaml:"store"`
	Resolver      resolve.Config      `yaml:"resolver"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Detection     DetectionConfig     `yaml:"detection"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int             `yaml:"port"`
	AllowedOrigins []string        `yaml:"allowed_origins"` // empty = allow all
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
	Auth           AuthConfig      `yaml:"auth"`
	TLS            TLSConfig       `yaml:"tls"`
	LogLevel       string          `yaml:"log_level"`
	LogFormat      string          `yaml:"log_format"`
	MaxUploadBytes int64           `yaml:"max_upload_bytes"`
}

// RateLimitConfig holds per-client rate limits.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"` // 0 = disabled
	Burst             int `yaml:"burst"`
}

// AuthConfig holds API key authentication settings.
type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
}

// TLSConfig holds TLS/HTTPS configuration.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// StoreConfig selects and sizes the verse store.
type StoreConfig struct {
	Backend     string        `yaml:"backend"`
	Path        string        `yaml:"path"`  // sqlite database file
	Files       []string      `yaml:"files"` // memory backend sources
	Translation string        `yaml:"translation"`
	CacheSize   int           `yaml:"cache_size"` // 0 = no cache
	CacheTTL    time.Duration `yaml:"cache_ttl"`
}

// TranscriptionConfig configures the speech-to-text provider.
type TranscriptionConfig struct {
	Provider   string        `yaml:"provider"`
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	Language   string        `yaml:"language"`
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// DetectionConfig configures live verse detection.
type DetectionConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Cooldown time.Duration `yaml:"cooldown"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           5000,
			AllowedOrigins: []string{"http://localhost:5173"},
			RateLimit:      RateLimitConfig{RequestsPerMinute: 120, Burst: 20},
			LogLevel:       "info",
			LogFormat:      "json",
			MaxUploadBytes: 25 << 20,
		},
		Store: StoreConfig{
			Backend:     BackendSQLite,
			Path:        "bible.db",
			Translation: verse.DefaultTranslation,
			CacheSize:   1024,
			CacheTTL:    10 * time.Minute,
		},
		Resolver: resolve.DefaultConfig(),
		Transcription: TranscriptionConfig{
			Provider:   ProviderOpenAI,
			Model:      "whisper-1",
			Language:   "en",
			Timeout:    60 * time.Second,
			MaxRetries: 3,
		},
		Detection: DetectionConfig{
			Enabled:  true,
			Cooldown: 5 * time.Second,
		},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		ApplyEnv(cfg, os.Getenv)
		return cfg, Validate(cfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over the defaults. Unknown keys are
// rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "config: decode yaml")
	}

	ApplyEnv(cfg, os.Getenv)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables read through getenv. PORT replaces
// the server port; OPENAI_API_KEY and BIBLE_ECHO_API_KEY fill keys left empty
// by the file.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv(EnvPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		} else {
			logging.Warn("ignoring invalid PORT", "value", v)
		}
	}
	if cfg.Transcription.APIKey == "" {
		cfg.Transcription.APIKey = getenv(EnvOpenAIAPIKey)
	}
	if cfg.Server.Auth.APIKey == "" {
		cfg.Server.Auth.APIKey = getenv(EnvAPIKey)
	}
}

// TranscriptionEnabled reports whether a transcriber can be built.
func (c *Config) TranscriptionEnabled() bool {
	return c.Transcription.Provider == ProviderOpenAI && c.Transcription.APIKey != ""
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range [1, 65535]", cfg.Server.Port))
	}
	if _, err := logging.ParseLevel(cfg.Server.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("server.log_level: %w", err))
	}
	if _, err := logging.ParseFormat(cfg.Server.LogFormat); err != nil {
		errs = append(errs, fmt.Errorf("server.log_format: %w", err))
	}
	if cfg.Server.RateLimit.RequestsPerMinute < 0 || cfg.Server.RateLimit.Burst < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit values must not be negative"))
	}
	if cfg.Server.Auth.Enabled && cfg.Server.Auth.APIKey == "" {
		errs = append(errs, fmt.Errorf("server.auth.api_key is required when authentication is enabled"))
	}
	if cfg.Server.TLS.Enabled && (cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "") {
		errs = append(errs, fmt.Errorf("server.tls.cert_file and server.tls.key_file are required when TLS is enabled"))
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes must be positive"))
	}

	switch cfg.Store.Backend {
	case BackendSQLite:
		if cfg.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path is required for the sqlite backend"))
		}
	case BackendMemory:
		if len(cfg.Store.Files) == 0 {
			errs = append(errs, fmt.Errorf("store.files is required for the memory backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is invalid; valid values: sqlite, memory", cfg.Store.Backend))
	}
	if cfg.Store.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("store.cache_size must not be negative"))
	}

	r := cfg.Resolver
	if r.ExactConfidence <= 0 || r.ExactConfidence > 1 {
		errs = append(errs, fmt.Errorf("resolver.exact_confidence %.2f is out of range (0, 1]", r.ExactConfidence))
	}
	if r.KeywordConfidence <= 0 || r.KeywordConfidence > 1 {
		errs = append(errs, fmt.Errorf("resolver.keyword_confidence %.2f is out of range (0, 1]", r.KeywordConfidence))
	}
	if r.KeywordLimit < 1 {
		errs = append(errs, fmt.Errorf("resolver.keyword_limit must be at least 1"))
	}

	switch cfg.Transcription.Provider {
	case ProviderOpenAI, ProviderNone:
	default:
		errs = append(errs, fmt.Errorf("transcription.provider %q is invalid; valid values: openai, none", cfg.Transcription.Provider))
	}
	if cfg.Transcription.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("transcription.max_retries must not be negative"))
	}

	if cfg.Detection.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("detection.cooldown must not be negative"))
	}

	return errors.Join(errs...)
}
