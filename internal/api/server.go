// Package api provides the Bible Echo REST API server.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/FocuswithJustin/BibleEcho/core/resolve"
	"github.com/FocuswithJustin/BibleEcho/internal/config"
	"github.com/FocuswithJustin/BibleEcho/internal/detect"
	"github.com/FocuswithJustin/BibleEcho/internal/logging"
	"github.com/FocuswithJustin/BibleEcho/internal/metrics"
	"github.com/FocuswithJustin/BibleEcho/internal/server"
	"github.com/FocuswithJustin/BibleEcho/internal/transcribe"
)

// DefaultMaxUploadBytes caps audio uploads when the configuration does not.
const DefaultMaxUploadBytes = 25 << 20

// Pinger reports whether a dependency is ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Resolver *resolve.Resolver

	// Store is checked by /health. Optional.
	Store Pinger

	// StoreBackend names the store in /health.
	StoreBackend string

	// Transcriber is nil when transcription is disabled.
	Transcriber transcribe.Transcriber

	// Detection enables the live detector publishing to the websocket hub.
	Detection config.DetectionConfig

	// Metrics is nil when /metrics is not served.
	Metrics *metrics.Metrics

	Version string
}

// Server is the HTTP service.
type Server struct {
	cfg      config.ServerConfig
	deps     Deps
	hub      *Hub
	limiter  *RateLimiter
	detector *detect.Detector
	handler  http.Handler
	started  time.Time
}

// New validates cfg and wires the routes and middleware chain.
func New(cfg config.ServerConfig, deps Deps) (*Server, error) {
	if deps.Resolver == nil {
		return nil, fmt.Errorf("api: resolver is required")
	}
	if err := ValidateAuthConfig(cfg.Auth); err != nil {
		return nil, fmt.Errorf("invalid auth config: %w", err)
	}
	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			return nil, fmt.Errorf("TLS enabled but cert or key file not specified")
		}
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}

	s := &Server{
		cfg:     cfg,
		deps:    deps,
		hub:     NewHub(),
		started: time.Now(),
	}

	if deps.Detection.Enabled {
		s.detector = detect.New(deps.Resolver, detect.PublisherFunc(s.publish),
			detect.WithCooldown(deps.Detection.Cooldown))
	}
	if deps.Metrics != nil {
		deps.Metrics.RegisterGauge("websocket_clients", "Connected live feed clients.", func() float64 {
			return float64(s.hub.ClientCount())
		})
	}
	if cfg.RateLimit.RequestsPerMinute > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimit)
	}

	s.handler = s.buildHandler()
	return s, nil
}

// Handler returns the routes wrapped in the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub returns the live feed hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Detector returns the live detector, or nil when detection is disabled.
func (s *Server) Detector() *detect.Detector {
	return s.detector
}

func (s *Server) publish(ev detect.Event) {
	s.hub.Publish(ev)
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveDetection()
	}
}

// httpServer builds the listener config. Connection-level errors from
// net/http go to the service logger.
func (s *Server) httpServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logging.GetLogger().Handler(), slog.LevelError),
	}
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if s.cfg.TLS.Enabled {
		if _, err := os.Stat(s.cfg.TLS.CertFile); err != nil {
			return fmt.Errorf("TLS cert file not found: %w", err)
		}
		if _, err := os.Stat(s.cfg.TLS.KeyFile); err != nil {
			return fmt.Errorf("TLS key file not found: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.hub.Run(ctx)
	if s.limiter != nil {
		go s.limiter.Run(ctx)
	}

	srv := s.httpServer()

	protocol, wsProtocol := "http", "ws"
	if s.cfg.TLS.Enabled {
		protocol, wsProtocol = "https", "wss"
		logging.Info("TLS enabled", "cert_file", s.cfg.TLS.CertFile)
	} else {
		logging.Warn("TLS disabled - using plain HTTP",
			"recommendation", "consider using TLS or reverse proxy for production")
	}
	logging.ServerStartup("rest_api", protocol, s.cfg.Port,
		"websocket_protocol", wsProtocol,
		"store_backend", s.deps.StoreBackend,
		"transcription", s.deps.Transcriber != nil,
		"detection", s.detector != nil)

	errCh := make(chan error, 1)
	go func() {
		if s.cfg.TLS.Enabled {
			errCh <- srv.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info("shutting down", "reason", ctx.Err())
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// buildHandler applies the middleware chain, outermost last.
func (s *Server) buildHandler() http.Handler {
	var handler http.Handler = server.SecurityHeaders(server.APICSPConfig(), s.routes())

	handler = AuthMiddleware(s.cfg.Auth, handler)
	if s.cfg.Auth.Enabled {
		logging.SecurityEvent("authentication_configured", "api",
			"enabled", true,
			"note", "API key required")
	} else {
		logging.SecurityEvent("authentication_configured", "api",
			"enabled", false,
			"note", "all requests allowed")
	}

	if s.limiter != nil {
		handler = s.limiter.Middleware(handler)
		logging.Info("rate limiting enabled",
			"requests_per_minute", s.cfg.RateLimit.RequestsPerMinute,
			"burst_size", s.limiter.Burst())
	}

	handler = server.CORSMiddleware(server.DefaultCORSConfig(s.cfg.AllowedOrigins), handler)
	if len(s.cfg.AllowedOrigins) > 0 {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "restricted",
			"allowed_origins_count", len(s.cfg.AllowedOrigins))
	} else {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "permissive",
			"note", "allowing all origins (*) - consider restricting for production")
	}

	return logging.CombinedMiddleware(handler)
}

// routes configures all HTTP routes.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/bible-search", s.handleBibleSearch)
	mux.HandleFunc("/api/verses/{osis}", s.handleVerse)
	mux.HandleFunc("/api/parse", s.handleParse)
	mux.HandleFunc("/api/books", s.handleBooks)
	mux.HandleFunc("/api/transcribe", s.handleTranscribe)
	mux.HandleFunc("/api/detect", s.handleDetect)
	mux.Handle("/ws", s.hub.Handler(WebSocketConfig{
		AllowedOrigins: s.cfg.AllowedOrigins,
		MaxMessageRate: 10,
		MaxMessageSize: 4096,
	}))
	if s.deps.Metrics != nil {
		mux.Handle("/metrics", s.deps.Metrics.Handler())
	}

	return mux
}
