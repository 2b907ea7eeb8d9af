package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/BibleEcho/core/canon"
	"github.com/FocuswithJustin/BibleEcho/core/errors"
	"github.com/FocuswithJustin/BibleEcho/core/reference"
	"github.com/FocuswithJustin/BibleEcho/core/resolve"
	"github.com/FocuswithJustin/BibleEcho/internal/detect"
	"github.com/FocuswithJustin/BibleEcho/internal/logging"
	"github.com/FocuswithJustin/BibleEcho/internal/server"
)

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *APIMeta  `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Tip     string `json:"tip,omitempty"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status        string      `json:"status"`
	Version       string      `json:"version"`
	Uptime        string      `json:"uptime"`
	Store         StoreHealth `json:"store"`
	Transcription bool        `json:"transcription"`
	Detection     bool        `json:"detection"`
	LiveClients   int         `json:"live_clients"`
}

// StoreHealth summarizes verse store readiness.
type StoreHealth struct {
	Backend string `json:"backend,omitempty"`
	Ready   bool   `json:"ready"`
	Error   string `json:"error,omitempty"`
}

// ParseResult is the /api/parse response.
type ParseResult struct {
	Query      string                `json:"query"`
	References []reference.Candidate `json:"references"`
}

// VerseResult is the /api/verses response.
type VerseResult struct {
	Reference reference.Candidate `json:"reference"`
	Verses    []resolve.Match     `json:"verses"`
}

// BookInfo describes one canonical book.
type BookInfo struct {
	Name      string          `json:"name"`
	OSIS      string          `json:"osis"`
	Testament canon.Testament `json:"testament"`
}

// TranscribeResult is the /api/transcribe response.
type TranscribeResult struct {
	Text       string                `json:"text"`
	References []reference.Candidate `json:"references"`
	Verses     []resolve.Match       `json:"verses"`
	Detection  *detect.Event         `json:"detection,omitempty"`
}

// DetectRequest is the /api/detect request body.
type DetectRequest struct {
	Text string `json:"text"`
}

// DetectResult is the /api/detect response.
type DetectResult struct {
	Detected bool          `json:"detected"`
	Event    *detect.Event `json:"event,omitempty"`
}

const healthTimeout = 2 * time.Second

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"name":    "Bible Echo API",
		"version": s.deps.Version,
		"endpoints": []string{
			"GET /health",
			"GET /api/bible-search?q=",
			"GET /api/verses/:osis",
			"GET /api/parse?q=",
			"GET /api/books",
			"POST /api/transcribe",
			"POST /api/detect",
			"WS /ws",
			"GET /metrics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	info := HealthInfo{
		Status:        "healthy",
		Version:       s.deps.Version,
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		Store:         StoreHealth{Backend: s.deps.StoreBackend, Ready: true},
		Transcription: s.deps.Transcriber != nil,
		Detection:     s.detector != nil,
		LiveClients:   s.hub.ClientCount(),
	}
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.deps.Store.Ping(ctx); err != nil {
			info.Status = "degraded"
			info.Store.Ready = false
			info.Store.Error = err.Error()
		}
	}

	respond(w, http.StatusOK, info)
}

func (s *Server) handleBibleSearch(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	q := server.SanitizeQuery(r.URL.Query().Get("q"))
	if q == "" {
		respondErrorTip(w, http.StatusBadRequest, "MISSING_QUERY", "Query parameter 'q' is required", resolve.Suggestion)
		return
	}

	res := s.deps.Resolver.Resolve(r.Context(), q)
	respondCacheable(w, r, res, len(res.Verses))
}

func (s *Server) handleVerse(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	c, err := reference.ParseOSIS(r.PathValue("osis"))
	if err != nil {
		var rangeErr *errors.RangeError
		if errors.As(err, &rangeErr) {
			respondError(w, http.StatusBadRequest, "INVALID_RANGE", err.Error())
			return
		}
		respondErrorTip(w, http.StatusBadRequest, "INVALID_REFERENCE", err.Error(), "Use an OSIS ID such as John.3.16 or Ps.23")
		return
	}

	matches, err := s.deps.Resolver.ResolveCandidate(r.Context(), c)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Verse store is unavailable")
		return
	}
	if len(matches) == 0 {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "No verses found for "+c.String())
		return
	}

	respondCacheable(w, r, VerseResult{Reference: c, Verses: matches}, len(matches))
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	q := server.SanitizeQuery(r.URL.Query().Get("q"))
	if q == "" {
		respondError(w, http.StatusBadRequest, "MISSING_QUERY", "Query parameter 'q' is required")
		return
	}

	refs := s.deps.Resolver.Parse(q)
	respondWithMeta(w, http.StatusOK, ParseResult{Query: q, References: refs}, len(refs))
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	books := canon.Books()
	out := make([]BookInfo, 0, len(books))
	for _, b := range books {
		out = append(out, BookInfo{Name: b.String(), OSIS: b.OSIS(), Testament: b.Testament()})
	}
	respondCacheable(w, r, out, len(out))
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if s.deps.Transcriber == nil {
		respondError(w, http.StatusServiceUnavailable, "TRANSCRIPTION_DISABLED", "No transcription provider is configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", "Audio upload exceeds the size limit")
			return
		}
		respondError(w, http.StatusBadRequest, "MISSING_AUDIO", "Expected a multipart form with an 'audio' file")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "MISSING_AUDIO", "No audio file provided")
		return
	}
	defer file.Close()

	if !server.ValidateContentType(header.Header.Get("Content-Type"), server.AllowedAudioContentTypes) {
		respondError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Audio content type is not supported")
		return
	}

	text, err := s.deps.Transcriber.Transcribe(r.Context(), file, header.Filename)
	if err != nil {
		s.observeTranscription("error")
		logging.ErrorContext(r.Context(), "transcription failed", "error", err, "filename", header.Filename)
		respondError(w, http.StatusBadGateway, "TRANSCRIPTION_FAILED", "Transcription provider failed")
		return
	}
	s.observeTranscription("ok")

	result := TranscribeResult{
		Text:       text,
		References: s.deps.Resolver.Parse(text),
		Verses:     []resolve.Match{},
	}
	for _, c := range result.References {
		found, err := s.deps.Resolver.ResolveCandidate(r.Context(), c)
		if err != nil {
			continue
		}
		result.Verses = append(result.Verses, found...)
	}
	if s.detector != nil {
		result.Detection = s.detector.Detect(r.Context(), text)
	}

	respondWithMeta(w, http.StatusOK, result, len(result.Verses))
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if s.detector == nil {
		respondError(w, http.StatusServiceUnavailable, "DETECTION_DISABLED", "Live detection is disabled")
		return
	}

	var req DetectRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body")
		return
	}
	text := server.SanitizeQuery(req.Text)
	if text == "" {
		respondError(w, http.StatusBadRequest, "MISSING_TEXT", "Field 'text' is required")
		return
	}

	ev := s.detector.Detect(r.Context(), text)
	respond(w, http.StatusOK, DetectResult{Detected: ev != nil, Event: ev})
}

func (s *Server) observeTranscription(outcome string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveTranscription(outcome)
	}
}

// allowMethod writes a 405 and returns false unless r uses one of methods.
func allowMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only "+strings.Join(methods, ", ")+" is allowed")
	return false
}

// ETag returns the strong entity tag for a response payload.
func ETag(payload []byte) string {
	sum := blake3.Sum256(payload)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// respondCacheable writes data with an ETag derived from the data alone,
// answering 304 when the client already holds it.
func respondCacheable(w http.ResponseWriter, r *http.Request, data any, total int) {
	payload, err := json.Marshal(data)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to encode response")
		return
	}

	tag := ETag(payload)
	w.Header().Set("ETag", tag)
	w.Header().Set("Cache-Control", "no-cache")
	if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, tag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	respondWithMeta(w, http.StatusOK, json.RawMessage(payload), total)
}

func etagMatches(header, tag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == tag {
			return true
		}
	}
	return false
}

func respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Meta:    &APIMeta{Timestamp: timestamp()},
	})
}

func respondWithMeta(w http.ResponseWriter, status int, data any, total int) {
	writeJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Meta:    &APIMeta{Total: total, Timestamp: timestamp()},
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondErrorTip(w, status, code, message, "")
}

func respondErrorTip(w http.ResponseWriter, status int, code, message, tip string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message, Tip: tip},
		Meta:    &APIMeta{Timestamp: timestamp()},
	})
}

func writeJSON(w http.ResponseWriter, status int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.Warn("failed to write response", "error", err)
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
