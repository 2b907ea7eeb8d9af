// Package transcribe turns recorded audio into text through an external
// speech-to-text provider.
package transcribe

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/FocuswithJustin/BibleEcho/core/errors"
	"github.com/FocuswithJustin/BibleEcho/internal/config"
	"github.com/FocuswithJustin/BibleEcho/internal/logging"
)

// DefaultModel is used when the configuration names none.
const DefaultModel = openai.AudioModelWhisper1

// ErrDisabled is returned by New when no provider is configured.
var ErrDisabled = errors.NewUnsupported("transcription", "no provider configured")

// Transcriber converts audio into text.
type Transcriber interface {
	// Transcribe reads the whole of audio. filename is passed to the
	// provider so it can detect the container format.
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// ProviderError reports a failed provider call.
type ProviderError struct {
	Provider   string
	StatusCode int // 0 when the request never got a response
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s transcription failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s transcription failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// New builds the Transcriber selected by cfg. It returns ErrDisabled when
// the provider is "none" or no API key is available.
func New(cfg config.TranscriptionConfig) (Transcriber, error) {
	switch cfg.Provider {
	case config.ProviderNone, "":
		return nil, ErrDisabled
	case config.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, ErrDisabled
		}
		o, err := NewOpenAI(cfg)
		if err != nil {
			return nil, err
		}
		return o, nil
	default:
		return nil, errors.NewUnsupported("transcription provider", cfg.Provider)
	}
}

var _ Transcriber = (*OpenAI)(nil)

// OpenAI transcribes through the OpenAI audio transcription endpoint.
type OpenAI struct {
	client   openai.Client
	model    string
	language string
}

// NewOpenAI creates an OpenAI transcriber. Extra request options are
// appended after the ones derived from cfg.
func NewOpenAI(cfg config.TranscriptionConfig, opts ...option.RequestOption) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewValidation("transcription.api_key", "must not be empty")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(cfg.Timeout))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAI{
		client:   openai.NewClient(reqOpts...),
		model:    model,
		language: cfg.Language,
	}, nil
}

// Model returns the configured model name.
func (o *OpenAI) Model() string {
	return o.model
}

// Transcribe implements Transcriber. Rate-limited and server-side failures
// are retried by the client with exponential back-off.
func (o *OpenAI) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if filename == "" {
		filename = "audio.webm"
	}
	start := time.Now()

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(audio, filepath.Base(filename), contentType(filename)),
		Model: openai.AudioModel(o.model),
	}
	if o.language != "" {
		params.Language = openai.String(o.language)
	}

	resp, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		perr := &ProviderError{Provider: config.ProviderOpenAI, Err: err}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			perr.StatusCode = apiErr.StatusCode
		}
		return "", perr
	}

	text := strings.TrimSpace(resp.Text)
	logging.Transcription(ctx, config.ProviderOpenAI, len(text), time.Since(start), "model", o.model)
	return text, nil
}

func contentType(filename string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
