package speech

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ideamans/go-sheetcrud/internal/gauth"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/texttospeech/v1"
)

// GoogleConfig holds configuration for the Cloud Text-to-Speech synthesizer
type GoogleConfig struct {
	// Rate limit requests per minute (defaults to 60)
	RequestsPerMinute int

	// Per request timeout (defaults to 30s)
	Timeout time.Duration

	Logger *log.Logger
}

// GoogleSynthesizer implements Synthesizer with Google Cloud Text-to-Speech
type GoogleSynthesizer struct {
	service     *texttospeech.Service
	rateLimiter *rate.Limiter
	timeout     time.Duration
	logger      *log.Logger
}

// NewGoogleSynthesizer creates a synthesizer with the provided client options
func NewGoogleSynthesizer(ctx context.Context, config GoogleConfig, opts ...option.ClientOption) (*GoogleSynthesizer, error) {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 60
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	service, err := texttospeech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech service: %w", err)
	}

	return &GoogleSynthesizer{
		service:     service,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1),
		timeout:     config.Timeout,
		logger:      config.Logger,
	}, nil
}

// NewWithJSONKeyFile creates a synthesizer using a service account key file.
// An empty path falls back to GOOGLE_APPLICATION_CREDENTIALS.
func NewWithJSONKeyFile(ctx context.Context, config GoogleConfig, jsonPath string) (*GoogleSynthesizer, error) {
	opts, err := gauth.FromJSONKeyFile(ctx, jsonPath, texttospeech.CloudPlatformScope)
	if err != nil {
		return nil, err
	}
	return NewGoogleSynthesizer(ctx, config, opts...)
}

// NewWithDefaultCredentials creates a synthesizer using Application Default Credentials
func NewWithDefaultCredentials(ctx context.Context, config GoogleConfig) (*GoogleSynthesizer, error) {
	opts, err := gauth.FromDefaultCredentials(ctx, texttospeech.CloudPlatformScope)
	if err != nil {
		return nil, err
	}
	return NewGoogleSynthesizer(ctx, config, opts...)
}

// Synthesize requests MP3 audio for the text
func (g *GoogleSynthesizer) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	if err := req.Validate(); err != nil {
		return nil, &SynthesisError{Request: req, Err: err}
	}

	if err := g.rateLimiter.Wait(ctx); err != nil {
		return nil, &SynthesisError{Request: req, Err: fmt.Errorf("rate limit wait cancelled: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	started := time.Now()
	resp, err := g.service.Text.Synthesize(&texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: req.Text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: req.LanguageCode,
			Name:         req.VoiceName,
		},
		AudioConfig: &texttospeech.AudioConfig{AudioEncoding: "MP3"},
	}).Context(ctx).Do()
	if err != nil {
		return nil, &SynthesisError{Request: req, Err: err}
	}

	data, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, &SynthesisError{Request: req, Err: fmt.Errorf("failed to decode audio content: %w", err)}
	}
	if len(data) == 0 {
		return nil, &SynthesisError{Request: req, Err: fmt.Errorf("empty audio content")}
	}

	g.logger.Debug("synthesized speech", "voice", req.VoiceName, "bytes", len(data), "elapsed", time.Since(started))
	return &Audio{Data: data, MIMEType: MIMETypeMP3}, nil
}
