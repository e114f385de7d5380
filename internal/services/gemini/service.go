package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"censorwave/internal/services/whisperx"
)

const (
	DefaultModel    = "gemini-2.5-flash"
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

	// MaxInlineBytes is the request ceiling for inline audio.
	MaxInlineBytes = 20 << 20

	defaultHTTPTimeout  = 5 * time.Minute
	defaultRetryInitial = 2 * time.Second
	defaultRetryElapsed = 2 * time.Minute
)

// Config captures the settings required to talk to the Gemini API.
type Config struct {
	APIKey   string
	Model    string
	Endpoint string
	Language string
}

// Service transcribes songs with phrase-level timings through Gemini.
type Service struct {
	cfg          Config
	httpClient   *http.Client
	retryInitial time.Duration
	retryElapsed time.Duration
}

// Option customizes the service.
type Option func(*Service)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithRetry overrides the first retry delay and the total retry budget.
func WithRetry(initial, maxElapsed time.Duration) Option {
	return func(s *Service) {
		s.retryInitial = initial
		s.retryElapsed = maxElapsed
	}
}

// NewService builds a Gemini transcriber.
func NewService(cfg Config, opts ...Option) *Service {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.Model = strings.TrimSpace(cfg.Model); cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Endpoint = strings.TrimSpace(cfg.Endpoint); cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	s := &Service{
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
		retryInitial: defaultRetryInitial,
		retryElapsed: defaultRetryElapsed,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Model returns the configured model name.
func (s *Service) Model() string {
	return s.cfg.Model
}

// Transcribe sends audioPath inline and returns one segment per sung phrase.
// Segments carry no word timings.
func (s *Service) Transcribe(ctx context.Context, audioPath string) ([]whisperx.Segment, error) {
	if s.cfg.APIKey == "" {
		return nil, errors.New("gemini: api key required")
	}
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("gemini: read audio: %w", err)
	}
	if len(data) > MaxInlineBytes {
		return nil, fmt.Errorf("gemini: %s is %d bytes, over the %d byte inline limit (split it with --chunks)",
			filepath.Base(audioPath), len(data), MaxInlineBytes)
	}

	payload := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: buildPrompt(s.cfg.Language)},
				{InlineData: &inlineData{MimeType: audioMimeType(audioPath), Data: base64.StdEncoding.EncodeToString(data)}},
			},
		}},
		GenerationConfig: generationConfig{ResponseMimeType: "application/json", Temperature: 0},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gemini: encode request: %w", err)
	}

	var text string
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retryInitial
	bo.MaxElapsedTime = s.retryElapsed
	err = backoff.Retry(func() error {
		var sendErr error
		text, sendErr = s.generateOnce(ctx, encoded)
		if sendErr == nil || retryable(sendErr) {
			return sendErr
		}
		return backoff.Permanent(sendErr)
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return ParseSegments(text)
}

func (s *Service) generateOnce(ctx context.Context, body []byte) (string, error) {
	endpoint, err := url.JoinPath(s.cfg.Endpoint, "models", s.cfg.Model+":generateContent")
	if err != nil {
		return "", fmt.Errorf("gemini: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.cfg.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: %w: %w", errTransport, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &httpStatusError{StatusCode: resp.StatusCode, Body: snippet(string(raw))}
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	text, finish := parsed.text()
	if text == "" {
		block := ""
		if parsed.PromptFeedback != nil {
			block = parsed.PromptFeedback.BlockReason
		}
		return "", fmt.Errorf("gemini: empty response (finish_reason=%q, block_reason=%q)", finish, block)
	}
	return text, nil
}

var errTransport = errors.New("http transport failure")

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("gemini: http %d: %s", e.StatusCode, e.Body)
}

// retryable reports whether another attempt can succeed.
func retryable(err error) bool {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= http.StatusInternalServerError
	}
	return errors.Is(err, errTransport)
}

func snippet(body string) string {
	body = strings.TrimSpace(body)
	if len(body) > 300 {
		return body[:300] + "..."
	}
	return body
}

func audioMimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".m4a", ".aac":
		return "audio/aac"
	}
	if t := mime.TypeByExtension(filepath.Ext(path)); strings.HasPrefix(t, "audio/") {
		return t
	}
	return "audio/mpeg"
}

func buildPrompt(language string) string {
	var b strings.Builder
	b.WriteString(phrasePrompt)
	if lang := strings.TrimSpace(language); lang != "" {
		fmt.Fprintf(&b, "\nThe lyrics are sung in the language with ISO code %q.", lang)
	}
	return b.String()
}

const phrasePrompt = `Transcribe the lyrics of the attached song.
For every understandable phrase or line, return an object with:
  "start": start time in seconds (number),
  "end": end time in seconds (number),
  "text": the words sung (string).
Return ONLY a JSON array of these objects, ordered by start time.
Omit sections that are only music.`

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (r generateResponse) text() (string, string) {
	var finish string
	for _, cand := range r.Candidates {
		if finish == "" {
			finish = cand.FinishReason
		}
		var b strings.Builder
		for _, p := range cand.Content.Parts {
			b.WriteString(p.Text)
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			return text, finish
		}
	}
	return "", finish
}

// ParseSegments decodes the model's phrase list. Code fences and text around
// the JSON array are tolerated. Entries whose end precedes their start, or
// whose text is blank, are dropped.
func ParseSegments(text string) ([]whisperx.Segment, error) {
	body := strings.TrimSpace(text)
	if start, end := strings.Index(body, "["), strings.LastIndex(body, "]"); start >= 0 && end > start {
		body = body[start : end+1]
	}
	var phrases []struct {
		Start *float64 `json:"start"`
		End   *float64 `json:"end"`
		Text  string   `json:"text"`
	}
	if err := json.Unmarshal([]byte(body), &phrases); err != nil {
		return nil, fmt.Errorf("gemini: parse phrases: %w", err)
	}
	segments := make([]whisperx.Segment, 0, len(phrases))
	for _, p := range phrases {
		if p.Start == nil || p.End == nil || *p.End < *p.Start || strings.TrimSpace(p.Text) == "" {
			continue
		}
		segments = append(segments, whisperx.Segment{Text: strings.TrimSpace(p.Text), Start: *p.Start, End: *p.End})
	}
	return segments, nil
}
