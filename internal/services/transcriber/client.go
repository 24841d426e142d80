package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pitchpipe/internal/config"
	"pitchpipe/internal/services"
)

// Transcription jobs routinely run for minutes on long episodes.
const defaultHTTPTimeout = 15 * time.Minute

// Transcript is the result of one transcription call.
type Transcript struct {
	Text            string  `json:"text"`
	Language        string  `json:"language"`
	DurationSeconds float64 `json:"duration"`
}

// Client talks to the remote transcription service.
type Client struct {
	cfg        config.Transcriber
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a transcription client from configuration.
func NewClient(cfg config.Transcriber, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: config.Transcriber{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}
	return client
}

// Transcribe uploads the audio file at audioPath and returns its transcript.
// The file is streamed as it is read; the request body never holds more than
// the pipe buffer in memory.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	var empty Transcript
	if c.cfg.BaseURL == "" {
		return empty, fmt.Errorf("%w: transcribe: base url required", services.ErrConfiguration)
	}
	if c.cfg.APIKey == "" {
		return empty, fmt.Errorf("%w: transcribe: api key required", services.ErrConfiguration)
	}
	file, err := os.Open(audioPath)
	if err != nil {
		if os.IsNotExist(err) {
			return empty, fmt.Errorf("%w: transcribe: audio file missing: %v", services.ErrValidation, err)
		}
		return empty, fmt.Errorf("transcribe: open audio: %w", err)
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		defer file.Close()
		part, err := form.CreateFormFile("file", filepath.Base(audioPath))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		if c.cfg.Model != "" {
			if err := form.WriteField("model", c.cfg.Model); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		pw.CloseWithError(form.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/audio/transcriptions", pr)
	if err != nil {
		return empty, fmt.Errorf("transcribe: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, services.ClassifyTransport("transcribe", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, services.ClassifyTransport("transcribe", err)
	}
	if err := services.ClassifyHTTPStatus("transcribe", resp.StatusCode, string(body)); err != nil {
		return empty, err
	}

	var transcript Transcript
	if err := json.Unmarshal(body, &transcript); err != nil {
		return empty, fmt.Errorf("%w: transcribe: decode response: %v", services.ErrTransient, err)
	}
	if strings.TrimSpace(transcript.Text) == "" {
		return empty, fmt.Errorf("%w: transcribe: empty transcript", services.ErrTransient)
	}
	return transcript, nil
}

// HealthCheck verifies the service is reachable with the configured key.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.BaseURL == "" {
		return fmt.Errorf("%w: transcriber health: base url required", services.ErrConfiguration)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("transcriber health: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.ClassifyTransport("transcriber health", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return services.ClassifyHTTPStatus("transcriber health", resp.StatusCode, string(body))
}
