package podscan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pitchpipe/internal/config"
	"pitchpipe/internal/services"
)

const defaultHTTPTimeout = 30 * time.Second

// MediaProfile is the show-level enrichment payload for one media record.
type MediaProfile struct {
	ShowName         string  `json:"show_name"`
	Category         string  `json:"category"`
	Language         string  `json:"language"`
	Description      string  `json:"description"`
	AudienceEstimate int64   `json:"audience_estimate"`
	EpisodesPerMonth float64 `json:"episodes_per_month"`
	ContactEmail     string  `json:"contact_email"`
	// Raw carries the untouched response body for ledger storage.
	Raw string `json:"-"`
}

// Client talks to the discovery/enrichment API.
type Client struct {
	cfg        config.Podscan
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

// NewClient constructs an enrichment API client from configuration.
func NewClient(cfg config.Podscan, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: config.Podscan{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIKey:         strings.TrimSpace(cfg.APIKey),
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

// MediaProfile fetches the enrichment profile for one media identifier.
func (c *Client) MediaProfile(ctx context.Context, mediaID string) (MediaProfile, error) {
	var empty MediaProfile
	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		return empty, fmt.Errorf("%w: podscan profile: media id required", services.ErrValidation)
	}

	body, err := c.get(ctx, "podscan profile", "/media/"+url.PathEscape(mediaID))
	if err != nil {
		return empty, err
	}

	var profile MediaProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return empty, fmt.Errorf("%w: podscan profile: decode response: %v", services.ErrTransient, err)
	}
	profile.Raw = string(body)
	profile.ShowName = strings.TrimSpace(profile.ShowName)
	profile.ContactEmail = strings.TrimSpace(profile.ContactEmail)
	if profile.ShowName == "" {
		return empty, fmt.Errorf("%w: podscan profile: no show name for media %q", services.ErrPermanent, mediaID)
	}
	return profile, nil
}

// HealthCheck verifies the API is reachable with the configured key.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.get(ctx, "podscan health", "/health")
	return err
}

func (c *Client) get(ctx context.Context, op, apiPath string) ([]byte, error) {
	if c.cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: %s: base url required", services.ErrConfiguration, op)
	}
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s: api key required", services.ErrConfiguration, op)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+apiPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: new request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.ClassifyTransport(op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.ClassifyTransport(op, err)
	}
	if err := services.ClassifyHTTPStatus(op, resp.StatusCode, string(body)); err != nil {
		return nil, err
	}
	return body, nil
}
