package enrichment

import (
	"context"
	"strings"

	"log/slog"

	"pitchpipe/internal/config"
	"pitchpipe/internal/logging"
	"pitchpipe/internal/queue"
	"pitchpipe/internal/services"
	"pitchpipe/internal/services/podscan"
	"pitchpipe/internal/stage"
)

// ProfileClient fetches show-level enrichment data.
type ProfileClient interface {
	MediaProfile(ctx context.Context, mediaID string) (podscan.MediaProfile, error)
	HealthCheck(ctx context.Context) error
}

// Enricher is the enrichment stage handler.
type Enricher struct {
	cfg    *config.Config
	logger *slog.Logger
	client ProfileClient
}

// NewEnricher constructs the enrichment stage with the configured API client.
func NewEnricher(cfg *config.Config, logger *slog.Logger) *Enricher {
	return NewEnricherWithClient(cfg, logger, podscan.NewClient(cfg.Podscan))
}

// NewEnricherWithClient allows injecting the API client (used in tests).
func NewEnricherWithClient(cfg *config.Config, logger *slog.Logger, client ProfileClient) *Enricher {
	return &Enricher{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "enrichment"),
		client: client,
	}
}

func (e *Enricher) Prepare(ctx context.Context, item *queue.Item) error {
	if e.client == nil {
		return services.Wrap(services.ErrConfiguration, "enrichment", "prepare", "enrichment client unavailable", nil)
	}
	if strings.TrimSpace(item.MediaID) == "" {
		return services.Wrap(services.ErrValidation, "enrichment", "prepare", "item has no media id", nil)
	}
	return nil
}

func (e *Enricher) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, e.logger)

	profile, err := e.client.MediaProfile(ctx, item.MediaID)
	if err != nil {
		return err
	}

	item.EnrichmentJSON = profile.Raw
	if strings.TrimSpace(item.MediaTitle) == "" {
		item.MediaTitle = profile.ShowName
	}

	logger.Info("enriched media profile",
		logging.String("show_name", profile.ShowName),
		logging.String("category", profile.Category),
		logging.Int64("audience_estimate", profile.AudienceEstimate),
	)
	return nil
}

func (e *Enricher) HealthCheck(ctx context.Context) stage.Health {
	const name = "enrichment"
	if e.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(e.cfg.Podscan.APIKey) == "" {
		return stage.Unhealthy(name, "enrichment api key not configured")
	}
	if e.client == nil {
		return stage.Unhealthy(name, "enrichment client unavailable")
	}
	return stage.Healthy(name)
}
