package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"log/slog"

	"pitchpipe/internal/config"
	"pitchpipe/internal/logging"
	"pitchpipe/internal/queue"
	"pitchpipe/internal/services"
	"pitchpipe/internal/stage"
)

// Stage is the match-finalization stage handler.
type Stage struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewStage constructs the match-finalization stage.
func NewStage(cfg *config.Config, logger *slog.Logger) *Stage {
	return &Stage{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "matching"),
	}
}

func (s *Stage) Prepare(ctx context.Context, item *queue.Item) error {
	if strings.TrimSpace(item.VettingJSON) == "" {
		return services.Wrap(services.ErrValidation, "match", "prepare", "item has no vetting verdict", nil)
	}
	return nil
}

func (s *Stage) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)

	var profile struct {
		ShowName         string `json:"show_name"`
		Category         string `json:"category"`
		AudienceEstimate int64  `json:"audience_estimate"`
		ContactEmail     string `json:"contact_email"`
	}
	if raw := strings.TrimSpace(item.EnrichmentJSON); raw != "" {
		if err := json.Unmarshal([]byte(raw), &profile); err != nil {
			return services.Wrap(services.ErrValidation, "match", "execute", "corrupt enrichment record", err)
		}
	}
	var verdict struct {
		Rationale string `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(item.VettingJSON), &verdict); err != nil {
		return services.Wrap(services.ErrValidation, "match", "execute", "corrupt vetting verdict", err)
	}

	var b strings.Builder
	title := strings.TrimSpace(item.MediaTitle)
	if title == "" {
		title = strings.TrimSpace(profile.ShowName)
	}
	fmt.Fprintf(&b, "Match: %s for campaign %s (score %.2f)", title, item.CampaignID, item.VettingScore)
	if profile.Category != "" {
		fmt.Fprintf(&b, "\nCategory: %s", profile.Category)
	}
	if profile.AudienceEstimate > 0 {
		fmt.Fprintf(&b, "\nAudience estimate: %d", profile.AudienceEstimate)
	}
	if profile.ContactEmail != "" {
		fmt.Fprintf(&b, "\nContact: %s", profile.ContactEmail)
	}
	if rationale := strings.TrimSpace(verdict.Rationale); rationale != "" {
		fmt.Fprintf(&b, "\nWhy: %s", rationale)
	}
	item.MatchNotes = b.String()

	logger.Info("finalized match",
		logging.Float64("score", item.VettingScore),
		logging.String("contact_email", profile.ContactEmail),
	)
	return nil
}

func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "match"
	if s.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	return stage.Healthy(name)
}
