package vetting

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"pitchpipe/internal/config"
	"pitchpipe/internal/logging"
	"pitchpipe/internal/queue"
	"pitchpipe/internal/services"
	"pitchpipe/internal/services/llm"
	"pitchpipe/internal/stage"
)

// CompletionClient is the chat-completion surface this stage needs.
type CompletionClient interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// Verdict is the JSON payload the model returns.
type Verdict struct {
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

// Stage is the vetting stage handler.
type Stage struct {
	cfg    *config.Config
	logger *slog.Logger
	client CompletionClient
}

// NewStage constructs the vetting stage with the configured LLM client.
func NewStage(cfg *config.Config, logger *slog.Logger) *Stage {
	return NewStageWithClient(cfg, logger, llm.NewClient(cfg.LLM))
}

// NewStageWithClient allows injecting the completion client (used in tests).
func NewStageWithClient(cfg *config.Config, logger *slog.Logger, client CompletionClient) *Stage {
	return &Stage{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "vetting"),
		client: client,
	}
}

func (s *Stage) Prepare(ctx context.Context, item *queue.Item) error {
	if s.client == nil {
		return services.Wrap(services.ErrConfiguration, "vetting", "prepare", "completion client unavailable", nil)
	}
	if strings.TrimSpace(item.DescriptionText) == "" {
		return services.Wrap(services.ErrValidation, "vetting", "prepare", "item has no description", nil)
	}
	return nil
}

func (s *Stage) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)

	content, err := s.client.CompleteJSON(ctx, systemPrompt, buildUserPrompt(item))
	if err != nil {
		return err
	}
	var verdict Verdict
	if err := llm.DecodeModelJSON(content, &verdict); err != nil {
		return services.Wrap(services.ErrTransient, "vetting", "execute", "parse verdict", err)
	}
	if verdict.Score < 0 {
		verdict.Score = 0
	}
	if verdict.Score > 1 {
		verdict.Score = 1
	}

	item.VettingScore = verdict.Score
	item.VettingJSON = content

	minScore := s.cfg.Vetting.MinScore
	logger.Info("vetted match",
		logging.Float64("score", verdict.Score),
		logging.Float64("min_score", minScore),
	)
	if verdict.Score < minScore {
		// Score and rationale stay on the item so the failure is auditable.
		return services.Wrap(services.ErrPermanent, "vetting", "execute",
			fmt.Sprintf("score %.2f below minimum %.2f: %s", verdict.Score, minScore, strings.TrimSpace(verdict.Rationale)), nil)
	}
	return nil
}

func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "vetting"
	if s.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(s.cfg.LLM.APIKey) == "" {
		return stage.Unhealthy(name, "llm api key not configured")
	}
	if s.client == nil {
		return stage.Unhealthy(name, "completion client unavailable")
	}
	return stage.Healthy(name)
}

func buildUserPrompt(item *queue.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Campaign: %s\n", item.CampaignID)
	fmt.Fprintf(&b, "Show: %s\n", item.MediaTitle)
	if enrichment := strings.TrimSpace(item.EnrichmentJSON); enrichment != "" {
		fmt.Fprintf(&b, "Show profile: %s\n", enrichment)
	}
	fmt.Fprintf(&b, "Episode description:\n%s\n", item.DescriptionText)
	return b.String()
}
