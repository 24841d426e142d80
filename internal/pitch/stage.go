package pitch

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
	CompleteText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// Stage is the pitch-drafting stage handler.
type Stage struct {
	cfg    *config.Config
	logger *slog.Logger
	client CompletionClient
}

// NewStage constructs the pitch stage with the configured LLM client.
func NewStage(cfg *config.Config, logger *slog.Logger) *Stage {
	return NewStageWithClient(cfg, logger, llm.NewClient(cfg.LLM))
}

// NewStageWithClient allows injecting the completion client (used in tests).
func NewStageWithClient(cfg *config.Config, logger *slog.Logger, client CompletionClient) *Stage {
	return &Stage{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "pitch"),
		client: client,
	}
}

func (s *Stage) Prepare(ctx context.Context, item *queue.Item) error {
	if s.client == nil {
		return services.Wrap(services.ErrConfiguration, "pitch", "prepare", "completion client unavailable", nil)
	}
	if strings.TrimSpace(item.MatchNotes) == "" {
		return services.Wrap(services.ErrValidation, "pitch", "prepare", "item has no match record", nil)
	}
	return nil
}

func (s *Stage) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)

	draft, err := s.client.CompleteText(ctx, systemPrompt, buildUserPrompt(item))
	if err != nil {
		return err
	}
	draft = strings.TrimSpace(draft)
	if draft == "" {
		return services.Wrap(services.ErrTransient, "pitch", "execute", "model returned an empty draft", nil)
	}
	item.PitchDraft = draft

	logger.Info("drafted pitch", logging.Int("draft_chars", len(draft)))
	return nil
}

func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "pitch"
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
	fmt.Fprintf(&b, "Match record:\n%s\n", item.MatchNotes)
	if desc := strings.TrimSpace(item.DescriptionText); desc != "" {
		fmt.Fprintf(&b, "\nEpisode description:\n%s\n", desc)
	}
	return b.String()
}
