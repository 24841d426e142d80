package description

import (
	"context"
	"os"
	"strings"

	"log/slog"

	"pitchpipe/internal/config"
	"pitchpipe/internal/logging"
	"pitchpipe/internal/queue"
	"pitchpipe/internal/services"
	"pitchpipe/internal/services/llm"
	"pitchpipe/internal/stage"
)

// Transcripts beyond this length are truncated before prompting; the opening
// of an episode carries the show identity the description needs.
const maxTranscriptChars = 24000

// CompletionClient is the chat-completion surface this stage needs.
type CompletionClient interface {
	CompleteText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// Stage is the description stage handler.
type Stage struct {
	cfg    *config.Config
	logger *slog.Logger
	client CompletionClient
}

// NewStage constructs the description stage with the configured LLM client.
func NewStage(cfg *config.Config, logger *slog.Logger) *Stage {
	return NewStageWithClient(cfg, logger, llm.NewClient(cfg.LLM))
}

// NewStageWithClient allows injecting the completion client (used in tests).
func NewStageWithClient(cfg *config.Config, logger *slog.Logger, client CompletionClient) *Stage {
	return &Stage{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "description"),
		client: client,
	}
}

func (s *Stage) Prepare(ctx context.Context, item *queue.Item) error {
	if s.client == nil {
		return services.Wrap(services.ErrConfiguration, "description", "prepare", "completion client unavailable", nil)
	}
	if strings.TrimSpace(item.TranscriptPath) == "" {
		return services.Wrap(services.ErrValidation, "description", "prepare", "item has no transcript", nil)
	}
	return nil
}

func (s *Stage) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)

	raw, err := os.ReadFile(item.TranscriptPath)
	if err != nil {
		if os.IsNotExist(err) {
			return services.Wrap(services.ErrValidation, "description", "execute", "transcript file missing", err)
		}
		return services.Wrap(services.ErrTransient, "description", "execute", "read transcript", err)
	}
	transcript := strings.TrimSpace(string(raw))
	if transcript == "" {
		return services.Wrap(services.ErrValidation, "description", "execute", "transcript is empty", nil)
	}
	truncated := false
	if len(transcript) > maxTranscriptChars {
		transcript = transcript[:maxTranscriptChars]
		truncated = true
	}

	text, err := s.client.CompleteText(ctx, systemPrompt, transcript)
	if err != nil {
		return err
	}
	item.DescriptionText = strings.TrimSpace(text)

	logger.Info("generated description",
		logging.Int("transcript_chars", len(transcript)),
		logging.Bool("transcript_truncated", truncated),
		logging.Int("description_chars", len(item.DescriptionText)),
	)
	return nil
}

func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "description"
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
