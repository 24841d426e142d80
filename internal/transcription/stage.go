package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"pitchpipe/internal/config"
	"pitchpipe/internal/logging"
	"pitchpipe/internal/memstat"
	"pitchpipe/internal/payload"
	"pitchpipe/internal/queue"
	"pitchpipe/internal/services"
	"pitchpipe/internal/services/transcriber"
	"pitchpipe/internal/stage"
	"pitchpipe/internal/throttle"
	"pitchpipe/internal/transform"
)

// The download lane is separate from the stage's own concurrency limit:
// several transcriptions may run, but only this many may be moving or
// transforming payload bytes at once.
const downloadLane = "downloads"

// TranscriptClient produces a transcript for an audio file on disk.
type TranscriptClient interface {
	Transcribe(ctx context.Context, audioPath string) (transcriber.Transcript, error)
	HealthCheck(ctx context.Context) error
}

// Stage is the transcription stage handler.
type Stage struct {
	cfg           *config.Config
	logger        *slog.Logger
	fetcher       *payload.Fetcher
	compressor    *transform.Compressor
	monitor       *memstat.Monitor
	downloads     *throttle.Registry
	client        TranscriptClient
	transcriptDir string
}

// NewStage constructs the transcription stage with configured dependencies.
func NewStage(cfg *config.Config, logger *slog.Logger) (*Stage, error) {
	monitor, err := memstat.NewMonitor(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("transcription stage: %w", err)
	}
	return NewStageWithDependencies(cfg, logger,
		payload.NewFetcher(cfg, logger),
		transform.NewCompressor(cfg.Transform, logger),
		monitor,
		transcriber.NewClient(cfg.Transcriber),
	), nil
}

// NewStageWithDependencies allows injecting collaborators (used in tests).
func NewStageWithDependencies(
	cfg *config.Config,
	logger *slog.Logger,
	fetcher *payload.Fetcher,
	compressor *transform.Compressor,
	monitor *memstat.Monitor,
	client TranscriptClient,
) *Stage {
	lanes := map[string]int{downloadLane: cfg.Memory.MaxConcurrentDownloads}
	return &Stage{
		cfg:           cfg,
		logger:        logging.NewComponentLogger(logger, "transcription"),
		fetcher:       fetcher,
		compressor:    compressor,
		monitor:       monitor,
		downloads:     throttle.NewRegistry(lanes),
		client:        client,
		transcriptDir: filepath.Join(cfg.Paths.StagingDir, "transcripts"),
	}
}

// Monitor exposes the memory gate for status reporting.
func (s *Stage) Monitor() *memstat.Monitor {
	return s.monitor
}

func (s *Stage) Prepare(ctx context.Context, item *queue.Item) error {
	if s.client == nil || s.fetcher == nil || s.compressor == nil || s.monitor == nil {
		return services.Wrap(services.ErrConfiguration, "transcription", "prepare", "stage is not fully configured", nil)
	}
	if strings.TrimSpace(item.AudioURL) == "" {
		return services.Wrap(services.ErrValidation, "transcription", "prepare", "item has no audio url", nil)
	}
	return nil
}

func (s *Stage) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)

	permit, err := s.downloads.Acquire(ctx, downloadLane)
	if err != nil {
		return err
	}
	defer permit.Release()

	if err := s.monitor.WaitUntilBelow(ctx); err != nil {
		if errors.Is(err, memstat.ErrWaitTimeout) {
			return services.Wrap(services.ErrResourceBusy, "transcription", "admit", "memory pressure did not clear", err)
		}
		return err
	}

	desc, err := s.fetcher.Fetch(ctx, item.AudioURL, item.ID)
	if err != nil {
		return err
	}
	staged := []string{desc.Path}
	defer func() {
		for _, p := range staged {
			if err := s.fetcher.Remove(p); err != nil {
				logger.Warn("failed to remove staged audio", logging.String("path", p), logging.Error(err))
			}
		}
	}()

	plan, err := transform.Decide(desc.SizeBytes, s.cfg.Transform)
	if err != nil {
		return services.Wrap(services.ErrValidation, "transcription", "plan", "unusable payload size", err)
	}

	audioPath := desc.Path
	switch plan.Action {
	case transform.ActionReject:
		return services.Wrap(services.ErrOversized, "transcription", "admit",
			fmt.Sprintf("payload is %d bytes, ceiling is %d", desc.SizeBytes, s.cfg.Transform.CompressCeilingBytes), nil)
	case transform.ActionCompress:
		compressed := compressedPath(desc.Path)
		staged = append(staged, compressed)
		if _, err := s.compressor.Compress(ctx, desc.Path, compressed); err != nil {
			// One shot at the untransformed file. Compression trouble alone
			// must not sink an otherwise processable item.
			logger.Warn("compression failed; transcribing original", logging.Error(err))
		} else {
			audioPath = compressed
			// The original goes the moment the compressed copy exists, so
			// disk usage stays bounded even if transcription fails below.
			if err := s.fetcher.Remove(desc.Path); err != nil {
				logger.Warn("failed to remove original payload", logging.Error(err))
			}
		}
	}

	transcript, err := s.client.Transcribe(ctx, audioPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.transcriptDir, 0o755); err != nil {
		return fmt.Errorf("create transcript dir: %w", err)
	}
	transcriptPath := filepath.Join(s.transcriptDir, fmt.Sprintf("item-%d.txt", item.ID))
	if err := os.WriteFile(transcriptPath, []byte(transcript.Text), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	item.TranscriptPath = transcriptPath

	logger.Info("transcribed audio",
		logging.Int64("payload_bytes", desc.SizeBytes),
		logging.String("plan", string(plan.Action)),
		logging.String("language", transcript.Language),
		logging.Float64("duration_seconds", transcript.DurationSeconds),
	)
	return nil
}

func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "transcription"
	if s.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(s.cfg.Transcriber.APIKey) == "" {
		return stage.Unhealthy(name, "transcriber api key not configured")
	}
	if s.compressor == nil {
		return stage.Unhealthy(name, "compressor unavailable")
	}
	if err := s.compressor.Available(); err != nil {
		return stage.Unhealthy(name, err.Error())
	}
	if s.monitor == nil {
		return stage.Unhealthy(name, "memory monitor unavailable")
	}
	return stage.Healthy(name)
}

func compressedPath(source string) string {
	ext := filepath.Ext(source)
	return strings.TrimSuffix(source, ext) + ".compressed.mp3"
}
