package transform

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"pitchpipe/internal/config"
	"pitchpipe/internal/logging"
)

// Compressor re-encodes audio into a mono, speech-rate MP3 so mid-tier
// payloads fit under the direct-process limit.
type Compressor struct {
	binary       string
	bitrateKbps  int
	sampleRateHz int
	logger       *slog.Logger
}

// NewCompressor builds a compressor from transform configuration.
func NewCompressor(cfg config.Transform, logger *slog.Logger) *Compressor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Compressor{
		binary:       cfg.FFmpegBinary,
		bitrateKbps:  cfg.AudioBitrateKbps,
		sampleRateHz: cfg.AudioSampleRateHz,
		logger:       logging.NewComponentLogger(logger, "transform"),
	}
}

// Compress transcodes source into dest and returns the output size. The
// source file is left in place; callers own its lifecycle.
func (c *Compressor) Compress(ctx context.Context, source, dest string) (int64, error) {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", c.sampleRateHz),
		"-b:a", fmt.Sprintf("%dk", c.bitrateKbps),
		"-c:a", "libmp3lame",
		dest,
	}

	started := time.Now()
	cmd := exec.CommandContext(ctx, c.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return 0, fmt.Errorf("ffmpeg compress: %w: %s", err, strings.TrimSpace(string(output)))
	}

	info, err := os.Stat(dest)
	if err != nil {
		return 0, fmt.Errorf("stat compressed output: %w", err)
	}
	c.logger.Info("compressed audio payload",
		logging.String("source", source),
		logging.String("dest", dest),
		logging.Int64("output_bytes", info.Size()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return info.Size(), nil
}

// Available reports whether the ffmpeg binary can be resolved.
func (c *Compressor) Available() error {
	if strings.TrimSpace(c.binary) == "" {
		return fmt.Errorf("ffmpeg binary is not configured")
	}
	if _, err := exec.LookPath(c.binary); err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}
	return nil
}
