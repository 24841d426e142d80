// Package payload downloads episode audio into the staging directory. The
// fetch streams straight to disk with the compress ceiling enforced mid-flight
// so an oversized or lying feed can never fill the volume.
package payload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"pitchpipe/internal/config"
	"pitchpipe/internal/logging"
	"pitchpipe/internal/services"
)

// Descriptor describes a fetched payload on disk.
type Descriptor struct {
	Path      string
	SizeBytes int64
}

// Fetcher downloads audio payloads with a hard size ceiling.
type Fetcher struct {
	client       *http.Client
	ceilingBytes int64
	dir          string
	logger       *slog.Logger
}

// NewFetcher builds a fetcher rooted in the staging directory.
func NewFetcher(cfg *config.Config, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Fetcher{
		client:       &http.Client{},
		ceilingBytes: cfg.Transform.CompressCeilingBytes,
		dir:          filepath.Join(cfg.Paths.StagingDir, "payloads"),
		logger:       logging.NewComponentLogger(logger, "payload"),
	}
}

// Fetch downloads the audio for an item and returns where it landed along
// with its measured size. A Content-Length above the ceiling aborts before
// any bytes move; a stream that grows past the ceiling is cut off and the
// partial file removed.
func (f *Fetcher) Fetch(ctx context.Context, audioURL string, itemID int64) (Descriptor, error) {
	if strings.TrimSpace(audioURL) == "" {
		return Descriptor{}, fmt.Errorf("%w: audio url is empty", services.ErrValidation)
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return Descriptor{}, fmt.Errorf("create payload dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: build request: %v", services.ErrValidation, err)
	}

	started := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return Descriptor{}, services.ClassifyTransport("payload fetch", err)
	}
	defer resp.Body.Close()

	if err := services.ClassifyHTTPStatus("payload fetch", resp.StatusCode, ""); err != nil {
		return Descriptor{}, err
	}
	if resp.ContentLength > f.ceilingBytes {
		return Descriptor{}, fmt.Errorf("%w: declared %d bytes exceeds ceiling %d",
			services.ErrOversized, resp.ContentLength, f.ceilingBytes)
	}

	dest := filepath.Join(f.dir, fmt.Sprintf("item-%d%s", itemID, payloadExt(audioURL)))
	out, err := os.Create(dest)
	if err != nil {
		return Descriptor{}, fmt.Errorf("create payload file: %w", err)
	}

	// Read one byte past the ceiling: landing there means the body was
	// bigger than allowed.
	written, copyErr := io.Copy(out, io.LimitReader(resp.Body, f.ceilingBytes+1))
	closeErr := out.Close()
	if copyErr != nil {
		_ = os.Remove(dest)
		return Descriptor{}, services.ClassifyTransport("payload fetch", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(dest)
		return Descriptor{}, fmt.Errorf("close payload file: %w", closeErr)
	}
	if written > f.ceilingBytes {
		_ = os.Remove(dest)
		return Descriptor{}, fmt.Errorf("%w: stream exceeded ceiling %d bytes",
			services.ErrOversized, f.ceilingBytes)
	}

	f.logger.Info("fetched audio payload",
		logging.Int64("item_id", itemID),
		logging.Int64("size_bytes", written),
		logging.Duration("elapsed", time.Since(started)),
	)
	return Descriptor{Path: dest, SizeBytes: written}, nil
}

// Remove deletes a payload file, tolerating files already gone.
func (f *Fetcher) Remove(filePath string) error {
	if strings.TrimSpace(filePath) == "" {
		return nil
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove payload: %w", err)
	}
	return nil
}

func payloadExt(audioURL string) string {
	parsed, err := url.Parse(audioURL)
	if err != nil {
		return ".mp3"
	}
	ext := path.Ext(parsed.Path)
	if ext == "" || len(ext) > 8 {
		return ".mp3"
	}
	return ext
}
