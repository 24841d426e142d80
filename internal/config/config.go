package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
}

// Workflow contains scheduler cadence and claim-lifecycle settings.
type Workflow struct {
	PollIntervalSeconds  int            `toml:"poll_interval_seconds"`
	ErrorRetrySeconds    int            `toml:"error_retry_seconds"`
	CycleTimeoutSeconds  int            `toml:"cycle_timeout_seconds"`
	BatchSizePerCycle    int            `toml:"batch_size_per_cycle"`
	StaleClaimTTLSeconds int            `toml:"stale_claim_ttl_seconds"`
	MaxAttempts          int            `toml:"max_attempts"`
	StageConcurrency     map[string]int `toml:"stage_concurrency"`
}

// Transform contains the size-tier thresholds and audio compression settings.
type Transform struct {
	DirectProcessLimitBytes int64  `toml:"direct_process_limit_bytes"`
	CompressCeilingBytes    int64  `toml:"compress_ceiling_bytes"`
	AudioBitrateKbps        int    `toml:"audio_bitrate_kbps"`
	AudioSampleRateHz       int    `toml:"audio_sample_rate_hz"`
	FFmpegBinary            string `toml:"ffmpeg_binary"`
}

// Memory contains the backpressure controller settings.
type Memory struct {
	SoftThresholdPercent   int   `toml:"soft_threshold_percent"`
	LimitBytes             int64 `toml:"limit_bytes"`
	PollIntervalSeconds    int   `toml:"poll_interval_seconds"`
	MaxWaitSeconds         int   `toml:"max_wait_seconds"`
	MaxConcurrentDownloads int   `toml:"max_concurrent_downloads"`
}

// Podscan contains configuration for the podcast discovery/enrichment API.
type Podscan struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Transcriber contains configuration for the remote transcription service.
type Transcriber struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LLM contains shared chat-completion connection settings used by the
// description, vetting, and pitch stages.
type LLM struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Vetting contains thresholds for the vetting stage.
type Vetting struct {
	MinScore float64 `toml:"min_score"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Errors         bool   `toml:"errors"`
	QueueDrained   bool   `toml:"queue_drained"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for pitchpipe.
//
// Configuration sections by subsystem:
//   - Paths: staging and log directories
//   - Workflow: scheduler cadence, batch size, claim TTL, retry budget
//   - Transform: size tiers and audio compression parameters
//   - Memory: backpressure thresholds and the download admission slot
//   - Podscan: discovery/enrichment API
//   - Transcriber: remote transcription service
//   - LLM: shared chat-completion settings for AI stages
//   - Vetting: stage thresholds
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Workflow      Workflow      `toml:"workflow"`
	Transform     Transform     `toml:"transform"`
	Memory        Memory        `toml:"memory"`
	Podscan       Podscan       `toml:"podscan"`
	Transcriber   Transcriber   `toml:"transcriber"`
	LLM           LLM           `toml:"llm"`
	Vetting       Vetting       `toml:"vetting"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/pitchpipe/config.toml")
}

// Load locates, parses, and validates a configuration file. Environment
// overrides are applied after file decode. The returned config has all path
// fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(os.Getenv); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("pitchpipe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StageConcurrencyFor returns the configured concurrency for a stage name,
// defaulting to 1 when unset.
func (c *Config) StageConcurrencyFor(stage string) int {
	if v, ok := c.Workflow.StageConcurrency[stage]; ok && v > 0 {
		return v
	}
	return 1
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
