package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"pitchpipe/internal/config"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Transform.DirectProcessLimitBytes != 500_000_000 {
		t.Fatalf("unexpected direct limit: %d", cfg.Transform.DirectProcessLimitBytes)
	}
	if cfg.Transform.CompressCeilingBytes != 2_000_000_000 {
		t.Fatalf("unexpected compress ceiling: %d", cfg.Transform.CompressCeilingBytes)
	}
	if cfg.Workflow.StaleClaimTTLSeconds != 3600 {
		t.Fatalf("unexpected stale TTL: %d", cfg.Workflow.StaleClaimTTLSeconds)
	}
}

func TestLoadParsesFileAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
staging_dir = "` + filepath.Join(dir, "staging") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[workflow]
batch_size_per_cycle = 5

[workflow.stage_concurrency]
transcription = 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatalf("expected config file to be found, resolved=%q exists=%v", resolved, exists)
	}
	if cfg.Workflow.BatchSizePerCycle != 5 {
		t.Fatalf("expected batch size 5, got %d", cfg.Workflow.BatchSizePerCycle)
	}
	if cfg.StageConcurrencyFor("transcription") != 3 {
		t.Fatalf("expected transcription concurrency 3, got %d", cfg.StageConcurrencyFor("transcription"))
	}
	// Unset stages keep their defaults.
	if cfg.StageConcurrencyFor("vetting") != 1 {
		t.Fatalf("expected vetting concurrency 1, got %d", cfg.StageConcurrencyFor("vetting"))
	}
}

func TestEnvOverridesApplyAfterFile(t *testing.T) {
	t.Setenv("DIRECT_PROCESS_LIMIT_BYTES", "100000")
	t.Setenv("COMPRESS_CEILING_BYTES", "200000")
	t.Setenv("STALE_CLAIM_TTL_SECONDS", "120")
	t.Setenv("BATCH_SIZE_PER_CYCLE", "7")
	t.Setenv("STAGE_CONCURRENCY_TRANSCRIPTION", "4")
	t.Setenv("MEMORY_SOFT_THRESHOLD_PERCENT", "55")
	t.Setenv("MAX_CONCURRENT_DOWNLOADS", "2")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Transform.DirectProcessLimitBytes != 100000 {
		t.Fatalf("env override not applied: %d", cfg.Transform.DirectProcessLimitBytes)
	}
	if cfg.Transform.CompressCeilingBytes != 200000 {
		t.Fatalf("env override not applied: %d", cfg.Transform.CompressCeilingBytes)
	}
	if cfg.Workflow.StaleClaimTTLSeconds != 120 {
		t.Fatalf("env override not applied: %d", cfg.Workflow.StaleClaimTTLSeconds)
	}
	if cfg.Workflow.BatchSizePerCycle != 7 {
		t.Fatalf("env override not applied: %d", cfg.Workflow.BatchSizePerCycle)
	}
	if cfg.StageConcurrencyFor("transcription") != 4 {
		t.Fatalf("env override not applied: %d", cfg.StageConcurrencyFor("transcription"))
	}
	if cfg.Memory.SoftThresholdPercent != 55 {
		t.Fatalf("env override not applied: %d", cfg.Memory.SoftThresholdPercent)
	}
	if cfg.Memory.MaxConcurrentDownloads != 2 {
		t.Fatalf("env override not applied: %d", cfg.Memory.MaxConcurrentDownloads)
	}
}

func TestEnvOverrideRejectsGarbage(t *testing.T) {
	t.Setenv("STALE_CLAIM_TTL_SECONDS", "soon")
	if _, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for non-integer env override")
	}
}

func TestValidateRejectsInvertedTiers(t *testing.T) {
	cfg := config.Default()
	cfg.Transform.CompressCeilingBytes = cfg.Transform.DirectProcessLimitBytes
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when ceiling <= direct limit")
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	cfg := config.Default()
	cfg.Memory.SoftThresholdPercent = 100
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for threshold out of range")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}
}
