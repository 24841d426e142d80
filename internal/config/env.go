package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Recognized environment overrides, applied after file decode. Stage
// concurrency uses one variable per stage: STAGE_CONCURRENCY_<NAME>.
const (
	envDirectProcessLimit   = "DIRECT_PROCESS_LIMIT_BYTES"
	envCompressCeiling      = "COMPRESS_CEILING_BYTES"
	envStaleClaimTTL        = "STALE_CLAIM_TTL_SECONDS"
	envMaxDownloads         = "MAX_CONCURRENT_DOWNLOADS"
	envMemorySoftThreshold  = "MEMORY_SOFT_THRESHOLD_PERCENT"
	envBatchSize            = "BATCH_SIZE_PER_CYCLE"
	envStageConcurrencyBase = "STAGE_CONCURRENCY_"
)

var stageConcurrencyNames = []string{"enrichment", "transcription", "description", "vetting", "match", "pitch"}

func (c *Config) applyEnvOverrides(getenv func(string) string) error {
	if err := overrideInt64(getenv, envDirectProcessLimit, &c.Transform.DirectProcessLimitBytes); err != nil {
		return err
	}
	if err := overrideInt64(getenv, envCompressCeiling, &c.Transform.CompressCeilingBytes); err != nil {
		return err
	}
	if err := overrideInt(getenv, envStaleClaimTTL, &c.Workflow.StaleClaimTTLSeconds); err != nil {
		return err
	}
	if err := overrideInt(getenv, envMaxDownloads, &c.Memory.MaxConcurrentDownloads); err != nil {
		return err
	}
	if err := overrideInt(getenv, envMemorySoftThreshold, &c.Memory.SoftThresholdPercent); err != nil {
		return err
	}
	if err := overrideInt(getenv, envBatchSize, &c.Workflow.BatchSizePerCycle); err != nil {
		return err
	}

	for _, name := range stageConcurrencyNames {
		key := envStageConcurrencyBase + strings.ToUpper(name)
		raw := strings.TrimSpace(getenv(key))
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", key, raw)
		}
		if c.Workflow.StageConcurrency == nil {
			c.Workflow.StageConcurrency = make(map[string]int)
		}
		c.Workflow.StageConcurrency[name] = value
	}

	return nil
}

func overrideInt64(getenv func(string) string, key string, target *int64) error {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	*target = value
	return nil
}

func overrideInt(getenv func(string) string, key string, target *int) error {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	*target = value
	return nil
}
