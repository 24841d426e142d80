package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateTransform(); err != nil {
		return err
	}
	if err := c.validateMemory(); err != nil {
		return err
	}
	if err := c.validateVetting(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.poll_interval_seconds":   c.Workflow.PollIntervalSeconds,
		"workflow.error_retry_seconds":     c.Workflow.ErrorRetrySeconds,
		"workflow.cycle_timeout_seconds":   c.Workflow.CycleTimeoutSeconds,
		"workflow.batch_size_per_cycle":    c.Workflow.BatchSizePerCycle,
		"workflow.stale_claim_ttl_seconds": c.Workflow.StaleClaimTTLSeconds,
		"workflow.max_attempts":            c.Workflow.MaxAttempts,
	}); err != nil {
		return err
	}
	for stage, value := range c.Workflow.StageConcurrency {
		if value <= 0 {
			return fmt.Errorf("workflow.stage_concurrency.%s must be positive", stage)
		}
	}
	return nil
}

func (c *Config) validateTransform() error {
	if c.Transform.DirectProcessLimitBytes <= 0 {
		return errors.New("transform.direct_process_limit_bytes must be positive")
	}
	if c.Transform.CompressCeilingBytes <= c.Transform.DirectProcessLimitBytes {
		return errors.New("transform.compress_ceiling_bytes must be greater than transform.direct_process_limit_bytes")
	}
	if c.Transform.AudioBitrateKbps <= 0 {
		return errors.New("transform.audio_bitrate_kbps must be positive")
	}
	if c.Transform.AudioSampleRateHz <= 0 {
		return errors.New("transform.audio_sample_rate_hz must be positive")
	}
	return nil
}

func (c *Config) validateMemory() error {
	if c.Memory.SoftThresholdPercent <= 0 || c.Memory.SoftThresholdPercent >= 100 {
		return errors.New("memory.soft_threshold_percent must be between 1 and 99")
	}
	if c.Memory.LimitBytes < 0 {
		return errors.New("memory.limit_bytes must be >= 0 (0 uses total system memory)")
	}
	if err := ensurePositiveMap(map[string]int{
		"memory.poll_interval_seconds":    c.Memory.PollIntervalSeconds,
		"memory.max_wait_seconds":         c.Memory.MaxWaitSeconds,
		"memory.max_concurrent_downloads": c.Memory.MaxConcurrentDownloads,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateVetting() error {
	if c.Vetting.MinScore < 0 || c.Vetting.MinScore > 1 {
		return errors.New("vetting.min_score must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
