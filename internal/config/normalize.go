package config

import "strings"

// normalize expands user paths and trims string fields in place.
func (c *Config) normalize() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(strings.TrimSpace(c.Paths.StagingDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return err
	}

	c.Transform.FFmpegBinary = strings.TrimSpace(c.Transform.FFmpegBinary)
	if c.Transform.FFmpegBinary == "" {
		c.Transform.FFmpegBinary = defaultFFmpegBinary
	}

	c.Podscan.BaseURL = strings.TrimRight(strings.TrimSpace(c.Podscan.BaseURL), "/")
	c.Podscan.APIKey = strings.TrimSpace(c.Podscan.APIKey)
	c.Transcriber.BaseURL = strings.TrimRight(strings.TrimSpace(c.Transcriber.BaseURL), "/")
	c.Transcriber.APIKey = strings.TrimSpace(c.Transcriber.APIKey)
	c.Transcriber.Model = strings.TrimSpace(c.Transcriber.Model)
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)

	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	if c.Workflow.StageConcurrency == nil {
		c.Workflow.StageConcurrency = Default().Workflow.StageConcurrency
	}

	return nil
}
