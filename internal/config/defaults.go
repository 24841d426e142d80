package config

const (
	defaultStagingDir = "~/.local/share/pitchpipe/staging"
	defaultLogDir     = "~/.local/share/pitchpipe/logs"

	defaultPollIntervalSeconds  = 30
	defaultErrorRetrySeconds    = 10
	defaultCycleTimeoutSeconds  = 2700
	defaultBatchSizePerCycle    = 20
	defaultStaleClaimTTLSeconds = 3600
	defaultMaxAttempts          = 3

	// 500 MB / 2 GB size tiers for podcast episode audio.
	defaultDirectProcessLimitBytes = int64(500) * 1000 * 1000
	defaultCompressCeilingBytes    = int64(2000) * 1000 * 1000
	defaultAudioBitrateKbps        = 64
	defaultAudioSampleRateHz       = 16000
	defaultFFmpegBinary            = "ffmpeg"

	defaultMemorySoftThresholdPercent = 40
	defaultMemoryPollIntervalSeconds  = 5
	defaultMemoryMaxWaitSeconds       = 120
	defaultMaxConcurrentDownloads     = 1

	defaultPodscanBaseURL        = "https://podscan.fm/api/v1"
	defaultPodscanTimeoutSeconds = 60

	defaultTranscriberBaseURL        = "https://api.parakeet.example/v1"
	defaultTranscriberModel          = "nova-2"
	defaultTranscriberTimeoutSeconds = 600

	defaultLLMBaseURL        = "https://openrouter.ai/api/v1"
	defaultLLMModel          = "google/gemini-3-flash-preview"
	defaultLLMTimeoutSeconds = 120

	defaultVettingMinScore = 0.6

	defaultNotifyRequestTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Workflow: Workflow{
			PollIntervalSeconds:  defaultPollIntervalSeconds,
			ErrorRetrySeconds:    defaultErrorRetrySeconds,
			CycleTimeoutSeconds:  defaultCycleTimeoutSeconds,
			BatchSizePerCycle:    defaultBatchSizePerCycle,
			StaleClaimTTLSeconds: defaultStaleClaimTTLSeconds,
			MaxAttempts:          defaultMaxAttempts,
			StageConcurrency: map[string]int{
				"enrichment":    1,
				"transcription": 2,
				"description":   2,
				"vetting":       1,
				"match":         1,
				"pitch":         2,
			},
		},
		Transform: Transform{
			DirectProcessLimitBytes: defaultDirectProcessLimitBytes,
			CompressCeilingBytes:    defaultCompressCeilingBytes,
			AudioBitrateKbps:        defaultAudioBitrateKbps,
			AudioSampleRateHz:       defaultAudioSampleRateHz,
			FFmpegBinary:            defaultFFmpegBinary,
		},
		Memory: Memory{
			SoftThresholdPercent:   defaultMemorySoftThresholdPercent,
			PollIntervalSeconds:    defaultMemoryPollIntervalSeconds,
			MaxWaitSeconds:         defaultMemoryMaxWaitSeconds,
			MaxConcurrentDownloads: defaultMaxConcurrentDownloads,
		},
		Podscan: Podscan{
			BaseURL:        defaultPodscanBaseURL,
			TimeoutSeconds: defaultPodscanTimeoutSeconds,
		},
		Transcriber: Transcriber{
			BaseURL:        defaultTranscriberBaseURL,
			Model:          defaultTranscriberModel,
			TimeoutSeconds: defaultTranscriberTimeoutSeconds,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Vetting: Vetting{
			MinScore: defaultVettingMinScore,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Errors:         true,
			QueueDrained:   true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
