package preflight

import (
	"context"

	"pitchpipe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckPodscan(ctx, cfg.Podscan),
		CheckTranscriber(ctx, cfg.Transcriber),
		CheckLLM(ctx, cfg.LLM),
	}
	return results
}
