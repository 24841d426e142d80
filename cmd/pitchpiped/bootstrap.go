package main

import (
	"fmt"
	"log/slog"

	"pitchpipe/internal/config"
	"pitchpipe/internal/description"
	"pitchpipe/internal/enrichment"
	"pitchpipe/internal/matching"
	"pitchpipe/internal/pitch"
	"pitchpipe/internal/queue"
	"pitchpipe/internal/transcription"
	"pitchpipe/internal/vetting"
	"pitchpipe/internal/workflow"
)

func registerStages(manager *workflow.Manager, cfg *config.Config, logger *slog.Logger) error {
	transcriptionStage, err := transcription.NewStage(cfg, logger)
	if err != nil {
		return fmt.Errorf("build transcription stage: %w", err)
	}

	manager.Register(queue.StageEnrichment, enrichment.NewEnricher(cfg, logger))
	manager.Register(queue.StageTranscription, transcriptionStage)
	manager.Register(queue.StageDescription, description.NewStage(cfg, logger))
	manager.Register(queue.StageVetting, vetting.NewStage(cfg, logger))
	manager.Register(queue.StageMatch, matching.NewStage(cfg, logger))
	manager.Register(queue.StagePitch, pitch.NewStage(cfg, logger))
	return nil
}
