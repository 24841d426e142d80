// Package transform decides how an episode's audio payload is prepared for
// transcription based on its size, and runs the ffmpeg compression pass for
// payloads in the middle tier.
package transform

import (
	"fmt"

	"pitchpipe/internal/config"
)

// Action is the size-tier decision for one payload.
type Action string

const (
	// ActionDirect hands the file to transcription as-is.
	ActionDirect Action = "direct"
	// ActionCompress re-encodes speech-optimized audio before transcription.
	ActionCompress Action = "compress"
	// ActionReject refuses payloads above the hard ceiling.
	ActionReject Action = "reject"
)

// Plan is the outcome of the tier decision for a concrete payload size.
type Plan struct {
	Action    Action
	SizeBytes int64
}

// Decide maps an actual payload size onto the processing tier. Declared sizes
// from feeds are advisory only; callers must measure the downloaded file and
// decide on that.
func Decide(sizeBytes int64, cfg config.Transform) (Plan, error) {
	if sizeBytes <= 0 {
		return Plan{}, fmt.Errorf("payload size %d is not measurable", sizeBytes)
	}
	plan := Plan{SizeBytes: sizeBytes}
	switch {
	case sizeBytes <= cfg.DirectProcessLimitBytes:
		plan.Action = ActionDirect
	case sizeBytes <= cfg.CompressCeilingBytes:
		plan.Action = ActionCompress
	default:
		plan.Action = ActionReject
	}
	return plan, nil
}
