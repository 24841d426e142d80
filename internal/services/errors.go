package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers used to classify stage and external-call failures. The
// workflow layer maps these onto release outcomes, so every error a stage
// returns should be wrapped with exactly one of them.
var (
	// ErrValidation marks inputs that can never succeed without operator action.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or malformed configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrRateLimited marks an external service refusing work (HTTP 429 or similar).
	ErrRateLimited = errors.New("rate limited")
	// ErrTimeout marks an external call that exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrTransient marks failures expected to clear on their own (network, 5xx).
	ErrTransient = errors.New("transient failure")
	// ErrPermanent marks external rejections that retries cannot fix.
	ErrPermanent = errors.New("permanent failure")
	// ErrOversized marks payloads beyond the compress ceiling. Never retried.
	ErrOversized = errors.New("payload oversized")
	// ErrResourceBusy marks local resource exhaustion (memory pressure). The
	// item is deferred to a later cycle without consuming its retry budget.
	ErrResourceBusy = errors.New("resource busy")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later outcome classification. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether an error should consume the item's retry budget
// and be attempted again, as opposed to failing the item outright.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrPermanent),
		errors.Is(err, ErrOversized):
		return false
	default:
		return true
	}
}

// Deferrable reports whether an error represents local resource exhaustion
// rather than a problem with the item itself.
func Deferrable(err error) bool {
	return errors.Is(err, ErrResourceBusy)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
