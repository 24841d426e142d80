package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ClassifyHTTPStatus maps a response status onto a wrapped sentinel error.
// Success statuses return nil. The body excerpt, when provided, is folded
// into the message so upstream rejections are diagnosable from the ledger.
func ClassifyHTTPStatus(op string, status int, body string) error {
	if status >= 200 && status < 300 {
		return nil
	}
	marker := ErrPermanent
	switch {
	case status == http.StatusTooManyRequests:
		marker = ErrRateLimited
	case status == http.StatusRequestTimeout, status >= 500:
		marker = ErrTransient
	}
	if excerpt := bodyExcerpt(body); excerpt != "" {
		return fmt.Errorf("%w: %s: http %d: %s", marker, op, status, excerpt)
	}
	return fmt.Errorf("%w: %s: http %d", marker, op, status)
}

// ClassifyTransport maps a transport-level failure (connection refused, DNS,
// client timeout) onto a wrapped sentinel error. Context cancellation passes
// through unwrapped so the caller can tell a shutdown from an upstream fault.
func ClassifyTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var urlErr *url.Error
	if (errors.As(err, &urlErr) && urlErr.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrTransient, op, err)
}

func bodyExcerpt(body string) string {
	trimmed := strings.Join(strings.Fields(body), " ")
	const limit = 160
	runes := []rune(trimmed)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return trimmed
}
