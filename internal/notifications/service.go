package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pitchpipe/internal/config"
)

const userAgent = "Pitchpipe/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyPitchReady(ctx context.Context, mediaTitle, campaignID string) error
	NotifyItemFailed(ctx context.Context, mediaTitle, stageName string, err error) error
	NotifyQueueDrained(ctx context.Context, processed, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		errors:       cfg.Notifications.Errors,
		queueDrained: cfg.Notifications.QueueDrained,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	errors       bool
	queueDrained bool
}

func (n *ntfyService) NotifyPitchReady(ctx context.Context, mediaTitle, campaignID string) error {
	mediaTitle = strings.TrimSpace(mediaTitle)
	data := payload{
		title:    "Pitchpipe - Pitch Ready",
		message:  fmt.Sprintf("Pitch drafted for %s (campaign %s)", mediaTitle, campaignID),
		tags:     []string{"pitchpipe", "pitch", "ready"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyItemFailed(ctx context.Context, mediaTitle, stageName string, err error) error {
	if !n.errors {
		return nil
	}
	detail := "unknown"
	if err != nil {
		detail = strings.TrimSpace(err.Error())
	}
	data := payload{
		title:    "Pitchpipe - Item Failed",
		message:  fmt.Sprintf("%s failed at %s: %s", strings.TrimSpace(mediaTitle), stageName, detail),
		tags:     []string{"pitchpipe", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueDrained(ctx context.Context, processed, failed int, duration time.Duration) error {
	if !n.queueDrained {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var title, message string
	if failed == 0 {
		title = "Pitchpipe - Queue Drained"
		message = fmt.Sprintf("Pipeline drained: %d items processed in %s", processed, duration)
	} else {
		title = "Pitchpipe - Queue Drained (with errors)"
		message = fmt.Sprintf("Pipeline drained: %d succeeded, %d failed in %s", processed, failed, duration)
	}
	data := payload{
		title:   title,
		message: message,
		tags:    []string{"pitchpipe", "queue", "drained"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Pitchpipe - Error",
		message:  builder.String(),
		tags:     []string{"pitchpipe", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Pitchpipe - Test",
		message:  "Notification system test",
		tags:     []string{"pitchpipe", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyPitchReady(context.Context, string, string) error { return nil }

func (noopService) NotifyItemFailed(context.Context, string, string, error) error { return nil }

func (noopService) NotifyQueueDrained(context.Context, int, int, time.Duration) error { return nil }

func (noopService) NotifyError(context.Context, error, string) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
