package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"pitchpipe/internal/config"
	"pitchpipe/internal/notifications"
)

type capture struct {
	mu       sync.Mutex
	title    string
	message  string
	tags     string
	priority string
	hits     int
}

func newCaptureServer(t *testing.T) (*httptest.Server, *capture) {
	t.Helper()
	cap := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		cap.mu.Lock()
		cap.title = r.Header.Get("Title")
		cap.message = string(body)
		cap.tags = r.Header.Get("Tags")
		cap.priority = r.Header.Get("Priority")
		cap.hits++
		cap.mu.Unlock()
	}))
	t.Cleanup(srv.Close)
	return srv, cap
}

func serviceFor(t *testing.T, endpoint string) notifications.Service {
	t.Helper()
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = endpoint
	cfg.Notifications.Errors = true
	cfg.Notifications.QueueDrained = true
	return notifications.NewService(&cfg)
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyPitchReady(context.Background(), "Example Show", "camp-1"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNotifyPitchReadyFormatsPayload(t *testing.T) {
	srv, cap := newCaptureServer(t)
	svc := serviceFor(t, srv.URL)

	if err := svc.NotifyPitchReady(context.Background(), "The Deep Dive", "camp-42"); err != nil {
		t.Fatalf("NotifyPitchReady: %v", err)
	}
	if cap.title != "Pitchpipe - Pitch Ready" {
		t.Fatalf("unexpected title %q", cap.title)
	}
	if cap.message != "Pitch drafted for The Deep Dive (campaign camp-42)" {
		t.Fatalf("unexpected message %q", cap.message)
	}
	if cap.tags != "pitchpipe,pitch,ready" {
		t.Fatalf("unexpected tags %q", cap.tags)
	}
	if cap.priority != "high" {
		t.Fatalf("unexpected priority %q", cap.priority)
	}
}

func TestNotifyItemFailedRespectsToggle(t *testing.T) {
	srv, cap := newCaptureServer(t)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.Errors = false
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyItemFailed(context.Background(), "Show", "vetting", errors.New("boom")); err != nil {
		t.Fatalf("NotifyItemFailed: %v", err)
	}
	if cap.hits != 0 {
		t.Fatal("errors toggle off must suppress delivery")
	}
}

func TestNotifyQueueDrainedMessages(t *testing.T) {
	srv, cap := newCaptureServer(t)
	svc := serviceFor(t, srv.URL)

	if err := svc.NotifyQueueDrained(context.Background(), 7, 0, 90*time.Second); err != nil {
		t.Fatalf("NotifyQueueDrained: %v", err)
	}
	if cap.message != "Pipeline drained: 7 items processed in 1m30s" {
		t.Fatalf("unexpected message %q", cap.message)
	}

	if err := svc.NotifyQueueDrained(context.Background(), 5, 2, time.Minute); err != nil {
		t.Fatalf("NotifyQueueDrained: %v", err)
	}
	if cap.message != "Pipeline drained: 5 succeeded, 2 failed in 1m0s" {
		t.Fatalf("unexpected message %q", cap.message)
	}
}

func TestSendSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc := serviceFor(t, srv.URL)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error from non-2xx response")
	}
}
