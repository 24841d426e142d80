package enrichment_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pitchpipe/internal/enrichment"
	"pitchpipe/internal/logging"
	"pitchpipe/internal/queue"
	"pitchpipe/internal/services"
	"pitchpipe/internal/services/podscan"
	"pitchpipe/internal/testsupport"
)

func newEnricher(t *testing.T, baseURL string) *enrichment.Enricher {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Podscan.BaseURL = baseURL
	cfg.Podscan.APIKey = "test-key"
	client := podscan.NewClient(cfg.Podscan)
	return enrichment.NewEnricherWithClient(cfg, logging.NewNop(), client)
}

func TestExecuteStoresProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/media/pod-9" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"show_name": "The Deep Dive", "category": "technology"}`))
	}))
	defer server.Close()

	enricher := newEnricher(t, server.URL)
	item := &queue.Item{MediaID: "pod-9"}
	if err := enricher.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := enricher.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(item.EnrichmentJSON, "The Deep Dive") {
		t.Fatalf("enrichment JSON not persisted: %q", item.EnrichmentJSON)
	}
	if item.MediaTitle != "The Deep Dive" {
		t.Fatalf("empty media title should be backfilled, got %q", item.MediaTitle)
	}
}

func TestExecuteKeepsExistingTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"show_name": "Upstream Name"}`))
	}))
	defer server.Close()

	enricher := newEnricher(t, server.URL)
	item := &queue.Item{MediaID: "pod-9", MediaTitle: "Operator Title"}
	if err := enricher.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if item.MediaTitle != "Operator Title" {
		t.Fatalf("existing title should be kept, got %q", item.MediaTitle)
	}
}

func TestPrepareRejectsMissingMediaID(t *testing.T) {
	enricher := newEnricher(t, "http://example.test")
	err := enricher.Prepare(context.Background(), &queue.Item{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExecutePropagatesClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	enricher := newEnricher(t, server.URL)
	err := enricher.Execute(context.Background(), &queue.Item{MediaID: "pod-9"})
	if !errors.Is(err, services.ErrRateLimited) {
		t.Fatalf("expected rate-limited marker, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	enricher := newEnricher(t, "http://example.test")
	if health := enricher.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy, got %+v", health)
	}

	cfg := testsupport.NewConfig(t)
	cfg.Podscan.APIKey = ""
	bad := enrichment.NewEnricherWithClient(cfg, logging.NewNop(), podscan.NewClient(cfg.Podscan))
	if health := bad.HealthCheck(context.Background()); health.Ready {
		t.Fatal("missing api key should be unhealthy")
	}
}
