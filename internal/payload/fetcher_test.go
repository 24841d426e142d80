package payload_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"pitchpipe/internal/payload"
	"pitchpipe/internal/services"
	"pitchpipe/internal/testsupport"
)

func TestFetchStreamsToStaging(t *testing.T) {
	body := bytes.Repeat([]byte{0x51}, 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t)
	fetcher := payload.NewFetcher(cfg, nil)

	desc, err := fetcher.Fetch(context.Background(), srv.URL+"/feed/episode-9.mp3", 9)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if desc.SizeBytes != int64(len(body)) {
		t.Fatalf("size %d, want %d", desc.SizeBytes, len(body))
	}
	if filepath.Ext(desc.Path) != ".mp3" {
		t.Fatalf("unexpected payload path %q", desc.Path)
	}
	got, err := os.ReadFile(desc.Path)
	if err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Fatal("payload content mismatch")
	}

	if err := fetcher.Remove(desc.Path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(desc.Path); !os.IsNotExist(err) {
		t.Fatal("payload not removed")
	}
	// Removing twice is fine.
	if err := fetcher.Remove(desc.Path); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

func TestFetchRejectsDeclaredOversize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "999999999")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Transform.CompressCeilingBytes = 1024
	fetcher := payload.NewFetcher(cfg, nil)

	_, err := fetcher.Fetch(context.Background(), srv.URL+"/big.mp3", 1)
	if !errors.Is(err, services.ErrOversized) {
		t.Fatalf("expected ErrOversized, got %v", err)
	}
}

func TestFetchCutsOffOversizedStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No Content-Length: chunked response that exceeds the ceiling.
		w.Header().Set("Transfer-Encoding", "chunked")
		chunk := bytes.Repeat([]byte{0x52}, 512)
		for i := 0; i < 10; i++ {
			_, _ = w.Write(chunk)
		}
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Transform.CompressCeilingBytes = 1024
	fetcher := payload.NewFetcher(cfg, nil)

	_, err := fetcher.Fetch(context.Background(), srv.URL+"/liar.mp3", 2)
	if !errors.Is(err, services.ErrOversized) {
		t.Fatalf("expected ErrOversized, got %v", err)
	}

	// The partial download must not linger in staging.
	entries, err := os.ReadDir(filepath.Join(cfg.Paths.StagingDir, "payloads"))
	if err != nil {
		t.Fatalf("read staging: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty staging dir, found %d entries", len(entries))
	}
}

func TestFetchClassifiesStatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, services.ErrPermanent},
		{"gone", http.StatusGone, services.ErrPermanent},
		{"rate limited", http.StatusTooManyRequests, services.ErrRateLimited},
		{"server error", http.StatusInternalServerError, services.ErrTransient},
		{"bad gateway", http.StatusBadGateway, services.ErrTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			cfg := testsupport.NewConfig(t)
			fetcher := payload.NewFetcher(cfg, nil)
			_, err := fetcher.Fetch(context.Background(), srv.URL+"/ep.mp3", 3)
			if !errors.Is(err, tc.want) {
				t.Fatalf("status %d: expected %v, got %v", tc.status, tc.want, err)
			}
		})
	}
}

func TestFetchValidatesURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fetcher := payload.NewFetcher(cfg, nil)
	_, err := fetcher.Fetch(context.Background(), "  ", 4)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
