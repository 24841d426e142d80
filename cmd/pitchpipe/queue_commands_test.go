package main

import (
	"strings"
	"testing"
)

func TestQueueAddAndList(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, configPath, "queue", "add",
		"--campaign", "camp-1",
		"--media", "media-1",
		"--title", "The Example Show",
		"--audio-url", "https://example.test/audio.mp3",
		"--size", "1048576",
	)
	if err != nil {
		t.Fatalf("queue add: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Queued item") {
		t.Fatalf("unexpected add output: %s", out)
	}

	out, err = runCommand(t, configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "The Example Show") {
		t.Fatalf("list output missing title: %s", out)
	}
	if !strings.Contains(out, "enrichment/pending") {
		t.Fatalf("list output missing stage column: %s", out)
	}
}

func TestQueueAddRequiresFlags(t *testing.T) {
	configPath := writeTestConfig(t)
	if _, err := runCommand(t, configPath, "queue", "add", "--campaign", "camp-1"); err == nil {
		t.Fatal("expected error without media and audio url")
	}
}

func TestQueueListEmpty(t *testing.T) {
	configPath := writeTestConfig(t)
	out, err := runCommand(t, configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(out, "Queue is empty") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestQueueClear(t *testing.T) {
	configPath := writeTestConfig(t)
	if _, err := runCommand(t, configPath, "queue", "add",
		"--campaign", "camp-1", "--media", "media-1",
		"--audio-url", "https://example.test/audio.mp3"); err != nil {
		t.Fatalf("queue add: %v", err)
	}

	out, err := runCommand(t, configPath, "queue", "clear")
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	if !strings.Contains(out, "Cleared 1 queue items") {
		t.Fatalf("unexpected clear output: %s", out)
	}
}

func TestQueueClearRejectsConflictingFlags(t *testing.T) {
	configPath := writeTestConfig(t)
	if _, err := runCommand(t, configPath, "queue", "clear", "--completed", "--failed"); err == nil {
		t.Fatal("expected error for conflicting flags")
	}
}

func TestQueueRetrySkipsHealthyItem(t *testing.T) {
	configPath := writeTestConfig(t)
	if _, err := runCommand(t, configPath, "queue", "add",
		"--campaign", "camp-1", "--media", "media-1",
		"--audio-url", "https://example.test/audio.mp3"); err != nil {
		t.Fatalf("queue add: %v", err)
	}

	out, err := runCommand(t, configPath, "queue", "retry", "1")
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	if !strings.Contains(out, "has no failed stages") {
		t.Fatalf("unexpected retry output: %s", out)
	}

	out, err = runCommand(t, configPath, "queue", "retry", "99")
	if err != nil {
		t.Fatalf("queue retry missing: %v", err)
	}
	if !strings.Contains(out, "Item 99 not found") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestQueueHealth(t *testing.T) {
	configPath := writeTestConfig(t)
	if _, err := runCommand(t, configPath, "queue", "add",
		"--campaign", "camp-1", "--media", "media-1",
		"--audio-url", "https://example.test/audio.mp3"); err != nil {
		t.Fatalf("queue add: %v", err)
	}

	out, err := runCommand(t, configPath, "queue", "health")
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	for _, want := range []string{"Total: 1", "Pending: 1", "Readable: yes", "Integrity: yes"} {
		if !strings.Contains(out, want) {
			t.Fatalf("health output missing %q: %s", want, out)
		}
	}
}

func TestShowCommand(t *testing.T) {
	configPath := writeTestConfig(t)
	if _, err := runCommand(t, configPath, "queue", "add",
		"--campaign", "camp-1", "--media", "media-1",
		"--title", "The Example Show",
		"--audio-url", "https://example.test/audio.mp3"); err != nil {
		t.Fatalf("queue add: %v", err)
	}

	out, err := runCommand(t, configPath, "show", "1")
	if err != nil {
		t.Fatalf("show: %v\n%s", err, out)
	}
	for _, want := range []string{"Item 1", "camp-1", "The Example Show", "enrichment", "pitch"} {
		if !strings.Contains(out, want) {
			t.Fatalf("show output missing %q: %s", want, out)
		}
	}
}
