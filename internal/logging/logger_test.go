package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"pitchpipe/internal/logging"
	"pitchpipe/internal/services"
)

func TestNewJSONLoggerEmitsFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}

	logger.Info("claim acquired", logging.String(logging.FieldStage, "vetting"), logging.Int64(logging.FieldItemID, 7))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if record["stage"] != "vetting" {
		t.Fatalf("expected stage field, got %v", record)
	}
	if record["item_id"] != float64(7) {
		t.Fatalf("expected item_id field, got %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextStampsFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}

	ctx := services.WithItemID(context.Background(), 42)
	ctx = services.WithStage(ctx, "transcription")
	ctx = services.WithClaimant(ctx, "host-1:123")

	logging.WithContext(ctx, logger).Info("stage started")

	line := buf.String()
	for _, want := range []string{`"item_id":42`, `"stage":"transcription"`, `"claimant":"host-1:123"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %s", want, line)
		}
	}
}

func TestNopLoggerStaysQuiet(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("should be discarded")
	logger = logging.NewComponentLogger(nil, "scheduler")
	logger.Info("also discarded")
}
