package transform_test

import (
	"testing"

	"pitchpipe/internal/config"
	"pitchpipe/internal/transform"
)

func TestDecideTierBoundaries(t *testing.T) {
	cfg := config.Transform{
		DirectProcessLimitBytes: 500_000_000,
		CompressCeilingBytes:    2_000_000_000,
	}

	cases := []struct {
		name string
		size int64
		want transform.Action
	}{
		{"well under limit", 10_000_000, transform.ActionDirect},
		{"just under direct limit", cfg.DirectProcessLimitBytes - 1, transform.ActionDirect},
		{"exactly direct limit", cfg.DirectProcessLimitBytes, transform.ActionDirect},
		{"just over direct limit", cfg.DirectProcessLimitBytes + 1, transform.ActionCompress},
		{"mid tier", 1_200_000_000, transform.ActionCompress},
		{"exactly ceiling", cfg.CompressCeilingBytes, transform.ActionCompress},
		{"just over ceiling", cfg.CompressCeilingBytes + 1, transform.ActionReject},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := transform.Decide(tc.size, cfg)
			if err != nil {
				t.Fatalf("Decide(%d): %v", tc.size, err)
			}
			if plan.Action != tc.want {
				t.Fatalf("Decide(%d) = %s, want %s", tc.size, plan.Action, tc.want)
			}
			if plan.SizeBytes != tc.size {
				t.Fatalf("plan size %d, want %d", plan.SizeBytes, tc.size)
			}
		})
	}
}

func TestDecideRejectsUnmeasurableSize(t *testing.T) {
	cfg := config.Transform{DirectProcessLimitBytes: 10, CompressCeilingBytes: 20}
	if _, err := transform.Decide(0, cfg); err == nil {
		t.Fatal("expected error for zero size")
	}
	if _, err := transform.Decide(-1, cfg); err == nil {
		t.Fatal("expected error for negative size")
	}
}
