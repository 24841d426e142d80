// Package memstat watches this process's resident memory and applies
// backpressure before heavyweight work starts. Stages consult the monitor
// ahead of downloads and transcodes; when usage sits above the soft threshold
// they wait for it to clear and defer the item if it does not.
package memstat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"pitchpipe/internal/config"
	"pitchpipe/internal/logging"
)

// ErrWaitTimeout reports that memory pressure did not clear within the
// configured wait window. Callers defer the item rather than failing it.
var ErrWaitTimeout = errors.New("memory pressure did not clear in time")

// Sampler returns the current resident set size in bytes.
type Sampler func() (uint64, error)

// Usage is one observation of process memory against the configured limit.
type Usage struct {
	RSSBytes   uint64
	LimitBytes uint64
	Percent    float64
}

// Monitor evaluates process memory against a soft threshold.
type Monitor struct {
	limitBytes   uint64
	softPercent  int
	pollInterval time.Duration
	maxWait      time.Duration
	sample       Sampler
	logger       *slog.Logger
}

// NewMonitor builds a monitor from configuration. A zero memory limit falls
// back to total system RAM.
func NewMonitor(cfg *config.Config, logger *slog.Logger) (*Monitor, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	limit := uint64(cfg.Memory.LimitBytes)
	if limit == 0 {
		total, err := systemTotalRAM()
		if err != nil {
			return nil, fmt.Errorf("detect system memory: %w", err)
		}
		limit = total
	}

	return &Monitor{
		limitBytes:   limit,
		softPercent:  cfg.Memory.SoftThresholdPercent,
		pollInterval: time.Duration(cfg.Memory.PollIntervalSeconds) * time.Second,
		maxWait:      time.Duration(cfg.Memory.MaxWaitSeconds) * time.Second,
		sample:       readProcessRSS,
		logger:       logging.NewComponentLogger(logger, "memstat"),
	}, nil
}

// SetSampler replaces the RSS source. Tests use this to script pressure.
func (m *Monitor) SetSampler(sample Sampler) {
	if sample != nil {
		m.sample = sample
	}
}

// LimitBytes returns the memory ceiling the monitor measures against.
func (m *Monitor) LimitBytes() uint64 {
	return m.limitBytes
}

// Usage samples current memory use.
func (m *Monitor) Usage() (Usage, error) {
	rss, err := m.sample()
	if err != nil {
		return Usage{}, fmt.Errorf("sample rss: %w", err)
	}
	usage := Usage{RSSBytes: rss, LimitBytes: m.limitBytes}
	if m.limitBytes > 0 {
		usage.Percent = float64(rss) / float64(m.limitBytes) * 100
	}
	return usage, nil
}

// ShouldPause reports whether usage sits above the soft threshold.
func (m *Monitor) ShouldPause() (bool, Usage, error) {
	usage, err := m.Usage()
	if err != nil {
		return false, Usage{}, err
	}
	return usage.Percent > float64(m.softPercent), usage, nil
}

// WaitUntilBelow blocks until memory drops under the soft threshold, polling
// at the configured interval. The first pressured observation triggers a GC
// and returns retained pages to the OS so the wait measures real demand, not
// lazy reclamation. Returns ErrWaitTimeout once the wait window is spent.
func (m *Monitor) WaitUntilBelow(ctx context.Context) error {
	pause, usage, err := m.ShouldPause()
	if err != nil {
		return err
	}
	if !pause {
		return nil
	}

	m.logger.Info("memory pressure, pausing intake",
		logging.Uint64("rss_bytes", usage.RSSBytes),
		logging.Uint64("limit_bytes", usage.LimitBytes),
		logging.Float64("percent", usage.Percent),
	)
	runtime.GC()
	debug.FreeOSMemory()

	deadline := time.Now().Add(m.maxWait)
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		pause, usage, err = m.ShouldPause()
		if err != nil {
			return err
		}
		if !pause {
			m.logger.Info("memory pressure cleared",
				logging.Uint64("rss_bytes", usage.RSSBytes),
				logging.Float64("percent", usage.Percent),
			)
			return nil
		}
		if time.Now().After(deadline) {
			m.logger.Warn("memory pressure persisted past wait window",
				logging.Uint64("rss_bytes", usage.RSSBytes),
				logging.Float64("percent", usage.Percent),
			)
			return ErrWaitTimeout
		}
	}
}

func systemTotalRAM() (uint64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, err
	}
	return uint64(info.Totalram) * uint64(info.Unit), nil
}

// readProcessRSS reads resident pages from /proc/self/statm.
func readProcessRSS() (uint64, error) {
	raw, err := os.ReadFile("/proc/self/statm")
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(string(raw))
	if len(fields) < 2 {
		return 0, fmt.Errorf("malformed statm %q", strings.TrimSpace(string(raw)))
	}
	pages, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse resident pages: %w", err)
	}
	return pages * uint64(os.Getpagesize()), nil
}
