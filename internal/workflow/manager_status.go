package workflow

import (
	"context"
	"time"

	"pitchpipe/internal/logging"
	"pitchpipe/internal/queue"
	"pitchpipe/internal/stage"
)

// StatusSummary represents lightweight pipeline diagnostics.
type StatusSummary struct {
	Running     bool
	ClaimantID  string
	LastError   string
	LastItem    *queue.Item
	QueueStats  map[queue.Stage]map[queue.Status]int
	StageHealth map[string]stage.Health
}

// Status returns the latest pipeline information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastItem := m.lastItem
	handlers := make(map[queue.Stage]stage.Handler, len(m.handlers))
	for stg, handler := range m.handlers {
		handlers[stg] = handler
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read ledger stats", logging.Error(err))
	}

	health := make(map[string]stage.Health, len(handlers))
	for stg, handler := range handlers {
		if handler == nil {
			continue
		}
		health[string(stg)] = handler.HealthCheck(ctx)
	}

	summary := StatusSummary{
		Running:     running,
		ClaimantID:  m.claimantID,
		QueueStats:  stats,
		StageHealth: health,
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastItem != nil {
		cp := *lastItem
		summary.LastItem = &cp
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastItem(item *queue.Item) {
	m.mu.Lock()
	if item != nil {
		cp := *item
		m.lastItem = &cp
	} else {
		m.lastItem = nil
	}
	m.mu.Unlock()
}

func (m *Manager) markDrainActive() {
	m.drainMu.Lock()
	if !m.drainActive {
		m.drainActive = true
		m.drainStart = time.Now()
		m.processed = 0
		m.failed = 0
	}
	m.drainMu.Unlock()
}

func (m *Manager) countProcessed() {
	m.drainMu.Lock()
	m.processed++
	m.drainMu.Unlock()
}

func (m *Manager) countFailed() {
	m.drainMu.Lock()
	m.failed++
	m.drainMu.Unlock()
}

// maybeNotifyDrained fires the queue-drained notification once no stage has
// pending or claimed work left after a burst of processing.
func (m *Manager) maybeNotifyDrained(ctx context.Context) {
	m.drainMu.Lock()
	active := m.drainActive
	m.drainMu.Unlock()
	if !active {
		return
	}

	health, err := m.store.Health(ctx)
	if err != nil {
		m.logger.Warn("failed to read ledger health", logging.Error(err))
		return
	}
	if health.Pending > 0 || health.Claimed > 0 {
		return
	}

	m.drainMu.Lock()
	if !m.drainActive {
		m.drainMu.Unlock()
		return
	}
	m.drainActive = false
	processed := m.processed
	failed := m.failed
	elapsed := time.Since(m.drainStart)
	m.drainMu.Unlock()

	if err := m.notifier.NotifyQueueDrained(ctx, processed, failed, elapsed); err != nil {
		m.logger.Warn("queue-drained notification failed", logging.Error(err))
	}
}
