package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pitchpipe/internal/logging"
	"pitchpipe/internal/queue"
)

// Start begins background processing: one scheduler loop per stage plus the
// stale-claim sweeper. It fails fast when any stage lacks a handler.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	for _, stg := range queue.Stages() {
		if m.handlers[stg] == nil {
			m.mu.Unlock()
			return fmt.Errorf("stage %s has no registered handler", stg)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.mu.Unlock()

	// Hand back claims left behind by this host's previous process before
	// any loop claims new work.
	released, err := m.store.ReleaseAllFor(runCtx, m.claimantID)
	if err != nil {
		m.logger.Warn("startup claim recovery failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "claim_recovery_failed"),
		)
	} else if released > 0 {
		m.logger.Info("recovered claims from previous process",
			logging.Int("released", released),
			logging.String(logging.FieldClaimant, m.claimantID),
		)
	}

	m.wg.Add(1)
	go m.runReclaimer(runCtx)

	for _, stg := range queue.Stages() {
		m.wg.Add(1)
		go m.runStageLoop(runCtx, stg)
	}
	return nil
}

// Stop terminates the scheduler loops and waits for every executing item to
// finish. Executions are never cancelled; stopping only prevents new claims.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// RunStageCycle claims and executes one batch for a stage and reports how
// many items were claimed. It returns when the batch finishes or the cycle
// deadline passes, whichever comes first; items still executing at the
// deadline finish in the background. The scheduler loops call this; it is
// also the entry point for one-shot processing.
func (m *Manager) RunStageCycle(ctx context.Context, stg queue.Stage) (int, error) {
	m.mu.RLock()
	handler := m.handlers[stg]
	m.mu.RUnlock()
	if handler == nil {
		return 0, fmt.Errorf("stage %s has no registered handler", stg)
	}
	logger := m.logger.With(logging.String(logging.FieldStage, string(stg)))
	return m.runCycle(ctx, stg, logger)
}

func (m *Manager) runStageLoop(ctx context.Context, stg queue.Stage) {
	defer m.wg.Done()

	logger := m.logger.With(logging.String(logging.FieldStage, string(stg)))
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		started := time.Now()
		claimed, err := m.runCycle(ctx, stg, logger)
		if err != nil && !errors.Is(err, context.Canceled) {
			m.setLastError(err)
			logger.Error("stage cycle failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "cycle_failed"),
			)
			m.sleep(ctx, m.errorRetry)
			continue
		}
		if elapsed := time.Since(started); elapsed > m.pollInterval {
			logger.Debug("cycle overran poll interval, starting next immediately",
				logging.Duration("elapsed", elapsed),
			)
			continue
		}
		if claimed == 0 {
			m.maybeNotifyDrained(ctx)
		}
		m.sleep(ctx, m.pollInterval)
	}
}

func (m *Manager) runReclaimer(ctx context.Context) {
	defer m.wg.Done()

	// Sweep at half the TTL so an abandoned claim waits at most 1.5 TTLs.
	interval := m.staleTTL / 2
	if interval < m.pollInterval {
		interval = m.pollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		reclaimed, err := m.store.ReclaimStale(ctx, m.staleTTL)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.logger.Warn("stale claim sweep failed; stuck items may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "stale_sweep_failed"),
				logging.String(logging.FieldErrorHint, "check ledger database access"),
			)
			continue
		}
		if reclaimed > 0 {
			m.logger.Info("reclaimed stale claims",
				logging.Int("reclaimed", reclaimed),
				logging.Duration("ttl", m.staleTTL),
			)
		}
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func (m *Manager) stageLogger(base *slog.Logger, item *queue.Item, requestID string) *slog.Logger {
	return base.With(
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldClaimant, m.claimantID),
		logging.String(logging.FieldCorrelationID, requestID),
	)
}
