package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"pitchpipe/internal/logging"
	"pitchpipe/internal/queue"
	"pitchpipe/internal/services"
)

// runCycle claims one batch for the stage and executes every claimed item,
// bounded by the stage throttle. The cycle deadline bounds claiming and the
// throttle wait only: a body already executing when the deadline passes keeps
// running and releases its own claim when it returns, so runCycle may return
// while item goroutines are still in flight. It returns the number of items
// claimed.
func (m *Manager) runCycle(ctx context.Context, stg queue.Stage, logger *slog.Logger) (int, error) {
	cycleCtx := ctx
	if m.cycleTimeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(ctx, m.cycleTimeout)
		defer cancel()
	}

	items, err := m.store.ClaimBatch(cycleCtx, stg, m.claimantID, m.batchSize, m.staleTTL)
	if err != nil {
		return 0, fmt.Errorf("claim batch: %w", err)
	}
	if len(items) == 0 {
		return 0, nil
	}
	m.markDrainActive()

	// Once a handler starts, nothing cancels it: not the cycle deadline and
	// not shutdown. The detached context keeps values but drops cancellation,
	// and the manager wait group makes Stop wait for every running body.
	execCtx := context.WithoutCancel(ctx)

	var batch sync.WaitGroup
	for _, item := range items {
		batch.Add(1)
		m.wg.Add(1)
		go func(item *queue.Item) {
			defer batch.Done()
			defer m.wg.Done()
			m.executeItem(cycleCtx, execCtx, stg, logger, item)
		}(item)
	}

	finished := make(chan struct{})
	go func() {
		batch.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-cycleCtx.Done():
		logger.Info("cycle deadline reached, leaving running items to finish",
			logging.String(logging.FieldEventType, "cycle_deadline"),
		)
	}
	return len(items), nil
}

// executeItem runs one claimed item through the stage handler and releases
// the claim with the outcome the result maps to. The throttle wait is bounded
// by the cycle context; the handler itself runs on the detached execution
// context and is never cancelled mid-run. A claim is never left dangling:
// every path, including panics, ends in a Release, and a release that loses
// the ownership race is a logged no-op.
func (m *Manager) executeItem(cycleCtx, execCtx context.Context, stg queue.Stage, logger *slog.Logger, item *queue.Item) {
	requestID := uuid.NewString()
	itemLogger := m.stageLogger(logger, item, requestID)

	stageCtx := services.WithItemID(execCtx, item.ID)
	stageCtx = services.WithStage(stageCtx, string(stg))
	stageCtx = services.WithClaimant(stageCtx, m.claimantID)
	stageCtx = services.WithRequestID(stageCtx, requestID)

	defer func() {
		if r := recover(); r != nil {
			panicErr := fmt.Errorf("stage panic: %v", r)
			itemLogger.Error("stage handler panicked",
				logging.Error(panicErr),
				logging.String(logging.FieldEventType, "stage_panic"),
			)
			m.releaseWithOutcome(stg, itemLogger, item, panicErr)
		}
	}()

	// Suspend until the lane has a slot. An item still waiting when the cycle
	// ends hands its claim back untouched for a later cycle.
	permit, err := m.throttles.Acquire(cycleCtx, string(stg))
	if err != nil {
		itemLogger.Debug("no throttle slot before cycle end, deferring item", logging.Error(err))
		m.release(stg, itemLogger, item, queue.OutcomeDeferred, "", nil)
		return
	}
	defer permit.Release()

	handler := m.handlers[stg]
	started := time.Now()
	itemLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Int("attempt", item.State(stg).Attempts+1),
	)

	if err := handler.Prepare(stageCtx, item); err != nil {
		m.releaseWithOutcome(stg, itemLogger, item, err)
		return
	}
	if err := m.store.Update(stageCtx, item); err != nil {
		m.releaseWithOutcome(stg, itemLogger, item, fmt.Errorf("persist stage preparation: %w", err))
		return
	}

	if err := handler.Execute(stageCtx, item); err != nil {
		// A failing handler may still have recorded partial results worth
		// keeping, like a below-threshold vet score. Best effort only.
		if updateErr := m.store.Update(stageCtx, item); updateErr != nil {
			itemLogger.Warn("failed to persist partial stage result", logging.Error(updateErr))
		}
		m.releaseWithOutcome(stg, itemLogger, item, err)
		return
	}

	if err := m.store.Update(stageCtx, item); err != nil {
		m.releaseWithOutcome(stg, itemLogger, item, fmt.Errorf("persist stage result: %w", err))
		return
	}

	m.release(stg, itemLogger, item, queue.OutcomeCompleted, "", nil)
	m.setLastItem(item)
	m.countProcessed()
	itemLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(started)),
	)

	if stg.Terminal() {
		if err := m.notifier.NotifyPitchReady(stageCtx, item.MediaTitle, item.CampaignID); err != nil {
			itemLogger.Warn("pitch-ready notification failed", logging.Error(err))
		}
	}
}

// releaseWithOutcome maps a stage error onto a release outcome and applies it.
func (m *Manager) releaseWithOutcome(stg queue.Stage, logger *slog.Logger, item *queue.Item, stageErr error) {
	outcome, retryAt := m.classify(stg, item, stageErr)

	switch outcome {
	case queue.OutcomeDeferred:
		logger.Info("resources busy, deferring item",
			logging.Error(stageErr),
			logging.String(logging.FieldEventType, "stage_deferred"),
		)
	case queue.OutcomeRetry:
		logger.Warn("stage failed, will retry",
			logging.Error(stageErr),
			logging.Int("attempt", item.State(stg).Attempts+1),
			logging.Int("max_attempts", m.maxAttempts),
			logging.String(logging.FieldEventType, "stage_retry"),
		)
	case queue.OutcomeFailed:
		logger.Error("stage failed permanently",
			logging.Error(stageErr),
			logging.String(logging.FieldEventType, "stage_failure"),
		)
		m.countFailed()
		m.setLastError(stageErr)
		if err := m.notifier.NotifyItemFailed(context.Background(), item.MediaTitle, string(stg), stageErr); err != nil {
			logger.Warn("failure notification failed", logging.Error(err))
		}
	}

	message := ""
	if stageErr != nil && outcome != queue.OutcomeDeferred {
		message = stageErr.Error()
	}
	m.release(stg, logger, item, outcome, message, retryAt)
}

// classify maps a stage error onto an outcome per the error taxonomy.
// Resource exhaustion defers the item without burning its budget;
// non-retryable errors fail it immediately; everything else retries with
// exponential backoff until the budget is spent. A timeout inside a handler
// surfaces as ErrTimeout and burns budget like any other retryable failure;
// the execution context itself never expires.
func (m *Manager) classify(stg queue.Stage, item *queue.Item, stageErr error) (queue.Outcome, *time.Time) {
	switch {
	case services.Deferrable(stageErr):
		return queue.OutcomeDeferred, nil
	case !services.Retryable(stageErr):
		return queue.OutcomeFailed, nil
	}
	attempts := item.State(stg).Attempts
	if attempts+1 >= m.maxAttempts {
		return queue.OutcomeFailed, nil
	}
	retryAt := time.Now().UTC().Add(retryDelay(attempts))
	return queue.OutcomeRetry, &retryAt
}

// release applies the outcome to the ledger. Context cancellation must not
// prevent the write, so the release runs on a short independent deadline.
func (m *Manager) release(stg queue.Stage, logger *slog.Logger, item *queue.Item, outcome queue.Outcome, message string, retryAt *time.Time) {
	releaseCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	owned, err := m.store.Release(releaseCtx, stg, item.ID, m.claimantID, outcome, message, retryAt)
	if err != nil {
		m.setLastError(err)
		logger.Error("claim release failed",
			logging.Error(err),
			logging.String("outcome", string(outcome)),
			logging.String(logging.FieldEventType, "release_failed"),
			logging.String(logging.FieldErrorHint, "claim will return via the stale sweep"),
		)
		return
	}
	if !owned {
		logger.Warn("claim was reassigned before release; result discarded",
			logging.String("outcome", string(outcome)),
			logging.String(logging.FieldEventType, "release_lost_ownership"),
		)
	}
}
