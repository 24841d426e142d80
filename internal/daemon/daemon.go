package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"pitchpipe/internal/config"
	"pitchpipe/internal/logging"
	"pitchpipe/internal/notifications"
	"pitchpipe/internal/queue"
	"pitchpipe/internal/workflow"
)

// Daemon coordinates the background pipeline and enforces single-instance
// execution per host.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Workflow     workflow.StatusSummary
	LedgerPath   string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, and workflow manager")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "pitchpiped.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the workflow manager.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another pitchpipe daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start workflow: %w", err)
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock. The
// workflow winds down first so items already executing finish before the run
// context is torn down.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.workflow.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon holds the lock and the pipeline runs.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		Workflow:     d.workflow.Status(ctx),
		LedgerPath:   d.store.Path(),
		LockFilePath: d.lockPath,
	}
}

// AddDiscovery enqueues a campaign/media pairing for manual intake.
func (d *Daemon) AddDiscovery(ctx context.Context, campaignID, mediaID, mediaTitle, audioURL string, declaredSizeBytes int64) (*queue.Item, error) {
	if d.store == nil {
		return nil, errors.New("ledger store unavailable")
	}
	campaignID = strings.TrimSpace(campaignID)
	mediaID = strings.TrimSpace(mediaID)
	if campaignID == "" || mediaID == "" {
		return nil, errors.New("campaign id and media id are required")
	}
	if strings.TrimSpace(audioURL) == "" {
		return nil, errors.New("audio url is required")
	}
	item, err := d.store.NewDiscovery(ctx, campaignID, mediaID, mediaTitle, audioURL, declaredSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("enqueue discovery: %w", err)
	}
	d.logger.Info("discovery queued",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String("campaign_id", campaignID),
		logging.String("media_id", mediaID),
	)
	return item, nil
}

// ListQueue returns all ledger items.
func (d *Daemon) ListQueue(ctx context.Context) ([]*queue.Item, error) {
	if d.store == nil {
		return nil, errors.New("ledger store unavailable")
	}
	return d.store.List(ctx)
}

// ClearQueue removes all ledger items.
func (d *Daemon) ClearQueue(ctx context.Context) (int, error) {
	if d.store == nil {
		return 0, errors.New("ledger store unavailable")
	}
	return d.store.ClearAll(ctx)
}

// ClearCompleted removes items whose terminal stage completed.
func (d *Daemon) ClearCompleted(ctx context.Context) (int, error) {
	if d.store == nil {
		return 0, errors.New("ledger store unavailable")
	}
	return d.store.ClearCompleted(ctx)
}

// ClearFailed removes items with at least one failed stage.
func (d *Daemon) ClearFailed(ctx context.Context) (int, error) {
	if d.store == nil {
		return 0, errors.New("ledger store unavailable")
	}
	return d.store.ClearFailed(ctx)
}

// RetryFailed resets an item's failed stages back to pending.
func (d *Daemon) RetryFailed(ctx context.Context, id int64) error {
	if d.store == nil {
		return errors.New("ledger store unavailable")
	}
	return d.store.RetryFailed(ctx, id)
}

// QueueHealth returns aggregate ledger diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	if d.store == nil {
		return queue.HealthSummary{}, errors.New("ledger store unavailable")
	}
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed ledger database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	if d.store == nil {
		return queue.DatabaseHealth{}, errors.New("ledger store unavailable")
	}
	return d.store.CheckHealth(ctx)
}

// TestNotification sends a test push using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
