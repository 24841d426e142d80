package workflow

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"pitchpipe/internal/config"
	"pitchpipe/internal/logging"
	"pitchpipe/internal/notifications"
	"pitchpipe/internal/queue"
	"pitchpipe/internal/stage"
	"pitchpipe/internal/throttle"
)

// Manager coordinates pipeline processing using registered stage handlers.
type Manager struct {
	cfg        *config.Config
	store      *queue.Store
	logger     *slog.Logger
	notifier   notifications.Service
	throttles  *throttle.Registry
	claimantID string

	handlers map[queue.Stage]stage.Handler

	pollInterval time.Duration
	errorRetry   time.Duration
	cycleTimeout time.Duration
	staleTTL     time.Duration
	batchSize    int
	maxAttempts  int

	mu       sync.RWMutex
	running  bool
	cancel   func()
	wg       sync.WaitGroup
	lastErr  error
	lastItem *queue.Item

	drainMu     sync.Mutex
	drainActive bool
	drainStart  time.Time
	processed   int
	failed      int
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier
// (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}

	limits := make(map[string]int, len(queue.Stages()))
	for _, stg := range queue.Stages() {
		limits[string(stg)] = cfg.StageConcurrencyFor(string(stg))
	}

	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		notifier:     notifier,
		throttles:    throttle.NewRegistry(limits),
		claimantID:   defaultClaimantID(),
		handlers:     make(map[queue.Stage]stage.Handler),
		pollInterval: time.Duration(cfg.Workflow.PollIntervalSeconds) * time.Second,
		errorRetry:   time.Duration(cfg.Workflow.ErrorRetrySeconds) * time.Second,
		cycleTimeout: time.Duration(cfg.Workflow.CycleTimeoutSeconds) * time.Second,
		staleTTL:     time.Duration(cfg.Workflow.StaleClaimTTLSeconds) * time.Second,
		batchSize:    cfg.Workflow.BatchSizePerCycle,
		maxAttempts:  cfg.Workflow.MaxAttempts,
	}
}

// Register installs the handler for a pipeline stage. All stages must be
// registered before Start.
func (m *Manager) Register(stg queue.Stage, handler stage.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[stg] = handler
}

// ClaimantID returns the identity this manager claims work under.
func (m *Manager) ClaimantID() string {
	return m.claimantID
}

// SetClaimantID overrides the claim identity (used in tests).
func (m *Manager) SetClaimantID(id string) {
	if id != "" {
		m.claimantID = id
	}
}

// defaultClaimantID derives a claim identity that is stable across restarts
// on the same host. The daemon's instance lock guarantees at most one process
// per host, so the hostname alone is collision-free, and a restarted daemon
// can hand back its dead predecessor's claims immediately.
func defaultClaimantID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "unknown-host"
	}
	return fmt.Sprintf("pitchpipe@%s", hostname)
}
