package main

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"pitchpipe/internal/config"
	"pitchpipe/internal/queue"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// withStore opens the ledger for the duration of one command. The ledger is
// the only channel shared with the daemon; SQLite's WAL mode keeps concurrent
// access safe.
func (c *commandContext) withStore(fn func(*queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// daemonRunning probes the daemon lock file. Acquiring the lock means no
// daemon holds it; the probe releases it immediately.
func (c *commandContext) daemonRunning() bool {
	cfg, err := c.ensureConfig()
	if err != nil {
		return false
	}
	lock := flock.New(filepath.Join(cfg.Paths.LogDir, "pitchpiped.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return false
	}
	if ok {
		_ = lock.Unlock()
		return false
	}
	return true
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
