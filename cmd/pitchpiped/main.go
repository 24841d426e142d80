package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"pitchpipe/internal/config"
	"pitchpipe/internal/daemon"
	"pitchpipe/internal/logging"
	"pitchpipe/internal/queue"
	"pitchpipe/internal/workflow"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Optional .env in the working directory, for API keys in development.
	_ = godotenv.Load()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logFile, err := logging.OpenLogFile(cfg.Paths.LogDir, "pitchpiped.log")
	if err != nil {
		log.Fatalf("open log file: %v", err)
	}
	defer logFile.Close()

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: io.MultiWriter(os.Stdout, logFile),
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open ledger store", logging.Error(err))
		os.Exit(1)
	}

	manager := workflow.NewManager(cfg, store, logger)
	if err := registerStages(manager, cfg, logger); err != nil {
		logger.Error("register stages", logging.Error(err))
		_ = store.Close()
		os.Exit(1)
	}

	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("pitchpiped shutting down")
}
