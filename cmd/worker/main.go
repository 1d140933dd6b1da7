// Package main is the entry point for the ledgercore background worker:
// it relays outbox events and purges expired idempotency keys.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"ledgercore/internal/config"
	"ledgercore/internal/domain/events"
	"ledgercore/internal/infrastructure/storage"
	"ledgercore/pkg/logger"
)

const cleanupInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log.WithComponent("worker")))
	defer cancel()

	log.Infow("starting ledgercore worker", "driver", cfg.Database.Driver)

	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer backend.Close()

	relay := backend.Relay(cfg.Outbox.BatchSize, events.LogHandler())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		log.Infow("outbox relay started",
			"poll_interval", cfg.Outbox.PollInterval,
			"batch_size", cfg.Outbox.BatchSize,
		)
		if err := events.Poll(ctx, relay, cfg.Outbox.PollInterval); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorw("outbox relay stopped", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		backend.RunCleanup(ctx, cleanupInterval, func(err error) {
			log.Warnw("idempotency cleanup failed", "error", err)
		})
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}
