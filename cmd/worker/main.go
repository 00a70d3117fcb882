package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pulse-backend/infrastructure/config"
	"pulse-backend/infrastructure/di"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	container.Logger.Info("Starting worker service",
		zap.String("environment", cfg.Environment),
		zap.Duration("detection_interval", cfg.Worker.DetectionInterval),
		zap.Duration("dedup_interval", cfg.Worker.DedupInterval),
		zap.Duration("integrity_interval", cfg.Worker.IntegrityInterval))

	// Optional hot-reloaded threshold overrides.
	var watcher *config.ConfigWatcher
	if cfg.DynamicConfigPath != "" {
		watcher, err = config.NewConfigWatcher(cfg.DynamicConfigPath, container.Logger)
		if err != nil {
			container.Logger.Warn("dynamic config unavailable, using static thresholds",
				zap.String("path", cfg.DynamicConfigPath),
				zap.Error(err))
			watcher = nil
		} else {
			watcher.Start()
			defer watcher.Stop()
		}
	}

	// Detection and dedup share one goroutine: both mutate narratives, and
	// the store has no locks, so a single writer is the consistency model.
	go runWriterLoop(ctx, container, watcher, cfg.Worker)

	// The integrity sweep only reads, so it runs independently.
	go runIntegrityLoop(ctx, container, cfg.Worker.IntegrityInterval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	container.Logger.Info("Shutting down worker service...")
	cancel()

	// Let an in-flight cycle finish its current write.
	time.Sleep(2 * time.Second)

	if err := container.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}
	log.Println("Worker service stopped")
}

// runWriterLoop drives detection and dedup on their own tickers, strictly
// sequentially within this goroutine.
func runWriterLoop(ctx context.Context, container *di.Container, watcher *config.ConfigWatcher, workerCfg config.WorkerConfig) {
	detectionTicker := time.NewTicker(workerCfg.DetectionInterval)
	defer detectionTicker.Stop()
	dedupTicker := time.NewTicker(workerCfg.DedupInterval)
	defer dedupTicker.Stop()

	logger := container.Logger

	for {
		select {
		case <-ctx.Done():
			logger.Info("Writer loop shutting down")
			return

		case <-detectionTicker.C:
			if watcher != nil {
				container.DetectionService.ApplyTunables(watcher.Current())
			}
			if _, err := container.DetectionService.RunCycle(ctx); err != nil {
				logger.Error("detection cycle failed", zap.Error(err))
			}

		case <-dedupTicker.C:
			if watcher != nil {
				container.DedupService.ApplyTunables(watcher.Current())
			}
			if _, err := container.DedupService.RunSweep(ctx); err != nil {
				logger.Error("dedup sweep failed", zap.Error(err))
			}
		}
	}
}

// runIntegrityLoop drives the read-only integrity sweep.
func runIntegrityLoop(ctx context.Context, container *di.Container, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			container.Logger.Info("Integrity loop shutting down")
			return
		case <-ticker.C:
			report, err := container.IntegrityService.RunSweep(ctx)
			if err != nil {
				container.Logger.Error("integrity sweep failed", zap.Error(err))
				continue
			}
			if report.HasDefects() {
				container.Logger.Warn("integrity sweep found defects",
					zap.Int("dangling_refs", report.DanglingArticleRefs),
					zap.Int("misassigned", report.MisassignedArticles),
					zap.Int("count_mismatches", report.CountMismatches),
					zap.Int("duplicate_refs", report.DuplicateArticleRefs),
					zap.Int("empty_narratives", report.EmptyNarratives))
			}
		}
	}
}
