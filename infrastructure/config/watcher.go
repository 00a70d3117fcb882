package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DynamicConfig holds the thresholds that can be retuned at runtime without
// restarting the worker. Operators adjust these while watching how clusters
// land; everything else requires a restart.
type DynamicConfig struct {
	Matching MatchingTunables `yaml:"matching"`
	Metadata TunablesMetadata `yaml:"metadata"`
}

// MatchingTunables are the clustering and matching thresholds.
type MatchingTunables struct {
	MatchThreshold    float64 `yaml:"matchThreshold"`
	DedupThreshold    float64 `yaml:"dedupThreshold"`
	CoreActorSalience int     `yaml:"coreActorSalience"`
	MinClusterSize    int     `yaml:"minClusterSize"`
}

// TunablesMetadata records which revision of the file is loaded.
type TunablesMetadata struct {
	Version   string    `yaml:"version"`
	UpdatedAt time.Time `yaml:"updatedAt"`
}

// ConfigWatcher watches the dynamic threshold file for changes
type ConfigWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	current  *DynamicConfig
	mu       sync.RWMutex
	onChange []func(*DynamicConfig)
	logger   *zap.Logger
	stopCh   chan struct{}
}

// NewConfigWatcher creates a new configuration watcher
func NewConfigWatcher(configPath string, logger *zap.Logger) (*ConfigWatcher, error) {
	// Load initial configuration
	cfg, err := loadDynamicConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}

	// Also watch the directory for atomic saves (rename operations)
	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		logger.Warn("Failed to watch config directory", zap.Error(err))
	}

	return &ConfigWatcher{
		path:     configPath,
		watcher:  watcher,
		current:  cfg,
		onChange: make([]func(*DynamicConfig), 0),
		logger:   logger,
		stopCh:   make(chan struct{}),
	}, nil
}

// Current returns the active dynamic configuration.
func (w *ConfigWatcher) Current() *DynamicConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback invoked after each successful reload.
func (w *ConfigWatcher) OnChange(handler func(*DynamicConfig)) {
	w.onChange = append(w.onChange, handler)
}

// Start begins watching for configuration changes
func (w *ConfigWatcher) Start() {
	go w.watchLoop()
	w.logger.Info("Configuration watcher started", zap.String("path", w.path))
}

// Stop stops watching for configuration changes
func (w *ConfigWatcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
	w.logger.Info("Configuration watcher stopped")
}

// watchLoop is the main loop that watches for file changes
func (w *ConfigWatcher) watchLoop() {
	// Debounce timer to avoid multiple reloads
	var debounceTimer *time.Timer
	const debounceDuration = 100 * time.Millisecond

	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Only handle write and create events for our config file
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					w.handleConfigChange()
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

// handleConfigChange reloads and validates the file, keeping the current
// config when the new one is invalid.
func (w *ConfigWatcher) handleConfigChange() {
	w.logger.Info("Configuration file changed, reloading", zap.String("path", w.path))

	newConfig, err := loadDynamicConfig(w.path)
	if err != nil {
		w.logger.Error("Failed to reload configuration", zap.Error(err))
		return
	}

	if err := validateDynamicConfig(newConfig); err != nil {
		w.logger.Error("Invalid configuration, keeping current", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = newConfig
	w.mu.Unlock()

	for _, handler := range w.onChange {
		go handler(newConfig)
	}

	w.logger.Info("Configuration reloaded successfully",
		zap.String("version", newConfig.Metadata.Version),
	)
}

func loadDynamicConfig(path string) (*DynamicConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg DynamicConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validateDynamicConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateDynamicConfig(cfg *DynamicConfig) error {
	m := cfg.Matching
	if m.MatchThreshold < 0 || m.MatchThreshold > 1 {
		return fmt.Errorf("matchThreshold must be within [0,1]")
	}
	if m.DedupThreshold < 0 || m.DedupThreshold > 1 {
		return fmt.Errorf("dedupThreshold must be within [0,1]")
	}
	if m.CoreActorSalience < 1 || m.CoreActorSalience > 5 {
		return fmt.Errorf("coreActorSalience must be between 1 and 5")
	}
	if m.MinClusterSize < 1 {
		return fmt.Errorf("minClusterSize must be positive")
	}
	return nil
}
