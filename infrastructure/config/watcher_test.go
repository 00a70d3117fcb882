package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const validThresholdsYAML = `
matching:
  matchThreshold: 0.65
  dedupThreshold: 0.75
  coreActorSalience: 4
  minClusterSize: 3
metadata:
  version: "2026-08-01"
`

func writeThresholds(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConfigWatcher(t *testing.T) {
	t.Run("LoadsInitialConfig", func(t *testing.T) {
		path := writeThresholds(t, t.TempDir(), validThresholdsYAML)

		watcher, err := NewConfigWatcher(path, zap.NewNop())
		require.NoError(t, err)
		defer watcher.Stop()

		current := watcher.Current()
		assert.Equal(t, 0.65, current.Matching.MatchThreshold)
		assert.Equal(t, 0.75, current.Matching.DedupThreshold)
		assert.Equal(t, "2026-08-01", current.Metadata.Version)
	})

	t.Run("MissingFileFailsFast", func(t *testing.T) {
		_, err := NewConfigWatcher(filepath.Join(t.TempDir(), "absent.yaml"), zap.NewNop())
		assert.Error(t, err)
	})

	t.Run("InvalidInitialThresholdsRejected", func(t *testing.T) {
		path := writeThresholds(t, t.TempDir(), `
matching:
  matchThreshold: 1.5
  dedupThreshold: 0.7
  coreActorSalience: 4
  minClusterSize: 3
`)
		_, err := NewConfigWatcher(path, zap.NewNop())
		assert.Error(t, err)
	})

	t.Run("ReloadsOnFileChange", func(t *testing.T) {
		dir := t.TempDir()
		path := writeThresholds(t, dir, validThresholdsYAML)

		watcher, err := NewConfigWatcher(path, zap.NewNop())
		require.NoError(t, err)
		defer watcher.Stop()

		reloaded := make(chan *DynamicConfig, 1)
		watcher.OnChange(func(cfg *DynamicConfig) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
		watcher.Start()

		updated := `
matching:
  matchThreshold: 0.8
  dedupThreshold: 0.75
  coreActorSalience: 5
  minClusterSize: 4
metadata:
  version: "2026-08-15"
`
		require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

		select {
		case cfg := <-reloaded:
			assert.Equal(t, 0.8, cfg.Matching.MatchThreshold)
			assert.Equal(t, 5, cfg.Matching.CoreActorSalience)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for config reload")
		}

		assert.Equal(t, 0.8, watcher.Current().Matching.MatchThreshold)
	})

	t.Run("InvalidReloadKeepsCurrent", func(t *testing.T) {
		dir := t.TempDir()
		path := writeThresholds(t, dir, validThresholdsYAML)

		watcher, err := NewConfigWatcher(path, zap.NewNop())
		require.NoError(t, err)
		defer watcher.Stop()
		watcher.Start()

		require.NoError(t, os.WriteFile(path, []byte("matching: {matchThreshold: 9.0, dedupThreshold: 0.7, coreActorSalience: 4, minClusterSize: 3}"), 0o644))

		// Give the debounce window time to fire; the bad file must not
		// replace the loaded thresholds.
		time.Sleep(500 * time.Millisecond)
		assert.Equal(t, 0.65, watcher.Current().Matching.MatchThreshold)
	})
}
