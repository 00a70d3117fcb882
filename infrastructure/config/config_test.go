package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, ":8080", cfg.ServerAddress)
		assert.Equal(t, "development", cfg.Environment)
		assert.True(t, cfg.IsDevelopment())
		assert.Equal(t, "pulse-narratives", cfg.NarrativesTable)
		assert.Equal(t, "pulse-articles", cfg.ArticlesTable)
		assert.Equal(t, "pulse-events", cfg.EventBusName)
		assert.False(t, cfg.UseMemoryStore)

		assert.Equal(t, 0.6, cfg.Detection.MatchThreshold)
		assert.Equal(t, 0.7, cfg.Detection.DedupThreshold)
		assert.Equal(t, 4, cfg.Detection.CoreActorSalience)
		assert.Equal(t, 3, cfg.Detection.MinClusterSize)
		assert.Equal(t, 14, cfg.Detection.CandidateWindowDays)
		assert.Equal(t, 4, cfg.Detection.TopActorLimit)
		assert.Equal(t, 5, cfg.Detection.KeyActionLimit)
	})

	t.Run("EnvironmentOverrides", func(t *testing.T) {
		t.Setenv("MATCH_THRESHOLD", "0.75")
		t.Setenv("MIN_CLUSTER_SIZE", "5")
		t.Setenv("USE_MEMORY_STORE", "true")
		t.Setenv("DETECTION_INTERVAL", "5m")

		cfg, err := LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, 0.75, cfg.Detection.MatchThreshold)
		assert.Equal(t, 5, cfg.Detection.MinClusterSize)
		assert.True(t, cfg.UseMemoryStore)
		assert.Equal(t, "5m0s", cfg.Worker.DetectionInterval.String())
	})

	t.Run("UnparsableValuesFallBackToDefaults", func(t *testing.T) {
		t.Setenv("MATCH_THRESHOLD", "not-a-number")
		t.Setenv("BATCH_LIMIT", "many")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 0.6, cfg.Detection.MatchThreshold)
		assert.Equal(t, 200, cfg.Detection.BatchLimit)
	})
}

func TestConfigValidate(t *testing.T) {
	valid := func() (*Config, error) { return LoadConfig() }

	t.Run("WeightsMustSumToOne", func(t *testing.T) {
		cfg, err := valid()
		require.NoError(t, err)

		cfg.Detection.NucleusWeight = 0.5
		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "weights must sum to 1")
	})

	t.Run("ProductionRequiresExtractionEndpoint", func(t *testing.T) {
		cfg, err := valid()
		require.NoError(t, err)

		cfg.Environment = "production"
		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "EXTRACTION_ENDPOINT")
	})

	t.Run("ProductionRejectsMemoryStore", func(t *testing.T) {
		cfg, err := valid()
		require.NoError(t, err)

		cfg.Environment = "production"
		cfg.Extraction.Endpoint = "https://extractor.internal/v1/extract"
		cfg.UseMemoryStore = true

		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "USE_MEMORY_STORE")
	})

	t.Run("ProductionAcceptsCompleteConfig", func(t *testing.T) {
		cfg, err := valid()
		require.NoError(t, err)

		cfg.Environment = "production"
		cfg.Extraction.Endpoint = "https://extractor.internal/v1/extract"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("ThresholdsOutsideUnitIntervalRejected", func(t *testing.T) {
		cfg, err := valid()
		require.NoError(t, err)

		cfg.Detection.MatchThreshold = 1.5
		assert.Error(t, cfg.Validate())
	})
}
