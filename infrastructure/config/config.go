package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// DetectionConfig holds the tunables of the narrative detection engine.
// Every threshold the matching and clustering algorithms use lives here, not
// in code.
type DetectionConfig struct {
	// MatchThreshold is the minimum fingerprint similarity (inclusive) for a
	// cluster to extend an existing narrative
	MatchThreshold float64 `validate:"gte=0,lte=1"`
	// DedupThreshold is the minimum narrative similarity (inclusive) for the
	// dedup sweep to merge two narratives
	DedupThreshold float64 `validate:"gte=0,lte=1"`
	// NucleusWeight, ActorWeight and ActionWeight combine fingerprint signals
	// and must sum to 1
	NucleusWeight float64 `validate:"gte=0,lte=1"`
	ActorWeight   float64 `validate:"gte=0,lte=1"`
	ActionWeight  float64 `validate:"gte=0,lte=1"`
	// CoreActorSalience is the minimum salience for an actor to link two
	// articles during clustering
	CoreActorSalience int `validate:"min=1,max=5"`
	// MinClusterSize is the smallest connected component that becomes a cluster
	MinClusterSize int `validate:"min=1"`
	// CandidateWindowDays bounds the matching candidate pool to recently
	// updated narratives
	CandidateWindowDays int `validate:"min=1"`
	// TopActorLimit (K) caps fingerprint top actors
	TopActorLimit int `validate:"min=1"`
	// KeyActionLimit (M) caps fingerprint key actions
	KeyActionLimit int `validate:"min=1"`
	// BatchWindowHours bounds the unassigned-article batch per cycle
	BatchWindowHours int `validate:"min=1"`
	// BatchLimit caps how many articles one cycle pulls
	BatchLimit int `validate:"min=1"`
}

// WorkerConfig holds the periodic task schedule.
type WorkerConfig struct {
	DetectionInterval time.Duration `validate:"min=1s"`
	DedupInterval     time.Duration `validate:"min=1s"`
	IntegrityInterval time.Duration `validate:"min=1s"`
}

// ExtractionConfig configures the LLM extraction collaborator client.
type ExtractionConfig struct {
	Endpoint    string
	MaxAttempts int           `validate:"min=1"`
	HTTPTimeout time.Duration `validate:"min=1s"`
}

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion       string
	NarrativesTable string
	ArticlesTable   string
	StateIndexName  string // GSI - for lifecycle-state + lastUpdated queries
	EventBusName    string

	// Logging
	LogLevel string

	// Feature flags
	EnableMetrics bool
	EnableTracing bool
	EnableCORS    bool

	// UseMemoryStore swaps DynamoDB and EventBridge for in-memory
	// implementations; local development only.
	UseMemoryStore bool

	// Dynamic threshold overrides file (optional, hot-reloaded)
	DynamicConfigPath string

	Detection  DetectionConfig
	Worker     WorkerConfig
	Extraction ExtractionConfig
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),

		NarrativesTable: getEnv("NARRATIVES_TABLE", "pulse-narratives"),
		ArticlesTable:   getEnv("ARTICLES_TABLE", "pulse-articles"),
		StateIndexName:  getEnv("STATE_INDEX_NAME", "StateUpdatedIndex"),
		EventBusName:    getEnv("EVENT_BUS_NAME", "pulse-events"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableTracing: getEnvBool("ENABLE_TRACING", false),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),

		UseMemoryStore: getEnvBool("USE_MEMORY_STORE", false),

		DynamicConfigPath: getEnv("DYNAMIC_CONFIG_PATH", ""),

		Detection: DetectionConfig{
			MatchThreshold:      getEnvFloat("MATCH_THRESHOLD", 0.6),
			DedupThreshold:      getEnvFloat("DEDUP_THRESHOLD", 0.7),
			NucleusWeight:       getEnvFloat("NUCLEUS_WEIGHT", 0.4),
			ActorWeight:         getEnvFloat("ACTOR_WEIGHT", 0.4),
			ActionWeight:        getEnvFloat("ACTION_WEIGHT", 0.2),
			CoreActorSalience:   getEnvInt("CORE_ACTOR_SALIENCE", 4),
			MinClusterSize:      getEnvInt("MIN_CLUSTER_SIZE", 3),
			CandidateWindowDays: getEnvInt("CANDIDATE_WINDOW_DAYS", 14),
			TopActorLimit:       getEnvInt("TOP_ACTOR_LIMIT", 4),
			KeyActionLimit:      getEnvInt("KEY_ACTION_LIMIT", 5),
			BatchWindowHours:    getEnvInt("BATCH_WINDOW_HOURS", 6),
			BatchLimit:          getEnvInt("BATCH_LIMIT", 200),
		},

		Worker: WorkerConfig{
			DetectionInterval: getEnvDuration("DETECTION_INTERVAL", 10*time.Minute),
			DedupInterval:     getEnvDuration("DEDUP_INTERVAL", 10*time.Minute),
			IntegrityInterval: getEnvDuration("INTEGRITY_INTERVAL", 1*time.Hour),
		},

		Extraction: ExtractionConfig{
			Endpoint:    getEnv("EXTRACTION_ENDPOINT", ""),
			MaxAttempts: getEnvInt("EXTRACTION_MAX_ATTEMPTS", 4),
			HTTPTimeout: getEnvDuration("EXTRACTION_HTTP_TIMEOUT", 30*time.Second),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present and consistent
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	weights := c.Detection.NucleusWeight + c.Detection.ActorWeight + c.Detection.ActionWeight
	if weights < 0.999 || weights > 1.001 {
		return fmt.Errorf("fingerprint weights must sum to 1, got %f", weights)
	}

	if c.Environment == "production" {
		if c.NarrativesTable == "" {
			return fmt.Errorf("NARRATIVES_TABLE is required")
		}
		if c.ArticlesTable == "" {
			return fmt.Errorf("ARTICLES_TABLE is required")
		}
		if c.Extraction.Endpoint == "" {
			return fmt.Errorf("EXTRACTION_ENDPOINT is required in production")
		}
		if c.UseMemoryStore {
			return fmt.Errorf("USE_MEMORY_STORE is not allowed in production")
		}
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
