// Package di wires the application together with google/wire.
package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"pulse-backend/application/ports"
	appservices "pulse-backend/application/services"
	domainservices "pulse-backend/domain/services"
	"pulse-backend/infrastructure/config"
	"pulse-backend/infrastructure/extraction"
	"pulse-backend/infrastructure/messaging"
	"pulse-backend/infrastructure/messaging/eventbridge"
	"pulse-backend/infrastructure/observability"
	"pulse-backend/infrastructure/persistence/dynamodb"
	"pulse-backend/infrastructure/persistence/memory"
)

// ProvideLogger creates a logger for the configured environment.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig loads the AWS SDK configuration.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client.
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client.
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideMetrics creates the Prometheus collector.
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector("pulse")
}

// ProvideNarrativeRepository selects the narrative store implementation.
func ProvideNarrativeRepository(cfg *config.Config, client *awsdynamodb.Client, metrics *observability.Collector, logger *zap.Logger) ports.NarrativeRepository {
	if cfg.UseMemoryStore {
		return memory.NewNarrativeRepository()
	}
	return dynamodb.NewNarrativeRepository(client, cfg.NarrativesTable, cfg.StateIndexName, metrics, logger)
}

// ProvideArticleRepository selects the article store implementation.
func ProvideArticleRepository(cfg *config.Config, client *awsdynamodb.Client, metrics *observability.Collector, logger *zap.Logger) ports.ArticleRepository {
	if cfg.UseMemoryStore {
		return memory.NewArticleRepository()
	}
	return dynamodb.NewArticleRepository(client, cfg.ArticlesTable, "UnassignedIndex", metrics, logger)
}

// ProvideEventPublisher selects the event publisher implementation.
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if cfg.UseMemoryStore {
		return messaging.NewRecordingPublisher()
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideExtractor creates the extraction client.
func ProvideExtractor(cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) ports.Extractor {
	return extraction.NewClient(cfg.Extraction, metrics, logger)
}

// ProvideClusterer creates the salience clusterer from detection config.
func ProvideClusterer(cfg *config.Config) *domainservices.SalienceClusterer {
	return domainservices.NewSalienceClusterer(&domainservices.ClustererConfig{
		CoreActorSalience: cfg.Detection.CoreActorSalience,
		MinClusterSize:    cfg.Detection.MinClusterSize,
	})
}

// ProvideSimilarityMatcher creates the matcher from detection config.
func ProvideSimilarityMatcher(cfg *config.Config) domainservices.SimilarityMatcher {
	return domainservices.NewDefaultSimilarityMatcher(&domainservices.SimilarityConfig{
		NucleusWeight:  cfg.Detection.NucleusWeight,
		ActorWeight:    cfg.Detection.ActorWeight,
		ActionWeight:   cfg.Detection.ActionWeight,
		MatchThreshold: cfg.Detection.MatchThreshold,
	})
}

// ProvideDetectionService creates the detection coordinator.
func ProvideDetectionService(
	articleRepo ports.ArticleRepository,
	narrativeRepo ports.NarrativeRepository,
	extractor ports.Extractor,
	clusterer *domainservices.SalienceClusterer,
	matcher domainservices.SimilarityMatcher,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	cfg *config.Config,
	logger *zap.Logger,
) *appservices.DetectionService {
	return appservices.NewDetectionService(
		articleRepo, narrativeRepo, extractor, clusterer, matcher,
		publisher, metrics, cfg.Detection, logger)
}

// ProvideDedupService creates the dedup sweep service.
func ProvideDedupService(
	narrativeRepo ports.NarrativeRepository,
	articleRepo ports.ArticleRepository,
	matcher domainservices.SimilarityMatcher,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	cfg *config.Config,
	logger *zap.Logger,
) *appservices.DedupService {
	return appservices.NewDedupService(
		narrativeRepo, articleRepo, matcher, publisher, metrics, cfg.Detection, logger)
}

// ProvideIntegrityService creates the integrity sweep service.
func ProvideIntegrityService(
	narrativeRepo ports.NarrativeRepository,
	articleRepo ports.ArticleRepository,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	logger *zap.Logger,
) *appservices.IntegrityService {
	return appservices.NewIntegrityService(narrativeRepo, articleRepo, publisher, metrics, logger)
}
