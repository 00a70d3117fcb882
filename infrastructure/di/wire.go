//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"pulse-backend/application/ports"
	appservices "pulse-backend/application/services"
	"pulse-backend/infrastructure/config"
	"pulse-backend/infrastructure/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config           *config.Config
	Logger           *zap.Logger
	Metrics          *observability.Collector
	NarrativeRepo    ports.NarrativeRepository
	ArticleRepo      ports.ArticleRepository
	Extractor        ports.Extractor
	EventPublisher   ports.EventPublisher
	DetectionService *appservices.DetectionService
	DedupService     *appservices.DedupService
	IntegrityService *appservices.IntegrityService
}

// SuperSet is the main provider set containing all providers.
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideMetrics,
	ProvideNarrativeRepository,
	ProvideArticleRepository,
	ProvideEventPublisher,
	ProvideExtractor,
	ProvideClusterer,
	ProvideSimilarityMatcher,
	ProvideDetectionService,
	ProvideDedupService,
	ProvideIntegrityService,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
