// Package services contains the application services that orchestrate the
// narrative detection, deduplication, and integrity workflows.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"pulse-backend/application/ports"
	"pulse-backend/domain/core/entities"
	"pulse-backend/domain/core/valueobjects"
	"pulse-backend/domain/events"
	"pulse-backend/domain/services"
	"pulse-backend/infrastructure/config"
	"pulse-backend/infrastructure/observability"
	pkgerrors "pulse-backend/pkg/errors"
)

// DetectionService coordinates one detection cycle: pull unassigned articles,
// cluster them, match each cluster against the active narrative pool, and
// create or extend narratives. It is the single writer of the narrative
// store; the scheduler guarantees only one cycle runs at a time.
type DetectionService struct {
	articleRepo   ports.ArticleRepository
	narrativeRepo ports.NarrativeRepository
	extractor     ports.Extractor
	clusterer     *services.SalienceClusterer
	matcher       services.SimilarityMatcher
	publisher     ports.EventPublisher
	metrics       *observability.Collector
	cfg           config.DetectionConfig
	logger        *zap.Logger
}

// CycleResult summarizes one detection cycle for callers and logs.
type CycleResult struct {
	ArticlesProcessed int
	ArticlesSkipped   int
	ClustersFormed    int
	ClustersFailed    int
	NarrativesCreated int
	NarrativesUpdated int
	Duration          time.Duration
}

// NewDetectionService creates a detection service with required dependencies.
func NewDetectionService(
	articleRepo ports.ArticleRepository,
	narrativeRepo ports.NarrativeRepository,
	extractor ports.Extractor,
	clusterer *services.SalienceClusterer,
	matcher services.SimilarityMatcher,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	cfg config.DetectionConfig,
	logger *zap.Logger,
) *DetectionService {
	return &DetectionService{
		articleRepo:   articleRepo,
		narrativeRepo: narrativeRepo,
		extractor:     extractor,
		clusterer:     clusterer,
		matcher:       matcher,
		publisher:     publisher,
		metrics:       metrics,
		cfg:           cfg,
		logger:        logger,
	}
}

// ApplyTunables installs hot-reloaded thresholds before the next cycle.
// Must only be called from the goroutine that runs RunCycle.
func (s *DetectionService) ApplyTunables(dyn *config.DynamicConfig) {
	if dyn == nil {
		return
	}
	s.cfg.MatchThreshold = dyn.Matching.MatchThreshold
	s.cfg.CoreActorSalience = dyn.Matching.CoreActorSalience
	s.cfg.MinClusterSize = dyn.Matching.MinClusterSize
	s.clusterer = services.NewSalienceClusterer(&services.ClustererConfig{
		CoreActorSalience: s.cfg.CoreActorSalience,
		MinClusterSize:    s.cfg.MinClusterSize,
	})
	s.matcher = services.NewDefaultSimilarityMatcher(&services.SimilarityConfig{
		NucleusWeight:  s.cfg.NucleusWeight,
		ActorWeight:    s.cfg.ActorWeight,
		ActionWeight:   s.cfg.ActionWeight,
		MatchThreshold: s.cfg.MatchThreshold,
	})
}

// RunCycle executes one full detection cycle. Per-cluster failures are
// isolated: a failed cluster is logged and counted, and earlier committed
// narratives are never rolled back.
func (s *DetectionService) RunCycle(ctx context.Context) (*CycleResult, error) {
	start := time.Now()
	now := start.UTC()
	result := &CycleResult{}

	s.metrics.DetectionCycles.Inc()
	defer func() {
		result.Duration = time.Since(start)
		s.metrics.CycleDuration.Observe(result.Duration.Seconds())
	}()

	articles, err := s.fetchBatch(ctx, now)
	if err != nil {
		return result, err
	}
	if len(articles) == 0 {
		s.logger.Debug("no unassigned articles, cycle is a no-op")
		return result, nil
	}

	extracted, skipped := s.ensureExtractions(ctx, articles)
	result.ArticlesSkipped = skipped

	clusters := s.clusterer.Cluster(extracted)
	result.ClustersFormed = len(clusters)
	if len(clusters) == 0 {
		s.logger.Info("cycle produced no clusters",
			zap.Int("articles", len(extracted)),
			zap.Int("skipped", skipped))
		return result, nil
	}

	// One pool snapshot per cycle. Narratives created by earlier clusters in
	// this cycle are appended so later clusters can match them.
	cutoff := now.AddDate(0, 0, -s.cfg.CandidateWindowDays)
	pool, err := s.narrativeRepo.FindActive(ctx, cutoff)
	if err != nil {
		return result, pkgerrors.Wrap(err, "failed to load candidate pool")
	}

	for _, cluster := range clusters {
		narrative, created, err := s.processCluster(ctx, cluster, pool, now)
		if err != nil {
			result.ClustersFailed++
			s.metrics.ClusterFailures.Inc()
			s.logger.Error("cluster processing failed",
				zap.Int("cluster_size", len(cluster.Articles)),
				zap.String("nucleus", cluster.Nucleus),
				zap.Error(err))
			continue
		}

		s.metrics.ClustersProcessed.Inc()
		result.ArticlesProcessed += len(cluster.Articles)
		if created {
			result.NarrativesCreated++
			s.metrics.NarrativesCreated.Inc()
			pool = append(pool, narrative)
		} else {
			result.NarrativesUpdated++
			s.metrics.NarrativesUpdated.Inc()
		}
	}

	s.logger.Info("detection cycle completed",
		zap.Int("articles_processed", result.ArticlesProcessed),
		zap.Int("articles_skipped", result.ArticlesSkipped),
		zap.Int("clusters", result.ClustersFormed),
		zap.Int("clusters_failed", result.ClustersFailed),
		zap.Int("narratives_created", result.NarrativesCreated),
		zap.Int("narratives_updated", result.NarrativesUpdated),
		zap.Duration("duration", time.Since(start)))

	summary := events.NewDetectionCycleCompleted(
		result.ArticlesProcessed, result.ArticlesSkipped, result.ClustersFormed,
		result.NarrativesCreated, result.NarrativesUpdated, time.Since(start))
	if err := s.publisher.Publish(ctx, summary); err != nil {
		s.logger.Warn("failed to publish cycle summary", zap.Error(err))
	}

	return result, nil
}

// fetchBatch pulls the unassigned articles for this cycle's window.
func (s *DetectionService) fetchBatch(ctx context.Context, now time.Time) ([]*entities.Article, error) {
	since := now.Add(-time.Duration(s.cfg.BatchWindowHours) * time.Hour)
	articles, err := s.articleRepo.FindUnassigned(ctx, since, s.cfg.BatchLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to fetch unassigned articles")
	}
	return articles, nil
}

// ensureExtractions backfills missing extractions via the external
// collaborator. An article whose extraction fails is skipped for this cycle
// only; it stays unassigned and is retried next cycle.
func (s *DetectionService) ensureExtractions(ctx context.Context, articles []*entities.Article) ([]*entities.Article, int) {
	ready := make([]*entities.Article, 0, len(articles))
	skipped := 0

	for _, article := range articles {
		if article.Extraction.HasNucleus() || len(article.Extraction.Actors) > 0 {
			ready = append(ready, article)
			continue
		}

		extraction, err := s.extractor.Extract(ctx, article)
		if err != nil {
			skipped++
			s.metrics.ArticlesSkipped.Inc()
			s.logger.Warn("extraction failed, skipping article for this cycle",
				zap.String("article_id", article.ID),
				zap.Error(err))
			continue
		}
		article.Extraction = extraction
		ready = append(ready, article)
	}

	return ready, skipped
}

// processCluster runs steps 1-5 of the coordinator for one cluster: compute
// fingerprint and relationships, match, update or create, persist, publish
// events, and write the narrative id back to each member article.
func (s *DetectionService) processCluster(
	ctx context.Context,
	cluster *services.Cluster,
	pool []*entities.Narrative,
	now time.Time,
) (*entities.Narrative, bool, error) {
	fingerprint := valueobjects.ComputeFingerprint(
		cluster.ClusterData(), s.cfg.TopActorLimit, s.cfg.KeyActionLimit)
	relationships := services.ExtractRelationships(
		cluster.Articles, entities.MaxEntityRelationships)

	matched, score := s.matcher.FindMatchingNarrative(fingerprint, pool)

	var narrative *entities.Narrative
	created := false

	if matched != nil {
		narrative = matched
		added := narrative.AddArticles(cluster.ArticleIDs(), now)
		narrative.SetFingerprint(narrative.Fingerprint().Merge(
			cluster.ClusterData(), s.cfg.TopActorLimit, s.cfg.KeyActionLimit))
		narrative.SetEntities(append(narrative.Entities(), clusterEntities(cluster)...))
		narrative.SetRelationships(mergeRelationships(narrative.Relationships(), relationships))
		narrative.Reclassify(now)
		// A re-match that adds nothing new still refreshes recency via
		// AddArticles, but it is not an update worth announcing.
		if added > 0 {
			narrative.MarkUpdated(added)
		}

		s.logger.Debug("cluster matched existing narrative",
			zap.String("narrative_id", narrative.ID().String()),
			zap.Float64("score", score),
			zap.Int("articles_added", added))
	} else {
		var err error
		narrative, err = entities.NewNarrative(
			clusterTheme(cluster),
			cluster.ArticleIDs(),
			fingerprint,
			clusterEntities(cluster),
			cluster.EarliestPublished(),
			now,
		)
		if err != nil {
			return nil, false, pkgerrors.Wrap(err, "failed to create narrative")
		}
		narrative.SetRelationships(relationships)
		narrative.Reclassify(now)
		created = true
	}

	narrative.RecordSnapshot(valueobjects.NewTimelineSnapshot(
		now, narrative.ArticleCount(), narrative.Entities(), narrative.MentionVelocity()))

	if err := s.narrativeRepo.Upsert(ctx, narrative); err != nil {
		return nil, false, pkgerrors.Wrap(err, "failed to upsert narrative")
	}

	// Events are best-effort: a publish failure must not fail the cluster
	// after the narrative is committed.
	if pending := narrative.PullEvents(); len(pending) > 0 {
		if err := s.publisher.PublishBatch(ctx, pending); err != nil {
			s.logger.Warn("failed to publish narrative events",
				zap.String("narrative_id", narrative.ID().String()),
				zap.Error(err))
		}
	}

	// Write-back happens exactly once per article per cycle.
	for _, id := range cluster.ArticleIDs() {
		if err := s.articleRepo.AssignNarrative(ctx, id, narrative.ID()); err != nil {
			return nil, false, pkgerrors.Wrap(err, fmt.Sprintf("failed to assign article %s", id))
		}
		s.metrics.ArticlesAssigned.Inc()
	}

	return narrative, created, nil
}

// clusterTheme derives a display title from the cluster's strongest signal.
func clusterTheme(cluster *services.Cluster) string {
	parts := make([]string, 0, 3)
	if cluster.Nucleus != "" {
		parts = append(parts, cluster.Nucleus)
	}
	for _, actor := range cluster.ActorOrder {
		if actor == cluster.Nucleus {
			continue
		}
		parts = append(parts, actor)
		if len(parts) >= 3 {
			break
		}
	}
	if len(parts) == 0 {
		return "Untitled narrative"
	}
	return strings.Join(parts, " / ")
}

// clusterEntities collects the display entities: nucleus first, then actors
// in first-seen order.
func clusterEntities(cluster *services.Cluster) []string {
	entities := make([]string, 0, len(cluster.ActorOrder)+1)
	if cluster.Nucleus != "" {
		entities = append(entities, cluster.Nucleus)
	}
	entities = append(entities, cluster.ActorOrder...)
	return entities
}

// mergeRelationships sums weights for pairs present in both lists. The
// caller's SetRelationships re-sorts and caps the result.
func mergeRelationships(existing, fresh []valueobjects.EntityRelationship) []valueobjects.EntityRelationship {
	byKey := make(map[[2]string]valueobjects.EntityRelationship, len(existing)+len(fresh))
	for _, rel := range existing {
		byKey[rel.Key()] = rel
	}
	for _, rel := range fresh {
		if prev, ok := byKey[rel.Key()]; ok {
			prev.Weight += rel.Weight
			byKey[rel.Key()] = prev
		} else {
			byKey[rel.Key()] = rel
		}
	}
	merged := make([]valueobjects.EntityRelationship, 0, len(byKey))
	for _, rel := range byKey {
		merged = append(merged, rel)
	}
	return merged
}
