package services

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"pulse-backend/application/ports"
	"pulse-backend/domain/core/entities"
	"pulse-backend/domain/events"
	"pulse-backend/domain/services"
	"pulse-backend/infrastructure/config"
	"pulse-backend/infrastructure/observability"
	pkgerrors "pulse-backend/pkg/errors"
)

// DedupService runs the periodic merge sweep: near-duplicate narratives are
// grouped by entity similarity and collapsed into a single survivor. Losers
// become tombstones and are never deleted.
type DedupService struct {
	narrativeRepo ports.NarrativeRepository
	articleRepo   ports.ArticleRepository
	matcher       services.SimilarityMatcher
	publisher     ports.EventPublisher
	metrics       *observability.Collector
	cfg           config.DetectionConfig
	logger        *zap.Logger
}

// DedupResult summarizes one dedup sweep.
type DedupResult struct {
	PairsCompared    int
	GroupsMerged     int
	NarrativesMerged int
}

// NewDedupService creates a dedup service with required dependencies.
func NewDedupService(
	narrativeRepo ports.NarrativeRepository,
	articleRepo ports.ArticleRepository,
	matcher services.SimilarityMatcher,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	cfg config.DetectionConfig,
	logger *zap.Logger,
) *DedupService {
	return &DedupService{
		narrativeRepo: narrativeRepo,
		articleRepo:   articleRepo,
		matcher:       matcher,
		publisher:     publisher,
		metrics:       metrics,
		cfg:           cfg,
		logger:        logger,
	}
}

// ApplyTunables installs hot-reloaded thresholds before the next sweep.
// Must only be called from the goroutine that runs RunSweep.
func (s *DedupService) ApplyTunables(dyn *config.DynamicConfig) {
	if dyn == nil {
		return
	}
	s.cfg.DedupThreshold = dyn.Matching.DedupThreshold
}

// RunSweep executes one dedup pass over recently-active narratives. The
// sweep is restricted to the candidate window for cost; dormant narratives
// age out of it naturally.
func (s *DedupService) RunSweep(ctx context.Context) (*DedupResult, error) {
	now := time.Now().UTC()
	cutoff := now.AddDate(0, 0, -s.cfg.CandidateWindowDays)
	result := &DedupResult{}

	pool, err := s.narrativeRepo.FindActive(ctx, cutoff)
	if err != nil {
		return result, pkgerrors.Wrap(err, "failed to load dedup pool")
	}
	if len(pool) < 2 {
		return result, nil
	}

	// Union-find over pairs at or above the dedup threshold.
	parent := make([]int, len(pool))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}

	for i := 0; i < len(pool); i++ {
		for j := i + 1; j < len(pool); j++ {
			result.PairsCompared++
			if s.matcher.NarrativeSimilarity(pool[i], pool[j]) >= s.cfg.DedupThreshold {
				parent[find(i)] = find(j)
			}
		}
	}

	groups := make(map[int][]*entities.Narrative)
	for i, n := range pool {
		root := find(i)
		groups[root] = append(groups[root], n)
	}

	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		if err := s.mergeGroup(ctx, group, now); err != nil {
			s.logger.Error("failed to merge duplicate group",
				zap.Int("group_size", len(group)),
				zap.Error(err))
			continue
		}
		result.GroupsMerged++
		result.NarrativesMerged += len(group) - 1
	}

	if result.GroupsMerged > 0 {
		s.logger.Info("dedup sweep completed",
			zap.Int("pool_size", len(pool)),
			zap.Int("groups_merged", result.GroupsMerged),
			zap.Int("narratives_merged", result.NarrativesMerged))
	}

	return result, nil
}

// mergeGroup collapses one duplicate group into its survivor. The survivor
// is the member with the most articles, breaking ties by smallest id so the
// outcome is stable across sweeps.
func (s *DedupService) mergeGroup(ctx context.Context, group []*entities.Narrative, now time.Time) error {
	sort.SliceStable(group, func(i, j int) bool {
		if group[i].ArticleCount() != group[j].ArticleCount() {
			return group[i].ArticleCount() > group[j].ArticleCount()
		}
		return group[i].ID().Less(group[j].ID())
	})

	survivor := group[0]
	mergedIDs := make([]string, 0, len(group)-1)

	for _, loser := range group[1:] {
		survivor.AbsorbMerge(loser, now)
		if err := loser.MarkMergedInto(survivor.ID(), now); err != nil {
			return pkgerrors.Wrap(err, "failed to tombstone narrative")
		}
		mergedIDs = append(mergedIDs, loser.ID().String())
	}

	// Survivor first: if its upsert fails, no tombstone has been written and
	// the sweep simply retries later.
	if err := s.narrativeRepo.Upsert(ctx, survivor); err != nil {
		return pkgerrors.Wrap(err, "failed to upsert merge survivor")
	}

	for _, loser := range group[1:] {
		if err := s.narrativeRepo.Upsert(ctx, loser); err != nil {
			return pkgerrors.Wrap(err, "failed to upsert tombstone")
		}
		if err := s.articleRepo.ReassignNarrative(ctx, loser.ID(), survivor.ID()); err != nil {
			return pkgerrors.Wrap(err, "failed to repoint articles to survivor")
		}
		s.metrics.NarrativesMerged.Inc()
	}

	event := events.NewNarrativesMerged(survivor.ID(), mergedIDs, survivor.ArticleCount())
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish merge event",
			zap.String("survivor_id", survivor.ID().String()),
			zap.Error(err))
	}

	return nil
}
