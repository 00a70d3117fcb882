package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pulse-backend/application/ports"
	"pulse-backend/domain/events"
	"pulse-backend/infrastructure/observability"
	pkgerrors "pulse-backend/pkg/errors"
)

// IntegrityService periodically audits the narrative store against the
// article store. It reports defects; it never repairs them, because every
// defect class here points at a coordinator bug that should be fixed at the
// source rather than papered over.
type IntegrityService struct {
	narrativeRepo ports.NarrativeRepository
	articleRepo   ports.ArticleRepository
	publisher     ports.EventPublisher
	metrics       *observability.Collector
	logger        *zap.Logger
}

// IntegrityReport lists the defects one sweep found.
type IntegrityReport struct {
	NarrativesChecked    int
	DanglingArticleRefs  int
	MisassignedArticles  int
	CountMismatches      int
	DuplicateArticleRefs int
	EmptyNarratives      int
}

// HasDefects reports whether the sweep found anything wrong.
func (r *IntegrityReport) HasDefects() bool {
	return r.DanglingArticleRefs > 0 || r.MisassignedArticles > 0 ||
		r.CountMismatches > 0 || r.DuplicateArticleRefs > 0 || r.EmptyNarratives > 0
}

// NewIntegrityService creates an integrity service with required dependencies.
func NewIntegrityService(
	narrativeRepo ports.NarrativeRepository,
	articleRepo ports.ArticleRepository,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	logger *zap.Logger,
) *IntegrityService {
	return &IntegrityService{
		narrativeRepo: narrativeRepo,
		articleRepo:   articleRepo,
		publisher:     publisher,
		metrics:       metrics,
		logger:        logger,
	}
}

// RunSweep audits every active narrative. Defect classes:
//   - dangling refs: a narrative lists an article id the store cannot find
//   - misassigned articles: a member article's back-reference points at a
//     different narrative (a missed repoint after a merge)
//   - count mismatches: the stored article count disagrees with the number
//     of distinct ids in the stored list
//   - duplicate refs: the stored id list carries the same article twice
//   - empty narratives: an active narrative with no articles at all
//
// Count and duplicate checks read the record as persisted via
// GetArticleRefs; the rehydrated aggregate deduplicates and recounts, so
// those two classes are invisible on it.
func (s *IntegrityService) RunSweep(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{}

	narratives, err := s.narrativeRepo.FindActive(ctx, time.Time{})
	if err != nil {
		return report, pkgerrors.Wrap(err, "failed to load narratives for integrity sweep")
	}

	for _, narrative := range narratives {
		report.NarrativesChecked++

		refs, err := s.narrativeRepo.GetArticleRefs(ctx, narrative.ID())
		if err != nil {
			return report, pkgerrors.Wrap(err, "failed to load article refs during integrity sweep")
		}

		unique := make(map[string]struct{}, len(refs.ArticleIDs))
		duplicates := 0
		for _, id := range refs.ArticleIDs {
			if _, seen := unique[id]; seen {
				duplicates++
				continue
			}
			unique[id] = struct{}{}
		}
		if duplicates > 0 {
			report.DuplicateArticleRefs++
			s.metrics.IntegrityDefects.WithLabelValues("duplicate_ref").Inc()
			s.logger.Warn("narrative lists the same article more than once",
				zap.String("narrative_id", narrative.ID().String()),
				zap.Int("duplicates", duplicates))
		}
		if refs.StoredCount != len(unique) {
			report.CountMismatches++
			s.metrics.IntegrityDefects.WithLabelValues("count_mismatch").Inc()
			s.logger.Warn("stored article count disagrees with stored id list",
				zap.String("narrative_id", narrative.ID().String()),
				zap.Int("stored_count", refs.StoredCount),
				zap.Int("distinct_ids", len(unique)))
		}

		ids := narrative.ArticleIDs()
		if len(ids) == 0 {
			report.EmptyNarratives++
			s.metrics.IntegrityDefects.WithLabelValues("empty_narrative").Inc()
			s.logger.Warn("active narrative has no articles",
				zap.String("narrative_id", narrative.ID().String()))
			continue
		}

		for _, id := range ids {
			article, err := s.articleRepo.GetByID(ctx, id)
			if err != nil {
				if pkgerrors.IsNotFound(err) {
					report.DanglingArticleRefs++
					s.metrics.IntegrityDefects.WithLabelValues("dangling_ref").Inc()
					s.logger.Warn("narrative references missing article",
						zap.String("narrative_id", narrative.ID().String()),
						zap.String("article_id", id))
					continue
				}
				return report, pkgerrors.Wrap(err, "failed to load article during integrity sweep")
			}

			if article.IsAssigned() && article.NarrativeID != narrative.ID().String() {
				report.MisassignedArticles++
				s.metrics.IntegrityDefects.WithLabelValues("misassigned").Inc()
				s.logger.Warn("article back-reference disagrees with narrative membership",
					zap.String("narrative_id", narrative.ID().String()),
					zap.String("article_id", id),
					zap.String("article_narrative_id", article.NarrativeID))
			}
		}
	}

	if report.HasDefects() {
		event := events.NewIntegrityDefectsFound(
			report.MisassignedArticles, report.CountMismatches, report.DuplicateArticleRefs,
			report.DanglingArticleRefs, report.EmptyNarratives)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish integrity event", zap.Error(err))
		}
	}

	return report, nil
}
