package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pulse-backend/domain/core/entities"
	"pulse-backend/domain/core/valueobjects"
	"pulse-backend/domain/events"
	domainservices "pulse-backend/domain/services"
	"pulse-backend/infrastructure/config"
	"pulse-backend/infrastructure/messaging"
	"pulse-backend/infrastructure/observability"
	"pulse-backend/infrastructure/persistence/memory"
)

type dedupFixture struct {
	articles   *memory.ArticleRepository
	narratives *memory.NarrativeRepository
	publisher  *messaging.RecordingPublisher
	service    *DedupService
}

func newDedupFixture(t *testing.T) *dedupFixture {
	t.Helper()
	observability.ResetForTesting()

	f := &dedupFixture{
		articles:   memory.NewArticleRepository(),
		narratives: memory.NewNarrativeRepository(),
		publisher:  messaging.NewRecordingPublisher(),
	}
	f.service = NewDedupService(
		f.narratives,
		f.articles,
		domainservices.NewDefaultSimilarityMatcher(nil),
		f.publisher,
		observability.NewCollector("pulse_test"),
		testDetectionConfig(),
		zap.NewNop(),
	)
	return f
}

// seedNarrative stores a narrative with the given entities plus one assigned
// article per id so reassignment can be observed.
func (f *dedupFixture) seedNarrative(t *testing.T, ents []string, articleIDs []string) *entities.Narrative {
	t.Helper()
	now := time.Now().UTC()
	fp := valueobjects.ReconstructFingerprint(ents[0], ents[1:], []string{"happened"})

	n, err := entities.NewNarrative(fmt.Sprintf("%s narrative", ents[0]), articleIDs, fp, ents, now.Add(-48*time.Hour), now)
	require.NoError(t, err)
	n.PullEvents()
	require.NoError(t, f.narratives.Upsert(context.Background(), n))

	for _, id := range articleIDs {
		f.articles.Seed(&entities.Article{
			ID:          id,
			Title:       "article " + id,
			Text:        "body",
			PublishedAt: now.Add(-24 * time.Hour),
			NarrativeID: n.ID().String(),
		})
	}
	return n
}

func articleIDRange(prefix string, count int) []string {
	ids := make([]string, count)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%d", prefix, i)
	}
	return ids
}

func TestDedupServiceRunSweep(t *testing.T) {
	ctx := context.Background()

	t.Run("MergesNearDuplicatePair", func(t *testing.T) {
		f := newDedupFixture(t)
		small := f.seedNarrative(t, []string{"SEC", "Binance", "CZ"}, articleIDRange("small", 3))
		big := f.seedNarrative(t, []string{"SEC", "Binance", "CZ"}, articleIDRange("big", 5))

		result, err := f.service.RunSweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.GroupsMerged)
		assert.Equal(t, 1, result.NarrativesMerged)

		survivor, err := f.narratives.GetByID(ctx, big.ID())
		require.NoError(t, err)
		assert.False(t, survivor.IsTombstone())
		assert.Equal(t, 8, survivor.ArticleCount())

		loser, err := f.narratives.GetByID(ctx, small.ID())
		require.NoError(t, err)
		assert.True(t, loser.IsTombstone())
		assert.Equal(t, big.ID(), loser.MergedInto())
	})

	t.Run("RepointsLoserArticles", func(t *testing.T) {
		f := newDedupFixture(t)
		f.seedNarrative(t, []string{"SEC", "Binance", "CZ"}, articleIDRange("small", 3))
		big := f.seedNarrative(t, []string{"SEC", "Binance", "CZ"}, articleIDRange("big", 5))

		_, err := f.service.RunSweep(ctx)
		require.NoError(t, err)

		for _, id := range articleIDRange("small", 3) {
			article, err := f.articles.GetByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, big.ID().String(), article.NarrativeID)
		}
	})

	t.Run("PublishesMergedEvent", func(t *testing.T) {
		f := newDedupFixture(t)
		f.seedNarrative(t, []string{"SEC", "Binance", "CZ"}, articleIDRange("small", 3))
		f.seedNarrative(t, []string{"SEC", "Binance", "CZ"}, articleIDRange("big", 5))

		_, err := f.service.RunSweep(ctx)
		require.NoError(t, err)

		merged := f.publisher.EventsOfType(events.TypeNarrativesMerged)
		require.Len(t, merged, 1)
	})

	t.Run("DissimilarNarrativesSurviveUntouched", func(t *testing.T) {
		f := newDedupFixture(t)
		f.seedNarrative(t, []string{"SEC", "Binance", "CZ"}, articleIDRange("sec", 3))
		f.seedNarrative(t, []string{"Tether", "Bitfinex", "USDC"}, articleIDRange("usdt", 3))

		result, err := f.service.RunSweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.PairsCompared)
		assert.Equal(t, 0, result.GroupsMerged)
		assert.Equal(t, 2, f.narratives.Len())
	})

	t.Run("EqualSizesTieBreakOnSmallestID", func(t *testing.T) {
		f := newDedupFixture(t)
		a := f.seedNarrative(t, []string{"SEC", "Binance", "CZ"}, articleIDRange("a", 3))
		b := f.seedNarrative(t, []string{"SEC", "Binance", "CZ"}, articleIDRange("b", 3))

		want, lose := a, b
		if b.ID().Less(a.ID()) {
			want, lose = b, a
		}

		_, err := f.service.RunSweep(ctx)
		require.NoError(t, err)

		survivor, err := f.narratives.GetByID(ctx, want.ID())
		require.NoError(t, err)
		assert.False(t, survivor.IsTombstone())

		loser, err := f.narratives.GetByID(ctx, lose.ID())
		require.NoError(t, err)
		assert.True(t, loser.IsTombstone())
	})

	t.Run("TransitiveGroupCollapsesToOneSurvivor", func(t *testing.T) {
		f := newDedupFixture(t)
		// a~b and b~c score 0.75 while a~c alone scores under the threshold,
		// so the pair links pull all three into one group.
		f.seedNarrative(t, []string{"E1", "E2", "E3", "E4", "E5", "E6", "E7"}, articleIDRange("a", 3))
		f.seedNarrative(t, []string{"E2", "E3", "E4", "E5", "E6", "E7", "E8"}, articleIDRange("b", 4))
		f.seedNarrative(t, []string{"E3", "E4", "E5", "E6", "E7", "E8", "E9"}, articleIDRange("c", 5))

		result, err := f.service.RunSweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.GroupsMerged)
		assert.Equal(t, 2, result.NarrativesMerged)

		active, err := f.narratives.FindActive(ctx, time.Time{})
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, 12, active[0].ArticleCount())
	})

	t.Run("SecondSweepIsIdempotent", func(t *testing.T) {
		f := newDedupFixture(t)
		f.seedNarrative(t, []string{"SEC", "Binance", "CZ"}, articleIDRange("small", 3))
		f.seedNarrative(t, []string{"SEC", "Binance", "CZ"}, articleIDRange("big", 5))

		_, err := f.service.RunSweep(ctx)
		require.NoError(t, err)

		result, err := f.service.RunSweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, result.GroupsMerged)
	})

	t.Run("ThresholdIsTunable", func(t *testing.T) {
		f := newDedupFixture(t)
		// Jaccard 0.5 merges only after the threshold is lowered.
		f.seedNarrative(t, []string{"SEC", "Binance", "CZ"}, articleIDRange("x", 3))
		f.seedNarrative(t, []string{"SEC", "Binance", "Kraken"}, articleIDRange("y", 3))

		result, err := f.service.RunSweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, result.GroupsMerged)

		f.service.ApplyTunables(&config.DynamicConfig{
			Matching: config.MatchingTunables{DedupThreshold: 0.5},
		})

		result, err = f.service.RunSweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.GroupsMerged)
	})
}
