package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse-backend/domain/core/valueobjects"
	"pulse-backend/domain/events"
	pkgerrors "pulse-backend/pkg/errors"
)

func newTestNarrative(t *testing.T, articleIDs []string, firstSeen, now time.Time) *Narrative {
	t.Helper()
	fp := valueobjects.ReconstructFingerprint("SEC", []string{"Binance"}, []string{"sued"})
	n, err := NewNarrative("SEC / Binance", articleIDs, fp, []string{"SEC", "Binance"}, firstSeen, now)
	require.NoError(t, err)
	return n
}

func TestNewNarrative(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	firstSeen := now.AddDate(0, 0, -2)

	t.Run("RaisesCreatedEvent", func(t *testing.T) {
		n := newTestNarrative(t, []string{"a1", "a2", "a3"}, firstSeen, now)

		evts := n.PullEvents()
		require.Len(t, evts, 1)
		assert.Equal(t, events.TypeNarrativeCreated, evts[0].GetEventType())
		// Events are cleared after being pulled.
		assert.Empty(t, n.PullEvents())
	})

	t.Run("StartsEmerging", func(t *testing.T) {
		n := newTestNarrative(t, []string{"a1"}, firstSeen, now)
		assert.Equal(t, valueobjects.StateEmerging, n.LifecycleState())
		assert.Equal(t, 1, n.DaysActive())
	})

	t.Run("VelocityOverLifetime", func(t *testing.T) {
		n := newTestNarrative(t, []string{"a1", "a2", "a3", "a4"}, firstSeen, now)
		// 4 articles over 2 days.
		assert.InDelta(t, 2.0, n.MentionVelocity(), 0.001)
	})

	t.Run("RejectsEmptyTheme", func(t *testing.T) {
		_, err := NewNarrative("", []string{"a1"}, valueobjects.Fingerprint{}, nil, firstSeen, now)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("RejectsZeroFirstSeen", func(t *testing.T) {
		_, err := NewNarrative("theme", []string{"a1"}, valueobjects.Fingerprint{}, nil, time.Time{}, now)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	})
}

func TestAddArticles(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	n := newTestNarrative(t, []string{"a1", "a2"}, now.AddDate(0, 0, -1), now)

	t.Run("SetSemantics", func(t *testing.T) {
		added := n.AddArticles([]string{"a2", "a3"}, now)
		assert.Equal(t, 1, added)
		assert.Equal(t, 3, n.ArticleCount())
		assert.Equal(t, []string{"a1", "a2", "a3"}, n.ArticleIDs())
	})

	t.Run("ReAddingIsNoOp", func(t *testing.T) {
		before := n.ArticleCount()
		added := n.AddArticles([]string{"a1", "a2", "a3"}, now)
		assert.Equal(t, 0, added)
		assert.Equal(t, before, n.ArticleCount())
	})

	t.Run("CountAlwaysMatchesIDs", func(t *testing.T) {
		assert.Equal(t, len(n.ArticleIDs()), n.ArticleCount())
	})

	t.Run("ReAddStillRefreshesRecency", func(t *testing.T) {
		stale := now.AddDate(0, 0, -4)
		n := newTestNarrative(t, []string{"a1", "a2", "a3"}, stale.AddDate(0, 0, -1), stale)

		added := n.AddArticles([]string{"a1", "a2"}, now)
		assert.Zero(t, added)
		assert.Equal(t, now, n.LastUpdated())

		// Fresh signal on the same articles must keep the narrative out of
		// the cooling window.
		n.Reclassify(now)
		assert.NotEqual(t, valueobjects.StateCooling, n.LifecycleState())
	})
}

func TestReclassify(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	t.Run("MomentumGrowsWithVelocity", func(t *testing.T) {
		n := newTestNarrative(t, []string{"a1", "a2"}, now.AddDate(0, 0, -2), now)
		// Baseline velocity is 1.0 articles/day.
		n.AddArticles([]string{"a3", "a4"}, now)
		n.Reclassify(now)

		assert.Equal(t, valueobjects.MomentumGrowing, n.Momentum())
		assert.Equal(t, valueobjects.StateRising, n.LifecycleState())
	})

	t.Run("HotOnCountAlone", func(t *testing.T) {
		firstSeen := now.AddDate(0, 0, -10)
		n := newTestNarrative(t, []string{"a1"}, firstSeen, now)
		n.AddArticles([]string{"a2", "a3", "a4", "a5", "a6", "a7"}, now)
		n.Reclassify(now)

		assert.Equal(t, valueobjects.StateHot, n.LifecycleState())
	})
}

func TestRecordSnapshot(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	n := newTestNarrative(t, []string{"a1", "a2", "a3"}, now.AddDate(0, 0, -2), now)

	t.Run("SameDayReplaces", func(t *testing.T) {
		n.RecordSnapshot(valueobjects.NewTimelineSnapshot(now, 3, nil, 1.5))
		n.RecordSnapshot(valueobjects.NewTimelineSnapshot(now.Add(2*time.Hour), 5, nil, 2.5))

		timeline := n.Timeline()
		require.Len(t, timeline, 1)
		assert.Equal(t, 5, timeline[0].ArticleCount)
	})

	t.Run("NewDayAppends", func(t *testing.T) {
		n.RecordSnapshot(valueobjects.NewTimelineSnapshot(now.AddDate(0, 0, 1), 6, nil, 2.0))
		assert.Len(t, n.Timeline(), 2)
	})

	t.Run("PeakNeverRegresses", func(t *testing.T) {
		require.NotNil(t, n.PeakActivity())
		peak := n.PeakActivity().ArticleCount

		n.RecordSnapshot(valueobjects.NewTimelineSnapshot(now.AddDate(0, 0, 2), 2, nil, 0.5))

		assert.Equal(t, peak, n.PeakActivity().ArticleCount)
	})

	t.Run("EqualCountKeepsEarlierPeak", func(t *testing.T) {
		peakDate := n.PeakActivity().Date
		n.RecordSnapshot(valueobjects.NewTimelineSnapshot(
			now.AddDate(0, 0, 3), n.PeakActivity().ArticleCount, nil, 0.5))

		assert.Equal(t, peakDate, n.PeakActivity().Date)
	})

	t.Run("DaysActiveFromFirstSeen", func(t *testing.T) {
		n.RecordSnapshot(valueobjects.NewTimelineSnapshot(now.AddDate(0, 0, 4), 9, nil, 1.0))
		// firstSeen is 2 days before now; snapshot is 4 days after now.
		assert.Equal(t, 7, n.DaysActive())
	})
}

func TestMerge(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	survivor := newTestNarrative(t, []string{"a1", "a2", "a3"}, now.AddDate(0, 0, -5), now)
	loser := newTestNarrative(t, []string{"b1", "b2", "b3", "b4", "b5"}, now.AddDate(0, 0, -8), now)
	loser.SetEntities([]string{"SEC", "Coinbase"})

	t.Run("AbsorbUnionsArticlesAndEntities", func(t *testing.T) {
		survivor.AbsorbMerge(loser, now)

		assert.Equal(t, 8, survivor.ArticleCount())
		assert.Contains(t, survivor.Entities(), "Coinbase")
		// firstSeen moves back to the earliest member's.
		assert.Equal(t, now.AddDate(0, 0, -8), survivor.FirstSeen())
	})

	t.Run("TitleUnchanged", func(t *testing.T) {
		assert.Equal(t, "SEC / Binance", survivor.Theme())
	})

	t.Run("TombstoneKeepsRecord", func(t *testing.T) {
		require.NoError(t, loser.MarkMergedInto(survivor.ID(), now))

		assert.True(t, loser.IsTombstone())
		assert.Equal(t, survivor.ID(), loser.MergedInto())
	})

	t.Run("CannotMergeIntoSelf", func(t *testing.T) {
		err := survivor.MarkMergedInto(survivor.ID(), now)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	})
}
