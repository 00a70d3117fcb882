package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse-backend/domain/core/entities"
	"pulse-backend/domain/core/valueobjects"
)

func TestJaccard(t *testing.T) {
	t.Run("EmptySetsScoreZero", func(t *testing.T) {
		assert.Equal(t, 0.0, Jaccard(nil, nil))
		assert.Equal(t, 0.0, Jaccard([]string{}, []string{}))
	})

	t.Run("OneEmptySideScoresZero", func(t *testing.T) {
		assert.Equal(t, 0.0, Jaccard([]string{"SEC"}, nil))
		assert.Equal(t, 0.0, Jaccard(nil, []string{"SEC"}))
	})

	t.Run("IdenticalSetsScoreOne", func(t *testing.T) {
		assert.Equal(t, 1.0, Jaccard([]string{"SEC", "Binance"}, []string{"Binance", "SEC"}))
	})

	t.Run("PartialOverlap", func(t *testing.T) {
		// intersection 2, union 4
		got := Jaccard([]string{"a", "b", "c"}, []string{"b", "c", "d"})
		assert.InDelta(t, 0.5, got, 1e-9)
	})

	t.Run("Symmetric", func(t *testing.T) {
		a := []string{"SEC", "Binance", "CZ"}
		b := []string{"Binance", "Tether"}
		assert.Equal(t, Jaccard(a, b), Jaccard(b, a))
	})

	t.Run("DuplicatesTreatedAsSets", func(t *testing.T) {
		got := Jaccard([]string{"SEC", "SEC", "SEC"}, []string{"SEC"})
		assert.Equal(t, 1.0, got)
	})
}

func TestFingerprintSimilarity(t *testing.T) {
	matcher := NewDefaultSimilarityMatcher(nil)

	t.Run("IdenticalFingerprintsScoreOne", func(t *testing.T) {
		fp := valueobjects.ReconstructFingerprint("SEC", []string{"Binance", "CZ"}, []string{"sued"})
		assert.InDelta(t, 1.0, matcher.FingerprintSimilarity(fp, fp), 1e-9)
	})

	t.Run("NucleusMatchAloneScoresNucleusWeight", func(t *testing.T) {
		a := valueobjects.ReconstructFingerprint("SEC", []string{"Binance"}, []string{"sued"})
		b := valueobjects.ReconstructFingerprint("SEC", []string{"Tether"}, []string{"settled"})
		assert.InDelta(t, 0.4, matcher.FingerprintSimilarity(a, b), 1e-9)
	})

	t.Run("EmptyNucleiNeverCountAsMatching", func(t *testing.T) {
		a := valueobjects.ReconstructFingerprint("", []string{"Binance"}, nil)
		b := valueobjects.ReconstructFingerprint("", []string{"Binance"}, nil)
		assert.InDelta(t, 0.4, matcher.FingerprintSimilarity(a, b), 1e-9)
	})

	t.Run("WeightedComponents", func(t *testing.T) {
		// nucleus match (0.4) + actor jaccard 0.5 (0.2) + action jaccard 0 (0)
		a := valueobjects.ReconstructFingerprint("SEC", []string{"Binance"}, []string{"sued"})
		b := valueobjects.ReconstructFingerprint("SEC", []string{"Binance", "CZ"}, []string{"settled"})
		assert.InDelta(t, 0.6, matcher.FingerprintSimilarity(a, b), 1e-9)
	})
}

func similarityTestNarrative(t *testing.T, fp valueobjects.Fingerprint, ents []string, now time.Time) *entities.Narrative {
	t.Helper()
	n, err := entities.NewNarrative("test narrative", []string{"a1"}, fp, ents, now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	n.PullEvents()
	return n
}

func TestNarrativeSimilarity(t *testing.T) {
	matcher := NewDefaultSimilarityMatcher(nil)
	now := time.Now().UTC()
	fp := valueobjects.ReconstructFingerprint("SEC", []string{"Binance"}, []string{"sued"})

	t.Run("PlainJaccardOverEntities", func(t *testing.T) {
		a := similarityTestNarrative(t, fp, []string{"SEC", "Binance", "CZ"}, now)
		b := similarityTestNarrative(t, fp, []string{"SEC", "Binance", "Tether"}, now)
		assert.InDelta(t, 0.5, matcher.NarrativeSimilarity(a, b), 1e-9)
	})

	t.Run("NilNarrativeScoresZero", func(t *testing.T) {
		a := similarityTestNarrative(t, fp, []string{"SEC"}, now)
		assert.Equal(t, 0.0, matcher.NarrativeSimilarity(a, nil))
		assert.Equal(t, 0.0, matcher.NarrativeSimilarity(nil, a))
	})
}

func TestFindMatchingNarrative(t *testing.T) {
	matcher := NewDefaultSimilarityMatcher(nil)
	now := time.Now().UTC()

	t.Run("ThresholdBoundaryIsInclusive", func(t *testing.T) {
		// nucleus match plus actor jaccard 0.5 lands exactly on 0.6
		candidate := similarityTestNarrative(t,
			valueobjects.ReconstructFingerprint("SEC", []string{"Binance", "CZ"}, []string{"settled"}),
			[]string{"SEC"}, now)
		query := valueobjects.ReconstructFingerprint("SEC", []string{"Binance"}, []string{"sued"})

		match, score := matcher.FindMatchingNarrative(query, []*entities.Narrative{candidate})
		require.NotNil(t, match)
		assert.Equal(t, candidate.ID(), match.ID())
		assert.InDelta(t, 0.6, score, 1e-9)
	})

	t.Run("BelowThresholdReturnsNil", func(t *testing.T) {
		candidate := similarityTestNarrative(t,
			valueobjects.ReconstructFingerprint("Tether", []string{"Bitfinex"}, []string{"minted"}),
			[]string{"Tether"}, now)
		query := valueobjects.ReconstructFingerprint("SEC", []string{"Binance"}, []string{"sued"})

		match, _ := matcher.FindMatchingNarrative(query, []*entities.Narrative{candidate})
		assert.Nil(t, match)
	})

	t.Run("PicksHighestScore", func(t *testing.T) {
		query := valueobjects.ReconstructFingerprint("SEC", []string{"Binance", "CZ"}, []string{"sued"})
		partial := similarityTestNarrative(t,
			valueobjects.ReconstructFingerprint("SEC", []string{"Binance"}, []string{"settled"}),
			[]string{"SEC"}, now)
		exact := similarityTestNarrative(t, query, []string{"SEC"}, now)

		match, score := matcher.FindMatchingNarrative(query, []*entities.Narrative{partial, exact})
		require.NotNil(t, match)
		assert.Equal(t, exact.ID(), match.ID())
		assert.InDelta(t, 1.0, score, 1e-9)
	})

	t.Run("TiesBreakOnSmallestID", func(t *testing.T) {
		query := valueobjects.ReconstructFingerprint("SEC", []string{"Binance"}, []string{"sued"})
		a := similarityTestNarrative(t, query, []string{"SEC"}, now)
		b := similarityTestNarrative(t, query, []string{"SEC"}, now)

		want := a
		if b.ID().Less(a.ID()) {
			want = b
		}

		match, _ := matcher.FindMatchingNarrative(query, []*entities.Narrative{a, b})
		require.NotNil(t, match)
		assert.Equal(t, want.ID(), match.ID())

		// Result is independent of candidate order
		match, _ = matcher.FindMatchingNarrative(query, []*entities.Narrative{b, a})
		require.NotNil(t, match)
		assert.Equal(t, want.ID(), match.ID())
	})

	t.Run("SkipsTombstones", func(t *testing.T) {
		query := valueobjects.ReconstructFingerprint("SEC", []string{"Binance"}, []string{"sued"})
		merged := similarityTestNarrative(t, query, []string{"SEC"}, now)
		require.NoError(t, merged.MarkMergedInto(valueobjects.NewNarrativeID(), now))

		match, _ := matcher.FindMatchingNarrative(query, []*entities.Narrative{merged})
		assert.Nil(t, match)
	})

	t.Run("SkipsDormantNarratives", func(t *testing.T) {
		query := valueobjects.ReconstructFingerprint("SEC", []string{"Binance"}, []string{"sued"})
		stale := similarityTestNarrative(t, query, []string{"SEC"}, now.Add(-8*24*time.Hour))
		stale.Reclassify(now)
		require.Equal(t, valueobjects.StateDormant, stale.LifecycleState())

		match, _ := matcher.FindMatchingNarrative(query, []*entities.Narrative{stale})
		assert.Nil(t, match)
	})

	t.Run("NilCandidatesIgnored", func(t *testing.T) {
		query := valueobjects.ReconstructFingerprint("SEC", []string{"Binance"}, []string{"sued"})
		match, _ := matcher.FindMatchingNarrative(query, []*entities.Narrative{nil})
		assert.Nil(t, match)
	})
}
