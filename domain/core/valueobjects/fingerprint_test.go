package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeFingerprint(t *testing.T) {
	t.Run("RanksActorsBySalienceThenFirstSeen", func(t *testing.T) {
		data := ClusterData{
			NucleusEntity: "SEC",
			ActorSalience: map[string]int{"Binance": 5, "Coinbase": 5, "Kraken": 3},
			ActorOrder:    []string{"Coinbase", "Binance", "Kraken"},
			Actions:       []string{"sued", "fined"},
		}

		fp := ComputeFingerprint(data, 4, 5)

		assert.Equal(t, "SEC", fp.NucleusEntity())
		// Equal salience resolves by first-seen order: Coinbase before Binance.
		assert.Equal(t, []string{"Coinbase", "Binance", "Kraken"}, fp.TopActors())
		assert.Equal(t, []string{"sued", "fined"}, fp.KeyActions())
	})

	t.Run("Deterministic", func(t *testing.T) {
		data := ClusterData{
			NucleusEntity: "Bitcoin",
			ActorSalience: map[string]int{"MicroStrategy": 4, "BlackRock": 4, "Fidelity": 2},
			ActorOrder:    []string{"BlackRock", "MicroStrategy", "Fidelity"},
			Actions:       []string{"bought", "filed", "bought"},
		}

		a := ComputeFingerprint(data, 4, 5)
		b := ComputeFingerprint(data, 4, 5)

		assert.Equal(t, a.TopActors(), b.TopActors())
		assert.Equal(t, a.KeyActions(), b.KeyActions())
	})

	t.Run("CapsActorsAndActions", func(t *testing.T) {
		data := ClusterData{
			ActorSalience: map[string]int{"a": 5, "b": 4, "c": 3, "d": 2, "e": 1},
			ActorOrder:    []string{"a", "b", "c", "d", "e"},
			Actions:       []string{"1", "2", "3", "4", "5", "6", "7"},
		}

		fp := ComputeFingerprint(data, 3, 5)

		assert.Len(t, fp.TopActors(), 3)
		assert.Len(t, fp.KeyActions(), 5)
	})

	t.Run("DedupesActionsCaseSensitive", func(t *testing.T) {
		data := ClusterData{
			Actions: []string{"sued", "Sued", "sued"},
		}

		fp := ComputeFingerprint(data, 4, 5)

		// Exact-match dedup only; casing differences survive.
		assert.Equal(t, []string{"sued", "Sued"}, fp.KeyActions())
	})

	t.Run("MissingSalienceDefaultsToThree", func(t *testing.T) {
		data := ClusterData{
			ActorSalience: map[string]int{"major": 5, "minor": 1},
			ActorOrder:    []string{"minor", "unknown", "major"},
		}

		fp := ComputeFingerprint(data, 3, 5)

		// unknown gets salience 3: between major (5) and minor (1).
		assert.Equal(t, []string{"major", "unknown", "minor"}, fp.TopActors())
	})

	t.Run("EmptyNucleusStillUsable", func(t *testing.T) {
		data := ClusterData{
			ActorSalience: map[string]int{"Tether": 5},
			ActorOrder:    []string{"Tether"},
		}

		fp := ComputeFingerprint(data, 4, 5)

		assert.False(t, fp.HasNucleus())
		assert.False(t, fp.IsZero())
	})
}

func TestFingerprintMerge(t *testing.T) {
	t.Run("EstablishedNucleusWins", func(t *testing.T) {
		existing := ReconstructFingerprint("SEC", []string{"Binance"}, []string{"sued"})
		merged := existing.Merge(ClusterData{NucleusEntity: "CFTC"}, 4, 5)
		assert.Equal(t, "SEC", merged.NucleusEntity())
	})

	t.Run("AdoptsNucleusWhenMissing", func(t *testing.T) {
		existing := ReconstructFingerprint("", []string{"Binance"}, nil)
		merged := existing.Merge(ClusterData{NucleusEntity: "SEC"}, 4, 5)
		assert.Equal(t, "SEC", merged.NucleusEntity())
	})

	t.Run("UnionsActionsUpToCap", func(t *testing.T) {
		existing := ReconstructFingerprint("SEC", nil, []string{"sued", "fined"})
		merged := existing.Merge(ClusterData{Actions: []string{"fined", "settled"}}, 4, 3)
		assert.Equal(t, []string{"sued", "fined", "settled"}, merged.KeyActions())
	})
}
