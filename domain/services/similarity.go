package services

import (
	"pulse-backend/domain/core/entities"
	"pulse-backend/domain/core/valueobjects"
)

// SimilarityMatcher scores fingerprints and narratives for closeness
// This is a domain service that encapsulates the matching algorithms
type SimilarityMatcher interface {
	// FingerprintSimilarity scores two fingerprints (0.0 to 1.0)
	FingerprintSimilarity(a, b valueobjects.Fingerprint) float64

	// NarrativeSimilarity scores two narratives by their display entities.
	// Deliberately cheaper than fingerprint similarity; used by the dedup
	// sweep which runs over the full recently-active population.
	NarrativeSimilarity(a, b *entities.Narrative) float64

	// FindMatchingNarrative returns the best-scoring candidate at or above
	// the match threshold, or nil when none qualifies.
	FindMatchingNarrative(fp valueobjects.Fingerprint, candidates []*entities.Narrative) (*entities.Narrative, float64)
}

// SimilarityConfig configures fingerprint matching. Weights must sum to 1;
// the nucleus carries the most weight because two articles about the same
// named entity are almost certainly the same storyline.
type SimilarityConfig struct {
	NucleusWeight  float64
	ActorWeight    float64
	ActionWeight   float64
	MatchThreshold float64
}

// DefaultSimilarityConfig returns a balanced default configuration
func DefaultSimilarityConfig() *SimilarityConfig {
	return &SimilarityConfig{
		NucleusWeight:  0.4,
		ActorWeight:    0.4,
		ActionWeight:   0.2,
		MatchThreshold: 0.6,
	}
}

// DefaultSimilarityMatcher provides similarity scoring using weighted
// Jaccard overlap
type DefaultSimilarityMatcher struct {
	config *SimilarityConfig
}

// NewDefaultSimilarityMatcher creates a new similarity matcher
func NewDefaultSimilarityMatcher(config *SimilarityConfig) *DefaultSimilarityMatcher {
	if config == nil {
		config = DefaultSimilarityConfig()
	}
	return &DefaultSimilarityMatcher{config: config}
}

// Compile-time interface check
var _ SimilarityMatcher = (*DefaultSimilarityMatcher)(nil)

// FingerprintSimilarity combines a nucleus exact-match indicator with
// Jaccard overlap over top actors and key actions.
func (m *DefaultSimilarityMatcher) FingerprintSimilarity(a, b valueobjects.Fingerprint) float64 {
	nucleus := 0.0
	if a.HasNucleus() && b.HasNucleus() && a.NucleusEntity() == b.NucleusEntity() {
		nucleus = 1.0
	}

	actorSim := Jaccard(a.TopActors(), b.TopActors())
	actionSim := Jaccard(a.KeyActions(), b.KeyActions())

	return nucleus*m.config.NucleusWeight +
		actorSim*m.config.ActorWeight +
		actionSim*m.config.ActionWeight
}

// NarrativeSimilarity is plain Jaccard over each narrative's flat entity list.
func (m *DefaultSimilarityMatcher) NarrativeSimilarity(a, b *entities.Narrative) float64 {
	if a == nil || b == nil {
		return 0.0
	}
	return Jaccard(a.Entities(), b.Entities())
}

// FindMatchingNarrative computes fingerprint similarity against every
// candidate and returns the argmax when its score meets the threshold
// (inclusive boundary). Tombstones and unreachable states never match.
// Equal scores tie-break on the lexicographically smallest narrative id so
// the result does not depend on pool iteration order.
func (m *DefaultSimilarityMatcher) FindMatchingNarrative(
	fp valueobjects.Fingerprint,
	candidates []*entities.Narrative,
) (*entities.Narrative, float64) {
	var best *entities.Narrative
	bestScore := 0.0

	for _, candidate := range candidates {
		if candidate == nil || candidate.IsTombstone() || !candidate.LifecycleState().Reachable() {
			continue
		}

		score := m.FingerprintSimilarity(fp, candidate.Fingerprint())
		if score < m.config.MatchThreshold {
			continue
		}

		switch {
		case best == nil, score > bestScore:
			best, bestScore = candidate, score
		case score == bestScore && candidate.ID().Less(best.ID()):
			best = candidate
		}
	}

	return best, bestScore
}

// Jaccard calculates the Jaccard index |A∩B| / |A∪B| over two string lists
// treated as sets. Two empty sets score 0.0, not 1.0.
func Jaccard(a, b []string) float64 {
	union := make(map[string]bool, len(a)+len(b))
	setA := make(map[string]bool, len(a))
	for _, v := range a {
		setA[v] = true
		union[v] = true
	}

	intersection := 0
	seenB := make(map[string]bool, len(b))
	for _, v := range b {
		if seenB[v] {
			continue
		}
		seenB[v] = true
		union[v] = true
		if setA[v] {
			intersection++
		}
	}

	if len(union) == 0 {
		return 0.0
	}
	return float64(intersection) / float64(len(union))
}
