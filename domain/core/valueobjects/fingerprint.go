package valueobjects

import (
	"sort"
)

// DefaultSalience is assumed for actors the extractor returned without a
// salience score.
const DefaultSalience = 3

// ClusterData is the input to fingerprint computation: the aggregated view
// of one article cluster. ActorOrder preserves first-seen order so that
// ranking ties resolve deterministically.
type ClusterData struct {
	NucleusEntity string
	ActorSalience map[string]int
	ActorOrder    []string
	Actions       []string
}

// Fingerprint is a compact, comparable signature of a narrative or cluster.
// It is embedded in the Narrative and recomputed whenever the underlying
// article set changes.
type Fingerprint struct {
	nucleusEntity string
	topActors     []string
	keyActions    []string
}

// ComputeFingerprint reduces cluster data to a fingerprint. Pure: the same
// input always yields the same actor and action ordering.
//
// An empty nucleus entity produces a low-confidence fingerprint that is
// still usable for matching; callers should check HasNucleus because
// similarity against it skews toward actor/action overlap only.
func ComputeFingerprint(data ClusterData, topActorLimit, keyActionLimit int) Fingerprint {
	return Fingerprint{
		nucleusEntity: data.NucleusEntity,
		topActors:     rankActors(data, topActorLimit),
		keyActions:    dedupeActions(data.Actions, keyActionLimit),
	}
}

// ReconstructFingerprint rebuilds a fingerprint from persisted data.
func ReconstructFingerprint(nucleus string, topActors, keyActions []string) Fingerprint {
	return Fingerprint{
		nucleusEntity: nucleus,
		topActors:     append([]string(nil), topActors...),
		keyActions:    append([]string(nil), keyActions...),
	}
}

// NucleusEntity returns the central entity, which may be empty.
func (f Fingerprint) NucleusEntity() string {
	return f.nucleusEntity
}

// HasNucleus reports whether the fingerprint carries a nucleus entity.
func (f Fingerprint) HasNucleus() bool {
	return f.nucleusEntity != ""
}

// TopActors returns the salience-ranked actor list (copy).
func (f Fingerprint) TopActors() []string {
	return append([]string(nil), f.topActors...)
}

// KeyActions returns the deduplicated action list (copy).
func (f Fingerprint) KeyActions() []string {
	return append([]string(nil), f.keyActions...)
}

// Merge folds fresh cluster signal into an existing fingerprint after new
// articles joined the narrative. The established nucleus wins; established
// actors keep their rank and new actors fill remaining slots; actions union
// in first-seen order. Limits are re-applied to the result.
func (f Fingerprint) Merge(data ClusterData, topActorLimit, keyActionLimit int) Fingerprint {
	nucleus := f.nucleusEntity
	if nucleus == "" {
		nucleus = data.NucleusEntity
	}

	actorOrder := append(append([]string(nil), f.topActors...), data.ActorOrder...)
	salience := make(map[string]int, len(data.ActorSalience)+len(f.topActors))
	for actor, s := range data.ActorSalience {
		salience[actor] = s
	}
	// Established top actors without fresh salience keep a top score so a
	// single new article cannot displace them.
	for _, actor := range f.topActors {
		if _, ok := salience[actor]; !ok {
			salience[actor] = 5
		}
	}

	return Fingerprint{
		nucleusEntity: nucleus,
		topActors: rankActors(ClusterData{
			ActorSalience: salience,
			ActorOrder:    actorOrder,
		}, topActorLimit),
		keyActions: dedupeActions(append(append([]string(nil), f.keyActions...), data.Actions...), keyActionLimit),
	}
}

// IsZero reports whether the fingerprint carries no signal at all.
func (f Fingerprint) IsZero() bool {
	return f.nucleusEntity == "" && len(f.topActors) == 0 && len(f.keyActions) == 0
}

// rankActors sorts actors by salience descending, breaking ties by
// first-seen order, and truncates to the limit.
func rankActors(data ClusterData, limit int) []string {
	order := data.ActorOrder
	if len(order) == 0 {
		// No recorded order: fall back to a sorted key list so the result
		// stays deterministic.
		order = make([]string, 0, len(data.ActorSalience))
		for actor := range data.ActorSalience {
			order = append(order, actor)
		}
		sort.Strings(order)
	}

	seen := make(map[string]bool, len(order))
	actors := make([]string, 0, len(order))
	rank := make(map[string]int, len(order))
	for i, actor := range order {
		if actor == "" || seen[actor] {
			continue
		}
		seen[actor] = true
		actors = append(actors, actor)
		rank[actor] = i
	}

	salience := func(actor string) int {
		if s, ok := data.ActorSalience[actor]; ok {
			return s
		}
		return DefaultSalience
	}

	sort.SliceStable(actors, func(i, j int) bool {
		si, sj := salience(actors[i]), salience(actors[j])
		if si != sj {
			return si > sj
		}
		return rank[actors[i]] < rank[actors[j]]
	})

	if limit > 0 && len(actors) > limit {
		actors = actors[:limit]
	}
	return actors
}

// dedupeActions removes exact duplicates (case-sensitive), preserving first
// occurrence order, and truncates to the limit.
func dedupeActions(actions []string, limit int) []string {
	seen := make(map[string]bool, len(actions))
	deduped := make([]string, 0, len(actions))
	for _, action := range actions {
		if action == "" || seen[action] {
			continue
		}
		seen[action] = true
		deduped = append(deduped, action)
	}
	if limit > 0 && len(deduped) > limit {
		deduped = deduped[:limit]
	}
	return deduped
}
