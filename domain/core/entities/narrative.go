package entities

import (
	"sort"
	"time"

	"pulse-backend/domain/core/valueobjects"
	"pulse-backend/domain/events"
	pkgerrors "pulse-backend/pkg/errors"
)

// MaxEntityRelationships caps the stored co-occurrence pairs per narrative.
const MaxEntityRelationships = 5

// Narrative is the aggregate root for a tracked storyline: a growing set of
// articles believed to describe the same real-world situation.
// This is a rich domain model with encapsulated business logic.
type Narrative struct {
	// Private fields ensure encapsulation
	id              valueobjects.NarrativeID
	theme           string
	summary         string
	entities        []string
	articleIDs      map[string]struct{}
	fingerprint     valueobjects.Fingerprint
	relationships   []valueobjects.EntityRelationship
	mentionVelocity float64
	lifecycleState  valueobjects.LifecycleState
	momentum        valueobjects.Momentum
	firstSeen       time.Time
	lastUpdated     time.Time
	timeline        []valueobjects.TimelineSnapshot
	peakActivity    *valueobjects.TimelineSnapshot
	daysActive      int
	mergedInto      valueobjects.NarrativeID
	version         int

	// Domain events that occurred during this aggregate's lifetime
	pendingEvents []events.DomainEvent
}

// NewNarrative creates a narrative from its first cluster of articles.
// firstSeen must be the earliest article's published time, not the
// processing time.
func NewNarrative(
	theme string,
	articleIDs []string,
	fingerprint valueobjects.Fingerprint,
	entities []string,
	firstSeen time.Time,
	now time.Time,
) (*Narrative, error) {
	if theme == "" {
		return nil, pkgerrors.NewValidation("theme cannot be empty")
	}
	if len(articleIDs) == 0 {
		return nil, pkgerrors.NewValidation("narrative requires at least one article")
	}
	if firstSeen.IsZero() {
		return nil, pkgerrors.NewValidation("firstSeen cannot be zero")
	}

	ids := make(map[string]struct{}, len(articleIDs))
	for _, id := range articleIDs {
		if id == "" {
			return nil, pkgerrors.NewValidation("article id cannot be empty")
		}
		ids[id] = struct{}{}
	}

	n := &Narrative{
		id:             valueobjects.NewNarrativeID(),
		theme:          theme,
		entities:       dedupeStrings(entities),
		articleIDs:     ids,
		fingerprint:    fingerprint,
		lifecycleState: valueobjects.StateEmerging,
		momentum:       valueobjects.MomentumStable,
		firstSeen:      firstSeen,
		lastUpdated:    now,
		daysActive:     1,
		version:        1,
		pendingEvents:  []events.DomainEvent{},
	}
	n.recomputeVelocity(now)

	n.addEvent(events.NewNarrativeCreated(
		n.id, theme, fingerprint.NucleusEntity(), len(ids), firstSeen,
	))

	return n, nil
}

// ReconstructNarrative rebuilds a narrative from repository data with
// preserved timestamps. No events are raised.
func ReconstructNarrative(
	id valueobjects.NarrativeID,
	theme, summary string,
	entities []string,
	articleIDs []string,
	fingerprint valueobjects.Fingerprint,
	relationships []valueobjects.EntityRelationship,
	mentionVelocity float64,
	lifecycleState valueobjects.LifecycleState,
	momentum valueobjects.Momentum,
	firstSeen, lastUpdated time.Time,
	timeline []valueobjects.TimelineSnapshot,
	peakActivity *valueobjects.TimelineSnapshot,
	daysActive int,
	mergedInto valueobjects.NarrativeID,
	version int,
) (*Narrative, error) {
	if id.IsEmpty() {
		return nil, pkgerrors.NewValidation("narrative id cannot be empty")
	}
	ids := make(map[string]struct{}, len(articleIDs))
	for _, aid := range articleIDs {
		ids[aid] = struct{}{}
	}
	var peak *valueobjects.TimelineSnapshot
	if peakActivity != nil {
		p := *peakActivity
		peak = &p
	}
	return &Narrative{
		id:              id,
		theme:           theme,
		summary:         summary,
		entities:        append([]string(nil), entities...),
		articleIDs:      ids,
		fingerprint:     fingerprint,
		relationships:   append([]valueobjects.EntityRelationship(nil), relationships...),
		mentionVelocity: mentionVelocity,
		lifecycleState:  lifecycleState,
		momentum:        momentum,
		firstSeen:       firstSeen,
		lastUpdated:     lastUpdated,
		timeline:        append([]valueobjects.TimelineSnapshot(nil), timeline...),
		peakActivity:    peak,
		daysActive:      daysActive,
		mergedInto:      mergedInto,
		version:         version,
		pendingEvents:   []events.DomainEvent{},
	}, nil
}

// Getters

func (n *Narrative) ID() valueobjects.NarrativeID                { return n.id }
func (n *Narrative) Theme() string                               { return n.theme }
func (n *Narrative) Summary() string                             { return n.summary }
func (n *Narrative) MentionVelocity() float64                    { return n.mentionVelocity }
func (n *Narrative) LifecycleState() valueobjects.LifecycleState { return n.lifecycleState }
func (n *Narrative) Momentum() valueobjects.Momentum             { return n.momentum }
func (n *Narrative) FirstSeen() time.Time                        { return n.firstSeen }
func (n *Narrative) LastUpdated() time.Time                      { return n.lastUpdated }
func (n *Narrative) DaysActive() int                             { return n.daysActive }
func (n *Narrative) Version() int                                { return n.version }
func (n *Narrative) Fingerprint() valueobjects.Fingerprint       { return n.fingerprint }

// ArticleCount is always len(articleIDs); the two can never drift inside the
// aggregate.
func (n *Narrative) ArticleCount() int {
	return len(n.articleIDs)
}

// ArticleIDs returns the member article ids in sorted order.
func (n *Narrative) ArticleIDs() []string {
	ids := make([]string, 0, len(n.articleIDs))
	for id := range n.articleIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ContainsArticle reports set membership.
func (n *Narrative) ContainsArticle(articleID string) bool {
	_, ok := n.articleIDs[articleID]
	return ok
}

// Entities returns the display entity list (copy).
func (n *Narrative) Entities() []string {
	return append([]string(nil), n.entities...)
}

// Relationships returns the weighted entity pairs (copy).
func (n *Narrative) Relationships() []valueobjects.EntityRelationship {
	return append([]valueobjects.EntityRelationship(nil), n.relationships...)
}

// Timeline returns the daily snapshots ordered by date (copy).
func (n *Narrative) Timeline() []valueobjects.TimelineSnapshot {
	return append([]valueobjects.TimelineSnapshot(nil), n.timeline...)
}

// PeakActivity returns the snapshot with the highest article count ever
// observed, or nil before the first snapshot.
func (n *Narrative) PeakActivity() *valueobjects.TimelineSnapshot {
	if n.peakActivity == nil {
		return nil
	}
	p := *n.peakActivity
	return &p
}

// MergedInto returns the survivor id when this record is a merge tombstone.
func (n *Narrative) MergedInto() valueobjects.NarrativeID {
	return n.mergedInto
}

// IsTombstone reports whether this narrative was merged away.
func (n *Narrative) IsTombstone() bool {
	return !n.mergedInto.IsEmpty()
}

// Mutations

// AddArticles unions article ids into the narrative. Re-adding an id is a
// set no-op, but recency is always refreshed: a matched cluster is fresh
// signal even when every member was already assigned, and lifecycle decay
// must not fire against it. Returns the number of ids actually added.
func (n *Narrative) AddArticles(articleIDs []string, now time.Time) int {
	added := 0
	for _, id := range articleIDs {
		if id == "" {
			continue
		}
		if _, ok := n.articleIDs[id]; ok {
			continue
		}
		n.articleIDs[id] = struct{}{}
		added++
	}
	n.touch(now)
	return added
}

// SetFingerprint replaces the fingerprint after the article set changed.
func (n *Narrative) SetFingerprint(fp valueobjects.Fingerprint) {
	n.fingerprint = fp
}

// SetSummary replaces the narrative summary.
func (n *Narrative) SetSummary(summary string) {
	n.summary = summary
}

// SetEntities replaces the display entity list.
func (n *Narrative) SetEntities(entities []string) {
	n.entities = dedupeStrings(entities)
}

// SetRelationships replaces the weighted pairs, keeping the heaviest up to
// the cap. Pairs are assumed canonical (EntityA < EntityB).
func (n *Narrative) SetRelationships(rels []valueobjects.EntityRelationship) {
	sorted := append([]valueobjects.EntityRelationship(nil), rels...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Weight > sorted[j].Weight
	})
	if len(sorted) > MaxEntityRelationships {
		sorted = sorted[:MaxEntityRelationships]
	}
	n.relationships = sorted
}

// Reclassify re-evaluates lifecycle state and momentum. Called on every
// upsert; the state is never cached stale.
func (n *Narrative) Reclassify(now time.Time) {
	previous := n.mentionVelocity
	n.recomputeVelocity(now)
	n.momentum = valueobjects.ClassifyMomentum(previous, n.mentionVelocity)
	n.lifecycleState = valueobjects.Classify(len(n.articleIDs), n.mentionVelocity, n.lastUpdated, now)
}

// RecordSnapshot appends the snapshot, or replaces the last entry when it
// falls on the same UTC day (idempotent re-upsert within a day). The peak
// only moves on a strictly greater article count, so it never regresses.
func (n *Narrative) RecordSnapshot(snap valueobjects.TimelineSnapshot) {
	if last := len(n.timeline) - 1; last >= 0 && n.timeline[last].SameDay(snap) {
		n.timeline[last] = snap
	} else {
		n.timeline = append(n.timeline, snap)
	}

	if n.peakActivity == nil || snap.ArticleCount > n.peakActivity.ArticleCount {
		p := snap
		n.peakActivity = &p
	}

	n.daysActive = int(snap.Date.Sub(valueobjects.DayOf(n.firstSeen)).Hours()/24) + 1
}

// MarkUpdated raises the updated event after a detection cycle extended this
// narrative.
func (n *Narrative) MarkUpdated(articlesAdded int) {
	n.version++
	n.addEvent(events.NewNarrativeUpdated(
		n.id, articlesAdded, len(n.articleIDs), n.mentionVelocity, n.lifecycleState,
	))
}

// MarkMergedInto turns this narrative into a tombstone pointing at the
// survivor. The record is kept, never deleted.
func (n *Narrative) MarkMergedInto(survivor valueobjects.NarrativeID, now time.Time) error {
	if survivor.IsEmpty() || survivor.Equals(n.id) {
		return pkgerrors.NewValidation("invalid merge survivor id")
	}
	n.mergedInto = survivor
	n.touch(now)
	n.version++
	return nil
}

// AbsorbMerge folds a merged-away narrative into this survivor: entity
// union and article-id union. Title and summary stay unchanged.
func (n *Narrative) AbsorbMerge(other *Narrative, now time.Time) {
	n.entities = dedupeStrings(append(n.entities, other.entities...))
	for id := range other.articleIDs {
		n.articleIDs[id] = struct{}{}
	}
	if other.firstSeen.Before(n.firstSeen) {
		n.firstSeen = other.firstSeen
	}
	n.touch(now)
	n.recomputeVelocity(now)
	n.version++
}

// PullEvents returns and clears the pending domain events.
func (n *Narrative) PullEvents() []events.DomainEvent {
	evts := n.pendingEvents
	n.pendingEvents = []events.DomainEvent{}
	return evts
}

// internal helpers

func (n *Narrative) touch(now time.Time) {
	n.lastUpdated = now
}

// recomputeVelocity derives articles/day over the narrative's lifetime.
// Narratives younger than a day use a one-day floor to avoid inflated rates.
func (n *Narrative) recomputeVelocity(now time.Time) {
	days := now.Sub(n.firstSeen).Hours() / 24
	if days < 1 {
		days = 1
	}
	n.mentionVelocity = float64(len(n.articleIDs)) / days
}

func (n *Narrative) addEvent(event events.DomainEvent) {
	n.pendingEvents = append(n.pendingEvents, event)
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
