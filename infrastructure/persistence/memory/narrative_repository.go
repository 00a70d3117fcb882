// Package memory provides in-memory implementations of the persistence
// ports for tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"pulse-backend/application/ports"
	"pulse-backend/domain/core/entities"
	"pulse-backend/domain/core/valueobjects"
	pkgerrors "pulse-backend/pkg/errors"
)

// NarrativeRepository is an in-memory NarrativeRepository.
type NarrativeRepository struct {
	mu         sync.RWMutex
	narratives map[string]*entities.Narrative
	rawRefs    map[string]ports.ArticleRefs
}

// Compile-time interface check
var _ ports.NarrativeRepository = (*NarrativeRepository)(nil)

// NewNarrativeRepository creates an empty in-memory narrative repository.
func NewNarrativeRepository() *NarrativeRepository {
	return &NarrativeRepository{
		narratives: make(map[string]*entities.Narrative),
		rawRefs:    make(map[string]ports.ArticleRefs),
	}
}

// Upsert stores the narrative, replacing any previous version.
func (r *NarrativeRepository) Upsert(ctx context.Context, narrative *entities.Narrative) error {
	if narrative == nil {
		return pkgerrors.NewValidation("narrative cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.narratives[narrative.ID().String()] = narrative
	return nil
}

// GetByID retrieves a narrative by id.
func (r *NarrativeRepository) GetByID(ctx context.Context, id valueobjects.NarrativeID) (*entities.Narrative, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	narrative, ok := r.narratives[id.String()]
	if !ok {
		return nil, pkgerrors.NewNotFound("narrative not found: " + id.String())
	}
	return narrative, nil
}

// GetArticleRefs returns the narrative's article bookkeeping as stored.
// A seeded override takes precedence over the aggregate's derived values.
func (r *NarrativeRepository) GetArticleRefs(ctx context.Context, id valueobjects.NarrativeID) (ports.ArticleRefs, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if refs, ok := r.rawRefs[id.String()]; ok {
		return refs, nil
	}
	narrative, ok := r.narratives[id.String()]
	if !ok {
		return ports.ArticleRefs{}, pkgerrors.NewNotFound("narrative not found: " + id.String())
	}
	ids := narrative.ArticleIDs()
	return ports.ArticleRefs{StoredCount: len(ids), ArticleIDs: ids}, nil
}

// SeedArticleRefs overrides the stored article bookkeeping for one
// narrative, simulating a corrupt record in tests.
func (r *NarrativeRepository) SeedArticleRefs(id valueobjects.NarrativeID, refs ports.ArticleRefs) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rawRefs[id.String()] = refs
}

// FindActive returns non-tombstone narratives in a reachable lifecycle state
// updated at or after the cutoff, ordered by id for determinism.
func (r *NarrativeRepository) FindActive(ctx context.Context, updatedSince time.Time) ([]*entities.Narrative, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []*entities.Narrative
	for _, n := range r.narratives {
		if n.IsTombstone() || !n.LifecycleState().Reachable() {
			continue
		}
		if n.LastUpdated().Before(updatedSince) {
			continue
		}
		active = append(active, n)
	}

	sort.Slice(active, func(i, j int) bool {
		return active[i].ID().Less(active[j].ID())
	})
	return active, nil
}

// FindByState returns narratives in the given lifecycle state, up to limit.
func (r *NarrativeRepository) FindByState(ctx context.Context, state valueobjects.LifecycleState, limit int) ([]*entities.Narrative, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*entities.Narrative
	for _, n := range r.narratives {
		if n.IsTombstone() || n.LifecycleState() != state {
			continue
		}
		matched = append(matched, n)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ID().Less(matched[j].ID())
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Len reports how many narrative records exist, tombstones included.
func (r *NarrativeRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.narratives)
}
