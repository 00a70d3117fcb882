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

// ArticleRepository is an in-memory ArticleRepository.
type ArticleRepository struct {
	mu       sync.RWMutex
	articles map[string]*entities.Article
}

// Compile-time interface check
var _ ports.ArticleRepository = (*ArticleRepository)(nil)

// NewArticleRepository creates an empty in-memory article repository.
func NewArticleRepository() *ArticleRepository {
	return &ArticleRepository{
		articles: make(map[string]*entities.Article),
	}
}

// Seed inserts articles directly, for tests and local runs.
func (r *ArticleRepository) Seed(articles ...*entities.Article) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range articles {
		r.articles[a.ID] = a
	}
}

// FindUnassigned returns unassigned articles published at or after the
// cutoff, oldest first, up to limit.
func (r *ArticleRepository) FindUnassigned(ctx context.Context, publishedSince time.Time, limit int) ([]*entities.Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var unassigned []*entities.Article
	for _, a := range r.articles {
		if a.IsAssigned() || a.PublishedAt.Before(publishedSince) {
			continue
		}
		unassigned = append(unassigned, a)
	}

	sort.Slice(unassigned, func(i, j int) bool {
		if !unassigned[i].PublishedAt.Equal(unassigned[j].PublishedAt) {
			return unassigned[i].PublishedAt.Before(unassigned[j].PublishedAt)
		}
		return unassigned[i].ID < unassigned[j].ID
	})
	if limit > 0 && len(unassigned) > limit {
		unassigned = unassigned[:limit]
	}
	return unassigned, nil
}

// GetByID retrieves an article by id.
func (r *ArticleRepository) GetByID(ctx context.Context, id string) (*entities.Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	article, ok := r.articles[id]
	if !ok {
		return nil, pkgerrors.NewNotFound("article not found: " + id)
	}
	return article, nil
}

// AssignNarrative writes the narrative back-reference.
func (r *ArticleRepository) AssignNarrative(ctx context.Context, articleID string, narrativeID valueobjects.NarrativeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	article, ok := r.articles[articleID]
	if !ok {
		return pkgerrors.NewNotFound("article not found: " + articleID)
	}
	article.NarrativeID = narrativeID.String()
	return nil
}

// ReassignNarrative repoints every article referencing the merged-away id.
func (r *ArticleRepository) ReassignNarrative(ctx context.Context, from, to valueobjects.NarrativeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.articles {
		if a.NarrativeID == from.String() {
			a.NarrativeID = to.String()
		}
	}
	return nil
}
