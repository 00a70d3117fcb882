package ports

import (
	"context"
	"time"

	"pulse-backend/domain/core/entities"
	"pulse-backend/domain/core/valueobjects"
	"pulse-backend/domain/events"
)

// ArticleRefs is a narrative's article bookkeeping exactly as persisted:
// the stored count attribute and the raw id list, duplicates included.
type ArticleRefs struct {
	StoredCount int
	ArticleIDs  []string
}

// NarrativeRepository defines the interface for narrative persistence.
// This is a port in hexagonal architecture - the domain doesn't know about
// the implementation. Three query shapes are all the engine needs, so any
// document, relational, or key-value store with a secondary index can back it.
type NarrativeRepository interface {
	// Upsert persists a narrative (create or update). A single upsert is the
	// engine's atomicity unit.
	Upsert(ctx context.Context, narrative *entities.Narrative) error

	// GetByID retrieves a narrative by its ID
	GetByID(ctx context.Context, id valueobjects.NarrativeID) (*entities.Narrative, error)

	// FindActive retrieves non-tombstone narratives updated at or after the
	// cutoff whose lifecycle state is reachable. This is the matching
	// candidate pool, read once per cycle as a snapshot.
	FindActive(ctx context.Context, updatedSince time.Time) ([]*entities.Narrative, error)

	// FindByState retrieves narratives in a given lifecycle state
	FindByState(ctx context.Context, state valueobjects.LifecycleState, limit int) ([]*entities.Narrative, error)

	// GetArticleRefs reads a narrative's stored article count and raw id
	// list without rebuilding the aggregate. Rehydration deduplicates the
	// list and derives the count, which hides corrupt records; the
	// integrity sweep needs them as written.
	GetArticleRefs(ctx context.Context, id valueobjects.NarrativeID) (ArticleRefs, error)
}

// ArticleRepository is the engine's contract with the external article store.
type ArticleRepository interface {
	// FindUnassigned retrieves extracted articles published since the cutoff
	// that carry no narrative back-reference yet
	FindUnassigned(ctx context.Context, publishedSince time.Time, limit int) ([]*entities.Article, error)

	// GetByID retrieves an article by its ID
	GetByID(ctx context.Context, id string) (*entities.Article, error)

	// AssignNarrative writes the narrative back-reference; called exactly
	// once per article per detection cycle
	AssignNarrative(ctx context.Context, articleID string, narrativeID valueobjects.NarrativeID) error

	// ReassignNarrative repoints every article referencing a merged-away
	// narrative to the survivor
	ReassignNarrative(ctx context.Context, from, to valueobjects.NarrativeID) error
}

// Extractor is the LLM extraction collaborator: raw article text in,
// structured entities/actors/actions/tensions out.
type Extractor interface {
	// Extract analyzes one article's text. Transient failures are retried
	// internally; a returned error means the article is skipped for this
	// cycle only.
	Extract(ctx context.Context, article *entities.Article) (entities.Extraction, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}
