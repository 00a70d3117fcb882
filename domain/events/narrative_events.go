package events

import (
	"time"

	"pulse-backend/domain/core/valueobjects"
)

// NarrativeCreated is emitted when a detection cycle starts a new storyline.
type NarrativeCreated struct {
	BaseEvent
	NarrativeID   string    `json:"narrativeId"`
	Theme         string    `json:"theme"`
	NucleusEntity string    `json:"nucleusEntity,omitempty"`
	ArticleCount  int       `json:"articleCount"`
	FirstSeen     time.Time `json:"firstSeen"`
}

// NewNarrativeCreated creates a new narrative created event
func NewNarrativeCreated(id valueobjects.NarrativeID, theme, nucleus string, articleCount int, firstSeen time.Time) *NarrativeCreated {
	return &NarrativeCreated{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   TypeNarrativeCreated,
			Timestamp:   time.Now(),
			Version:     1,
		},
		NarrativeID:   id.String(),
		Theme:         theme,
		NucleusEntity: nucleus,
		ArticleCount:  articleCount,
		FirstSeen:     firstSeen,
	}
}

// NarrativeUpdated is emitted when a detection cycle extends an existing storyline.
type NarrativeUpdated struct {
	BaseEvent
	NarrativeID     string  `json:"narrativeId"`
	ArticlesAdded   int     `json:"articlesAdded"`
	ArticleCount    int     `json:"articleCount"`
	MentionVelocity float64 `json:"mentionVelocity"`
	LifecycleState  string  `json:"lifecycleState"`
}

// NewNarrativeUpdated creates a new narrative updated event
func NewNarrativeUpdated(id valueobjects.NarrativeID, articlesAdded, articleCount int, velocity float64, state valueobjects.LifecycleState) *NarrativeUpdated {
	return &NarrativeUpdated{
		BaseEvent: BaseEvent{
			AggregateID: id.String(),
			EventType:   TypeNarrativeUpdated,
			Timestamp:   time.Now(),
			Version:     1,
		},
		NarrativeID:     id.String(),
		ArticlesAdded:   articlesAdded,
		ArticleCount:    articleCount,
		MentionVelocity: velocity,
		LifecycleState:  string(state),
	}
}

// NarrativesMerged is emitted when the dedup sweep collapses near-duplicate
// narratives into a survivor.
type NarrativesMerged struct {
	BaseEvent
	SurvivorID   string   `json:"survivorId"`
	MergedIDs    []string `json:"mergedIds"`
	ArticleCount int      `json:"articleCount"`
}

// NewNarrativesMerged creates a new narratives merged event
func NewNarrativesMerged(survivor valueobjects.NarrativeID, mergedIDs []string, articleCount int) *NarrativesMerged {
	return &NarrativesMerged{
		BaseEvent: BaseEvent{
			AggregateID: survivor.String(),
			EventType:   TypeNarrativesMerged,
			Timestamp:   time.Now(),
			Version:     1,
		},
		SurvivorID:   survivor.String(),
		MergedIDs:    mergedIDs,
		ArticleCount: articleCount,
	}
}
