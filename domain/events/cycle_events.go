package events

import "time"

// DetectionCycleCompleted summarizes one run of the detection pipeline.
type DetectionCycleCompleted struct {
	BaseEvent
	ArticlesProcessed int     `json:"articlesProcessed"`
	ArticlesSkipped   int     `json:"articlesSkipped"`
	ClustersFormed    int     `json:"clustersFormed"`
	NarrativesCreated int     `json:"narrativesCreated"`
	NarrativesUpdated int     `json:"narrativesUpdated"`
	DurationSeconds   float64 `json:"durationSeconds"`
}

// NewDetectionCycleCompleted creates a new detection cycle completed event
func NewDetectionCycleCompleted(processed, skipped, clusters, created, updated int, duration time.Duration) *DetectionCycleCompleted {
	return &DetectionCycleCompleted{
		BaseEvent: BaseEvent{
			AggregateID: SourceWorker,
			EventType:   TypeDetectionCycleCompleted,
			Timestamp:   time.Now(),
			Version:     1,
		},
		ArticlesProcessed: processed,
		ArticlesSkipped:   skipped,
		ClustersFormed:    clusters,
		NarrativesCreated: created,
		NarrativesUpdated: updated,
		DurationSeconds:   duration.Seconds(),
	}
}

// IntegrityDefectsFound is emitted when the integrity sweep finds
// inconsistencies between narratives and the article store.
type IntegrityDefectsFound struct {
	BaseEvent
	MisassignedArticles  int `json:"misassignedArticles"`
	CountMismatches      int `json:"countMismatches"`
	DuplicateArticleRefs int `json:"duplicateArticleRefs"`
	DanglingArticleRefs  int `json:"danglingArticleRefs"`
	EmptyNarratives      int `json:"emptyNarratives"`
}

// NewIntegrityDefectsFound creates a new integrity defects event
func NewIntegrityDefectsFound(misassigned, countMismatches, duplicateRefs, danglingRefs, emptyNarratives int) *IntegrityDefectsFound {
	return &IntegrityDefectsFound{
		BaseEvent: BaseEvent{
			AggregateID: SourceWorker,
			EventType:   TypeIntegrityDefectsFound,
			Timestamp:   time.Now(),
			Version:     1,
		},
		MisassignedArticles:  misassigned,
		CountMismatches:      countMismatches,
		DuplicateArticleRefs: duplicateRefs,
		DanglingArticleRefs:  danglingRefs,
		EmptyNarratives:      emptyNarratives,
	}
}
