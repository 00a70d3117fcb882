// Package api defines the contracts for API requests and responses.
// It decouples the API structure from the internal domain models.
package api

// NarrativeResponse is the API representation of a single narrative.
type NarrativeResponse struct {
	ID              string                 `json:"id"`
	Theme           string                 `json:"theme"`
	Summary         string                 `json:"summary,omitempty"`
	Entities        []string               `json:"entities"`
	ArticleCount    int                    `json:"articleCount"`
	MentionVelocity float64                `json:"mentionVelocity"`
	LifecycleState  string                 `json:"lifecycleState"`
	Momentum        string                 `json:"momentum"`
	FirstSeen       string                 `json:"firstSeen"`
	LastUpdated     string                 `json:"lastUpdated"`
	DaysActive      int                    `json:"daysActive"`
	MergedInto      string                 `json:"mergedInto,omitempty"`
	Fingerprint     FingerprintResponse    `json:"fingerprint"`
	Relationships   []RelationshipResponse `json:"relationships,omitempty"`
}

// FingerprintResponse is the API representation of a narrative fingerprint.
type FingerprintResponse struct {
	NucleusEntity string   `json:"nucleusEntity,omitempty"`
	TopActors     []string `json:"topActors"`
	KeyActions    []string `json:"keyActions"`
}

// RelationshipResponse is a weighted entity co-occurrence pair.
type RelationshipResponse struct {
	EntityA string `json:"entityA"`
	EntityB string `json:"entityB"`
	Weight  int    `json:"weight"`
}

// SnapshotResponse is one timeline entry of a narrative.
type SnapshotResponse struct {
	Date         string   `json:"date"`
	ArticleCount int      `json:"articleCount"`
	Entities     []string `json:"entities"`
	Velocity     float64  `json:"velocity"`
}

// TimelineResponse is the full daily timeline of a narrative.
type TimelineResponse struct {
	NarrativeID  string             `json:"narrativeId"`
	Snapshots    []SnapshotResponse `json:"snapshots"`
	PeakActivity *SnapshotResponse  `json:"peakActivity,omitempty"`
}

// ListNarrativesResponse wraps a narrative collection.
type ListNarrativesResponse struct {
	Narratives []NarrativeResponse `json:"narratives"`
	Count      int                 `json:"count"`
}

// ErrorResponse is a standardized error message for API responses.
type ErrorResponse struct {
	Error string `json:"error"`
}
