package entities

import "time"

// Extraction holds the per-article output of the external LLM extraction
// collaborator. Fields tolerate absence: a missing nucleus, empty actor list
// or absent salience entry is valid data, not an error.
type Extraction struct {
	NucleusEntity string         `json:"nucleus_entity"`
	Actors        []string       `json:"actors"`
	ActorSalience map[string]int `json:"actor_salience"`
	Actions       []string       `json:"actions"`
	Tensions      []string       `json:"tensions"`
}

// HasNucleus reports whether the extractor identified a central entity.
func (e Extraction) HasNucleus() bool {
	return e.NucleusEntity != ""
}

// SalienceOf returns the actor's salience, falling back to the default when
// the extractor omitted a score.
func (e Extraction) SalienceOf(actor string, fallback int) int {
	if s, ok := e.ActorSalience[actor]; ok {
		return s
	}
	return fallback
}

// Article is produced by the ingestion and extraction collaborators and is
// read-only to this engine, except for the narrative back-reference written
// exactly once per article per detection cycle.
type Article struct {
	ID          string
	Title       string
	Text        string
	PublishedAt time.Time
	Extraction  Extraction

	// NarrativeID is the back-reference set after a detection cycle assigns
	// the article to a storyline. Empty until assigned.
	NarrativeID string
}

// IsAssigned reports whether the article already belongs to a narrative.
func (a *Article) IsAssigned() bool {
	return a.NarrativeID != ""
}
