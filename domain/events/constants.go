package events

// Event sources - These define where events originate from
const (
	// SourceBackend is the primary backend service source
	SourceBackend = "pulse.backend"

	// SourceWorker is the detection worker source
	SourceWorker = "pulse.worker"
)

// Event types - These define the types of events in the system
const (
	// Narrative events
	TypeNarrativeCreated = "narrative.created"
	TypeNarrativeUpdated = "narrative.updated"
	TypeNarrativesMerged = "narratives.merged"

	// Detection cycle events
	TypeDetectionCycleCompleted = "detection.cycle.completed"

	// Integrity events
	TypeIntegrityDefectsFound = "integrity.defects.found"
)
