package valueobjects

import (
	"github.com/google/uuid"

	pkgerrors "pulse-backend/pkg/errors"
)

// NarrativeID is a value object that ensures valid narrative identifiers
type NarrativeID struct {
	value string
}

// NewNarrativeID creates a new random NarrativeID
func NewNarrativeID() NarrativeID {
	return NarrativeID{value: uuid.New().String()}
}

// ParseNarrativeID creates a NarrativeID from a string, validating it's a proper UUID
func ParseNarrativeID(id string) (NarrativeID, error) {
	if _, err := uuid.Parse(id); err != nil {
		return NarrativeID{}, pkgerrors.NewValidation("invalid narrative id: " + id)
	}
	return NarrativeID{value: id}, nil
}

// String returns the string representation of the NarrativeID
func (id NarrativeID) String() string {
	return id.value
}

// Equals checks if two NarrativeIDs are equal
func (id NarrativeID) Equals(other NarrativeID) bool {
	return id.value == other.value
}

// IsEmpty checks if the NarrativeID is empty
func (id NarrativeID) IsEmpty() bool {
	return id.value == ""
}

// Less provides the deterministic ordering used for tie-breaking when two
// candidates score identically during matching or merging.
func (id NarrativeID) Less(other NarrativeID) bool {
	return id.value < other.value
}
