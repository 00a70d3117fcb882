package valueobjects

import "time"

// LifecycleState describes how actively a narrative is being written about.
type LifecycleState string

const (
	StateEmerging LifecycleState = "emerging"
	StateRising   LifecycleState = "rising"
	StateHot      LifecycleState = "hot"
	StateCooling  LifecycleState = "cooling"
	StateDormant  LifecycleState = "dormant"
)

// Momentum is an informational growth indicator alongside the lifecycle state.
type Momentum string

const (
	MomentumGrowing   Momentum = "growing"
	MomentumStable    Momentum = "stable"
	MomentumDeclining Momentum = "declining"
)

// Classification thresholds. Recency windows are evaluated before any
// intensity check.
const (
	dormantAfter    = 7 * 24 * time.Hour
	coolingAfter    = 3 * 24 * time.Hour
	hotArticleCount = 7
	hotVelocity     = 3.0
	risingVelocity  = 1.5
)

// Classify maps narrative activity to a lifecycle state. Evaluated in strict
// priority order: recency dominates intensity, so a narrative with a large
// article count but no update in a week reads as dormant, never hot.
//
// Pure function; re-evaluated on every upsert and never cached.
func Classify(articleCount int, mentionVelocity float64, lastUpdated, now time.Time) LifecycleState {
	staleness := now.Sub(lastUpdated)

	switch {
	case staleness >= dormantAfter:
		return StateDormant
	case staleness >= coolingAfter:
		return StateCooling
	case articleCount >= hotArticleCount || mentionVelocity >= hotVelocity:
		return StateHot
	case mentionVelocity >= risingVelocity && articleCount < hotArticleCount:
		return StateRising
	default:
		return StateEmerging
	}
}

// Reachable reports whether a narrative in this state participates in the
// matching candidate pool. Dormant narratives do not silently reabsorb new
// articles; reactivation is a distinct administrative operation.
func (s LifecycleState) Reachable() bool {
	return s != StateDormant
}

// IsValid reports whether the state is one of the known values.
func (s LifecycleState) IsValid() bool {
	switch s {
	case StateEmerging, StateRising, StateHot, StateCooling, StateDormant:
		return true
	}
	return false
}

// ClassifyMomentum compares current velocity against the previous cycle's.
func ClassifyMomentum(previousVelocity, currentVelocity float64) Momentum {
	const epsilon = 0.1
	switch {
	case currentVelocity > previousVelocity+epsilon:
		return MomentumGrowing
	case currentVelocity < previousVelocity-epsilon:
		return MomentumDeclining
	default:
		return MomentumStable
	}
}
