package valueobjects

import "time"

// TimelineSnapshot captures one UTC calendar day of narrative activity.
// A narrative's timeline holds at most one snapshot per day; a same-day
// update replaces the previous entry.
type TimelineSnapshot struct {
	Date         time.Time
	ArticleCount int
	Entities     []string
	Velocity     float64
}

// NewTimelineSnapshot builds a snapshot truncated to day granularity (UTC).
func NewTimelineSnapshot(at time.Time, articleCount int, entities []string, velocity float64) TimelineSnapshot {
	return TimelineSnapshot{
		Date:         DayOf(at),
		ArticleCount: articleCount,
		Entities:     append([]string(nil), entities...),
		Velocity:     velocity,
	}
}

// SameDay reports whether two snapshots fall on the same UTC calendar day.
func (s TimelineSnapshot) SameDay(other TimelineSnapshot) bool {
	return s.Date.Equal(other.Date)
}

// DayOf truncates a timestamp to its UTC calendar day.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
