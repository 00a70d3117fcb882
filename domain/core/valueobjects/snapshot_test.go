package valueobjects

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTimelineSnapshot(t *testing.T) {
	t.Run("TruncatesToUTCDay", func(t *testing.T) {
		at := time.Date(2026, 8, 20, 23, 45, 12, 0, time.FixedZone("UTC+2", 2*3600))
		snap := NewTimelineSnapshot(at, 4, []string{"SEC"}, 2.0)

		// 23:45 UTC+2 is 21:45 UTC, still the 20th.
		assert.Equal(t, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), snap.Date)
	})

	t.Run("CopiesEntitySlice", func(t *testing.T) {
		entities := []string{"SEC", "Binance"}
		snap := NewTimelineSnapshot(time.Now(), 1, entities, 1.0)
		entities[0] = "mutated"
		assert.Equal(t, "SEC", snap.Entities[0])
	})
}

func TestSameDay(t *testing.T) {
	morning := NewTimelineSnapshot(time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC), 1, nil, 1.0)
	evening := NewTimelineSnapshot(time.Date(2026, 8, 20, 22, 0, 0, 0, time.UTC), 5, nil, 2.0)
	nextDay := NewTimelineSnapshot(time.Date(2026, 8, 21, 0, 0, 1, 0, time.UTC), 5, nil, 2.0)

	assert.True(t, morning.SameDay(evening))
	assert.False(t, morning.SameDay(nextDay))
}

func TestDayOf(t *testing.T) {
	// Late evening in a western timezone lands on the next UTC day.
	local := time.Date(2026, 8, 20, 20, 0, 0, 0, time.FixedZone("UTC-5", -5*3600))
	assert.Equal(t, time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC), DayOf(local))
}
