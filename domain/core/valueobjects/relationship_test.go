package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityRelationship(t *testing.T) {
	t.Run("CanonicalizesOrder", func(t *testing.T) {
		rel := NewEntityRelationship("SEC", "Binance", 3)
		assert.Equal(t, "Binance", rel.EntityA)
		assert.Equal(t, "SEC", rel.EntityB)
	})

	t.Run("ReversedPairsShareKey", func(t *testing.T) {
		a := NewEntityRelationship("SEC", "Binance", 1)
		b := NewEntityRelationship("Binance", "SEC", 7)
		assert.Equal(t, a.Key(), b.Key())
	})
}
