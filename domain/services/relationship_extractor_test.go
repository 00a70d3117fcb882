package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse-backend/domain/core/entities"
	"pulse-backend/domain/core/valueobjects"
)

func TestExtractRelationships(t *testing.T) {
	base := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	t.Run("CanonicalizesPairOrder", func(t *testing.T) {
		articles := []*entities.Article{
			clusterTestArticle("a1", base, entities.Extraction{
				Actors: []string{"SEC", "Binance"},
			}),
			clusterTestArticle("a2", base, entities.Extraction{
				Actors: []string{"Binance", "SEC"},
			}),
		}

		rels := ExtractRelationships(articles, 5)
		require.Len(t, rels, 1)
		assert.Equal(t, valueobjects.EntityRelationship{EntityA: "Binance", EntityB: "SEC", Weight: 2}, rels[0])
	})

	t.Run("NucleusCountsAsActor", func(t *testing.T) {
		articles := []*entities.Article{
			clusterTestArticle("a1", base, entities.Extraction{
				NucleusEntity: "SEC",
				Actors:        []string{"Binance"},
			}),
		}

		rels := ExtractRelationships(articles, 5)
		require.Len(t, rels, 1)
		assert.Equal(t, "Binance", rels[0].EntityA)
		assert.Equal(t, "SEC", rels[0].EntityB)
	})

	t.Run("WeightsAccumulateAcrossArticles", func(t *testing.T) {
		articles := []*entities.Article{
			clusterTestArticle("a1", base, entities.Extraction{Actors: []string{"SEC", "Binance", "CZ"}}),
			clusterTestArticle("a2", base, entities.Extraction{Actors: []string{"SEC", "Binance"}}),
			clusterTestArticle("a3", base, entities.Extraction{Actors: []string{"SEC", "Binance"}}),
		}

		rels := ExtractRelationships(articles, 5)
		require.NotEmpty(t, rels)
		// The strongest pair sorts first.
		assert.Equal(t, "Binance", rels[0].EntityA)
		assert.Equal(t, "SEC", rels[0].EntityB)
		assert.Equal(t, 3, rels[0].Weight)
	})

	t.Run("CapsAtLimit", func(t *testing.T) {
		articles := []*entities.Article{
			clusterTestArticle("a1", base, entities.Extraction{
				Actors: []string{"A", "B", "C", "D", "E"},
			}),
		}

		// 5 actors yield 10 pairs
		rels := ExtractRelationships(articles, 5)
		assert.Len(t, rels, 5)
	})

	t.Run("EqualWeightsSortLexicographically", func(t *testing.T) {
		articles := []*entities.Article{
			clusterTestArticle("a1", base, entities.Extraction{Actors: []string{"B", "C"}}),
			clusterTestArticle("a2", base, entities.Extraction{Actors: []string{"A", "B"}}),
		}

		rels := ExtractRelationships(articles, 5)
		require.Len(t, rels, 2)
		assert.Equal(t, "A", rels[0].EntityA)
		assert.Equal(t, "B", rels[0].EntityB)
	})

	t.Run("DuplicateActorsWithinArticleCountOnce", func(t *testing.T) {
		articles := []*entities.Article{
			clusterTestArticle("a1", base, entities.Extraction{
				Actors: []string{"SEC", "Binance", "SEC"},
			}),
		}

		rels := ExtractRelationships(articles, 5)
		require.Len(t, rels, 1)
		assert.Equal(t, 1, rels[0].Weight)
	})

	t.Run("SingleActorYieldsNoPairs", func(t *testing.T) {
		articles := []*entities.Article{
			clusterTestArticle("a1", base, entities.Extraction{Actors: []string{"SEC"}}),
		}
		assert.Empty(t, ExtractRelationships(articles, 5))
	})
}
