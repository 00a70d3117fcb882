package services

import (
	"sort"

	"pulse-backend/domain/core/entities"
	"pulse-backend/domain/core/valueobjects"
)

// ExtractRelationships derives weighted entity pairs from actor
// co-occurrence across the cluster's member articles. Pairs are
// canonicalized (EntityA < EntityB) so reversed duplicates collapse, ranked
// by count descending with a lexicographic tie-break, and truncated to the
// limit.
func ExtractRelationships(articles []*entities.Article, limit int) []valueobjects.EntityRelationship {
	counts := make(map[[2]string]int)

	for _, article := range articles {
		actors := uniqueActors(article.Extraction)
		for i := 0; i < len(actors); i++ {
			for j := i + 1; j < len(actors); j++ {
				rel := valueobjects.NewEntityRelationship(actors[i], actors[j], 0)
				counts[rel.Key()]++
			}
		}
	}

	rels := make([]valueobjects.EntityRelationship, 0, len(counts))
	for key, count := range counts {
		rels = append(rels, valueobjects.EntityRelationship{
			EntityA: key[0],
			EntityB: key[1],
			Weight:  count,
		})
	}

	sort.Slice(rels, func(i, j int) bool {
		if rels[i].Weight != rels[j].Weight {
			return rels[i].Weight > rels[j].Weight
		}
		if rels[i].EntityA != rels[j].EntityA {
			return rels[i].EntityA < rels[j].EntityA
		}
		return rels[i].EntityB < rels[j].EntityB
	})

	if limit > 0 && len(rels) > limit {
		rels = rels[:limit]
	}
	return rels
}

// uniqueActors returns the article's actors, deduplicated, with the nucleus
// entity included when the extractor did not already list it.
func uniqueActors(ex entities.Extraction) []string {
	seen := make(map[string]bool, len(ex.Actors)+1)
	actors := make([]string, 0, len(ex.Actors)+1)
	if ex.HasNucleus() {
		seen[ex.NucleusEntity] = true
		actors = append(actors, ex.NucleusEntity)
	}
	for _, actor := range ex.Actors {
		if actor == "" || seen[actor] {
			continue
		}
		seen[actor] = true
		actors = append(actors, actor)
	}
	return actors
}
