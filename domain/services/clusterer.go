package services

import (
	"time"

	"pulse-backend/domain/core/entities"
	"pulse-backend/domain/core/valueobjects"
)

// Cluster is a transient, in-cycle grouping of articles sharing a nucleus or
// core actors. It exists only during one detection cycle and is never
// persisted.
type Cluster struct {
	Articles      []*entities.Article
	Nucleus       string
	ActorSalience map[string]int
	ActorOrder    []string
	Actions       []string
}

// ClusterData projects the cluster into the fingerprint engine's input.
func (c *Cluster) ClusterData() valueobjects.ClusterData {
	return valueobjects.ClusterData{
		NucleusEntity: c.Nucleus,
		ActorSalience: c.ActorSalience,
		ActorOrder:    c.ActorOrder,
		Actions:       c.Actions,
	}
}

// ArticleIDs returns the member article ids in input order.
func (c *Cluster) ArticleIDs() []string {
	ids := make([]string, len(c.Articles))
	for i, a := range c.Articles {
		ids[i] = a.ID
	}
	return ids
}

// EarliestPublished returns the earliest published time among members.
// A new narrative's firstSeen comes from here, never from processing time.
func (c *Cluster) EarliestPublished() time.Time {
	var earliest time.Time
	for _, a := range c.Articles {
		if earliest.IsZero() || a.PublishedAt.Before(earliest) {
			earliest = a.PublishedAt
		}
	}
	return earliest
}

// ClustererConfig configures salience clustering behavior
type ClustererConfig struct {
	// CoreActorSalience is the minimum salience for an actor to link two
	// articles on its own
	CoreActorSalience int
	// MinClusterSize is the smallest connected component that becomes a
	// cluster; smaller components are dropped for the cycle
	MinClusterSize int
}

// DefaultClustererConfig returns default configuration
func DefaultClustererConfig() *ClustererConfig {
	return &ClustererConfig{
		CoreActorSalience: 4,
		MinClusterSize:    3,
	}
}

// SalienceClusterer groups a batch of freshly-extracted articles into
// candidate storylines as connected components of the linkability graph.
// O(n²) over the batch, acceptable because batches are time-windowed.
type SalienceClusterer struct {
	config *ClustererConfig
}

// NewSalienceClusterer creates a new clusterer
func NewSalienceClusterer(config *ClustererConfig) *SalienceClusterer {
	if config == nil {
		config = DefaultClustererConfig()
	}
	return &SalienceClusterer{config: config}
}

// Cluster partitions the batch into clusters of linked articles. Components
// below MinClusterSize are dropped for this cycle; their articles remain
// available for future cycles.
func (sc *SalienceClusterer) Cluster(articles []*entities.Article) []*Cluster {
	if len(articles) == 0 {
		return nil
	}

	parent := make([]int, len(articles))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(i, j int) {
		ri, rj := find(i), find(j)
		if ri != rj {
			parent[rj] = ri
		}
	}

	for i := 0; i < len(articles); i++ {
		for j := i + 1; j < len(articles); j++ {
			if sc.linkable(articles[i], articles[j]) {
				union(i, j)
			}
		}
	}

	// Collect components preserving batch order
	components := make(map[int][]*entities.Article)
	roots := make([]int, 0)
	for i, a := range articles {
		root := find(i)
		if _, ok := components[root]; !ok {
			roots = append(roots, root)
		}
		components[root] = append(components[root], a)
	}

	clusters := make([]*Cluster, 0, len(roots))
	for _, root := range roots {
		members := components[root]
		if len(members) < sc.config.MinClusterSize {
			continue
		}
		clusters = append(clusters, buildCluster(members))
	}
	return clusters
}

// linkable reports whether two articles belong to the same storyline
// candidate: they share a non-empty nucleus entity, or share at least one
// core actor present in both articles' salience maps.
func (sc *SalienceClusterer) linkable(a, b *entities.Article) bool {
	ea, eb := a.Extraction, b.Extraction

	if ea.HasNucleus() && ea.NucleusEntity == eb.NucleusEntity {
		return true
	}

	for actor, sa := range ea.ActorSalience {
		if sa < sc.config.CoreActorSalience {
			continue
		}
		if sb, shared := eb.ActorSalience[actor]; shared && sb >= sc.config.CoreActorSalience {
			return true
		}
	}
	return false
}

// buildCluster aggregates member extractions: max salience per actor,
// first-seen actor and action order, and the most frequent nucleus entity
// (ties resolved by earliest appearance).
func buildCluster(members []*entities.Article) *Cluster {
	salience := make(map[string]int)
	order := make([]string, 0)
	actions := make([]string, 0)
	nucleusCount := make(map[string]int)
	nucleusOrder := make([]string, 0)

	for _, a := range members {
		ex := a.Extraction
		for _, actor := range ex.Actors {
			if actor == "" {
				continue
			}
			s := ex.SalienceOf(actor, valueobjects.DefaultSalience)
			if existing, ok := salience[actor]; ok {
				if s > existing {
					salience[actor] = s
				}
			} else {
				salience[actor] = s
				order = append(order, actor)
			}
		}
		actions = append(actions, ex.Actions...)
		if ex.HasNucleus() {
			if _, seen := nucleusCount[ex.NucleusEntity]; !seen {
				nucleusOrder = append(nucleusOrder, ex.NucleusEntity)
			}
			nucleusCount[ex.NucleusEntity]++
		}
	}

	nucleus := ""
	best := 0
	for _, candidate := range nucleusOrder {
		if nucleusCount[candidate] > best {
			nucleus = candidate
			best = nucleusCount[candidate]
		}
	}

	return &Cluster{
		Articles:      members,
		Nucleus:       nucleus,
		ActorSalience: salience,
		ActorOrder:    order,
		Actions:       actions,
	}
}
