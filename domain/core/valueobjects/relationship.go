package valueobjects

// EntityRelationship is a weighted, unordered entity pair. Pairs are
// canonicalized so EntityA < EntityB lexicographically, which prevents
// duplicate reversed pairs.
type EntityRelationship struct {
	EntityA string
	EntityB string
	Weight  int
}

// NewEntityRelationship canonicalizes and builds a relationship pair.
func NewEntityRelationship(a, b string, weight int) EntityRelationship {
	if b < a {
		a, b = b, a
	}
	return EntityRelationship{EntityA: a, EntityB: b, Weight: weight}
}

// Key returns the canonical pair identity, independent of weight.
func (r EntityRelationship) Key() [2]string {
	return [2]string{r.EntityA, r.EntityB}
}
