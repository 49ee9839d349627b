package engine

import "github.com/scrypster/seedgraph/pkg/types"

// KeyKind distinguishes vertex keys from edge keys.
type KeyKind uint8

const (
	KeyVertex KeyKind = iota + 1
	KeyEdge
)

// NormalizedKey is the canonical lookup form of a seed. Vertex is set for
// vertex keys; Source, Destination and Directed for edge keys. Undirected
// edge keys hold their endpoints in sorted order.
type NormalizedKey struct {
	Kind        KeyKind
	Vertex      types.VertexID
	Source      types.VertexID
	Destination types.VertexID
	Directed    bool
}

// Classify converts a seed into its normalized key.
func Classify(seed types.Seed) NormalizedKey {
	switch s := seed.(type) {
	case types.EntitySeed:
		return NormalizedKey{Kind: KeyVertex, Vertex: s.Vertex}
	case types.EdgeSeed:
		c := s.Canonical()
		return NormalizedKey{
			Kind:        KeyEdge,
			Source:      c.Source,
			Destination: c.Destination,
			Directed:    c.Directed,
		}
	default:
		panic("engine: unknown seed type")
	}
}

// Matches reports whether el has exactly the identity described by k.
// Groups are not consulted. A vertex key only matches entities and an edge
// key only matches edges of the same directedness.
func (k NormalizedKey) Matches(el types.Element) bool {
	switch e := el.(type) {
	case types.Entity:
		return k.Kind == KeyVertex && e.Vertex == k.Vertex
	case types.Edge:
		if k.Kind != KeyEdge || e.Directed != k.Directed {
			return false
		}
		c := e.Canonical()
		return c.Source == k.Source && c.Destination == k.Destination
	default:
		return false
	}
}
