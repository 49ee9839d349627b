package types

// SeedClass names the two kinds of query seed.
type SeedClass string

const (
	ClassEntitySeed SeedClass = "EntitySeed"
	ClassEdgeSeed   SeedClass = "EdgeSeed"
)

// Seed identifies a vertex or an edge to match against.
type Seed interface {
	// Vertices returns the vertices the seed touches: one for an entity seed,
	// two for an edge seed.
	Vertices() []VertexID

	isSeed()
}

// EntitySeed identifies a single vertex.
type EntitySeed struct {
	Vertex VertexID
}

// Vertices returns the seed vertex.
func (s EntitySeed) Vertices() []VertexID { return []VertexID{s.Vertex} }

func (EntitySeed) isSeed() {}

// EdgeSeed identifies a specific edge. Undirected edge seeds match edges in
// either orientation.
type EdgeSeed struct {
	Source      VertexID
	Destination VertexID
	Directed    bool
}

// Vertices returns the source and destination of the seed.
func (s EdgeSeed) Vertices() []VertexID { return []VertexID{s.Source, s.Destination} }

// Canonical returns the seed in canonical orientation.
func (s EdgeSeed) Canonical() EdgeSeed {
	if !s.Directed {
		s.Source, s.Destination = CanonicalPair(s.Source, s.Destination)
	}
	return s
}

func (EdgeSeed) isSeed() {}

// SeedOf returns the seed that identifies el exactly.
func SeedOf(el Element) Seed {
	switch e := el.(type) {
	case Entity:
		return EntitySeed{Vertex: e.Vertex}
	case Edge:
		return EdgeSeed{Source: e.Source, Destination: e.Destination, Directed: e.Directed}
	default:
		panic("types: unknown element type")
	}
}
