package types

// ElementClass names the two kinds of graph element.
type ElementClass string

const (
	ClassEntity ElementClass = "Entity"
	ClassEdge   ElementClass = "Edge"
)

// Properties holds arbitrary element properties. Properties never take part
// in element identity.
type Properties map[string]any

// Element is a graph element: either an Entity or an Edge.
type Element interface {
	// Key returns the canonical identity of the element.
	Key() ElementKey

	// Class reports whether the element is an entity or an edge.
	Class() ElementClass

	isElement()
}

// ElementKey is the comparable identity of an element. Two elements are the
// same physical element iff their keys are equal.
//
// For an entity, Vertex holds the entity vertex and Other is empty. For an
// edge, Vertex and Other hold the endpoints; undirected edges store them in
// canonical (sorted) order.
type ElementKey struct {
	Class    ElementClass
	Group    Group
	Vertex   VertexID
	Other    VertexID
	Directed bool
}

// Entity associates a single vertex with a group.
type Entity struct {
	Group      Group      `json:"group"`
	Vertex     VertexID   `json:"vertex"`
	Properties Properties `json:"properties,omitempty"`
}

// NewEntity creates an entity with no properties.
func NewEntity(group Group, vertex VertexID) Entity {
	return Entity{Group: group, Vertex: vertex}
}

// Key returns the (group, vertex) identity of the entity.
func (e Entity) Key() ElementKey {
	return ElementKey{Class: ClassEntity, Group: e.Group, Vertex: e.Vertex}
}

// Class returns ClassEntity.
func (e Entity) Class() ElementClass { return ClassEntity }

// Equal reports whether e and o are the same entity.
func (e Entity) Equal(o Entity) bool { return e.Key() == o.Key() }

func (Entity) isElement() {}

// Edge relates two vertices. Directed edges run from Source to Destination;
// for undirected edges the order of the endpoints carries no meaning.
type Edge struct {
	Group       Group      `json:"group"`
	Source      VertexID   `json:"source"`
	Destination VertexID   `json:"destination"`
	Directed    bool       `json:"directed"`
	Properties  Properties `json:"properties,omitempty"`
}

// NewEdge creates an edge. Undirected edges are stored in canonical
// orientation, smaller vertex first.
func NewEdge(group Group, source, destination VertexID, directed bool) Edge {
	return Edge{Group: group, Source: source, Destination: destination, Directed: directed}.Canonical()
}

// Canonical returns the edge in canonical orientation. Directed edges are
// returned unchanged.
func (e Edge) Canonical() Edge {
	if !e.Directed {
		e.Source, e.Destination = CanonicalPair(e.Source, e.Destination)
	}
	return e
}

// Key returns the identity of the edge: group, endpoints and directedness,
// with endpoints unordered when the edge is undirected.
func (e Edge) Key() ElementKey {
	c := e.Canonical()
	return ElementKey{
		Class:    ClassEdge,
		Group:    c.Group,
		Vertex:   c.Source,
		Other:    c.Destination,
		Directed: c.Directed,
	}
}

// Class returns ClassEdge.
func (e Edge) Class() ElementClass { return ClassEdge }

// Equal reports whether e and o are the same edge.
func (e Edge) Equal(o Edge) bool { return e.Key() == o.Key() }

// Touches reports whether v is an endpoint of e.
func (e Edge) Touches(v VertexID) bool {
	return e.Source == v || e.Destination == v
}

func (Edge) isElement() {}

// CanonicalPair orders two vertices so that the smaller comes first.
func CanonicalPair(a, b VertexID) (VertexID, VertexID) {
	if b < a {
		return b, a
	}
	return a, b
}
