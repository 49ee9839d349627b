package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEdge_CanonicalisesUndirected(t *testing.T) {
	e := NewEdge("Edge", "b", "a", false)
	assert.Equal(t, VertexID("a"), e.Source)
	assert.Equal(t, VertexID("b"), e.Destination)

	d := NewEdge("Edge", "b", "a", true)
	assert.Equal(t, VertexID("b"), d.Source, "directed edges keep their orientation")
	assert.Equal(t, VertexID("a"), d.Destination)
}

func TestEdgeKey_UndirectedIsOrderInsensitive(t *testing.T) {
	ab := Edge{Group: "Edge", Source: "a", Destination: "b"}
	ba := Edge{Group: "Edge", Source: "b", Destination: "a"}

	assert.Equal(t, ab.Key(), ba.Key())
	assert.True(t, ab.Equal(ba))
}

func TestEdgeKey_DirectedIsOrderSensitive(t *testing.T) {
	ab := NewEdge("Edge", "a", "b", true)
	ba := NewEdge("Edge", "b", "a", true)

	assert.NotEqual(t, ab.Key(), ba.Key())
	assert.False(t, ab.Equal(ba))
}

func TestEdgeKey_DirectednessIsPartOfIdentity(t *testing.T) {
	directed := NewEdge("Edge", "a", "b", true)
	undirected := NewEdge("Edge", "a", "b", false)

	assert.NotEqual(t, directed.Key(), undirected.Key())
}

func TestElementKey_GroupIsPartOfIdentity(t *testing.T) {
	assert.NotEqual(t, NewEntity("A", "v").Key(), NewEntity("B", "v").Key())
	assert.NotEqual(t, NewEdge("A", "v", "w", false).Key(), NewEdge("B", "v", "w", false).Key())
}

func TestElementKey_PropertiesAreIgnored(t *testing.T) {
	plain := NewEntity("Entity", "v")
	rich := Entity{Group: "Entity", Vertex: "v", Properties: Properties{"count": 3}}

	assert.True(t, plain.Equal(rich))
}

func TestEntityAndEdgeKeysNeverCollide(t *testing.T) {
	entity := NewEntity("G", "v")
	loop := NewEdge("G", "v", "", false)

	assert.NotEqual(t, entity.Key(), loop.Key())
}

func TestEdgeTouches(t *testing.T) {
	e := NewEdge("Edge", "a", "b", true)
	assert.True(t, e.Touches("a"))
	assert.True(t, e.Touches("b"))
	assert.False(t, e.Touches("c"))
}

func TestSeedOf(t *testing.T) {
	t.Run("entity", func(t *testing.T) {
		s := SeedOf(NewEntity("Entity", "v1"))
		assert.Equal(t, EntitySeed{Vertex: "v1"}, s)
	})

	t.Run("edge", func(t *testing.T) {
		s := SeedOf(NewEdge("Edge", "v1", "v2", true))
		assert.Equal(t, EdgeSeed{Source: "v1", Destination: "v2", Directed: true}, s)
	})
}

func TestSeedVertices(t *testing.T) {
	assert.Equal(t, []VertexID{"v"}, EntitySeed{Vertex: "v"}.Vertices())
	assert.Equal(t, []VertexID{"s", "d"}, EdgeSeed{Source: "s", Destination: "d"}.Vertices())
}

func TestEdgeSeedCanonical(t *testing.T) {
	assert.Equal(t, EdgeSeed{Source: "a", Destination: "b"}, EdgeSeed{Source: "b", Destination: "a"}.Canonical())
	assert.Equal(t,
		EdgeSeed{Source: "b", Destination: "a", Directed: true},
		EdgeSeed{Source: "b", Destination: "a", Directed: true}.Canonical())
}

func TestIncludeEdgeTypeAccepts(t *testing.T) {
	tests := []struct {
		include    IncludeEdgeType
		directed   bool
		undirected bool
	}{
		{IncludeEdgesNone, false, false},
		{IncludeEdgesDirected, true, false},
		{IncludeEdgesUndirected, false, true},
		{IncludeEdgesAll, true, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.include), func(t *testing.T) {
			assert.Equal(t, tt.directed, tt.include.Accepts(true))
			assert.Equal(t, tt.undirected, tt.include.Accepts(false))
		})
	}
}

func TestParseEnums(t *testing.T) {
	m, err := ParseSeedMatching("related")
	require.NoError(t, err)
	assert.Equal(t, SeedMatchingRelated, m)

	e, err := ParseIncludeEdgeType(" Undirected ")
	require.NoError(t, err)
	assert.Equal(t, IncludeEdgesUndirected, e)

	d, err := ParseIncludeIncomingOutgoing("incoming")
	require.NoError(t, err)
	assert.Equal(t, IncludeIncoming, d)

	_, err = ParseSeedMatching("fuzzy")
	assert.ErrorIs(t, err, ErrInvalidEnum)
	_, err = ParseIncludeEdgeType("some")
	assert.ErrorIs(t, err, ErrInvalidEnum)
	_, err = ParseIncludeIncomingOutgoing("")
	assert.ErrorIs(t, err, ErrInvalidEnum)
}
