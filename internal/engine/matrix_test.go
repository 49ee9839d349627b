package engine_test

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scrypster/seedgraph/internal/engine"
	"github.com/scrypster/seedgraph/pkg/types"
)

const (
	groupEntity types.Group = "BasicEntity"
	groupEdge   types.Group = "BasicEdge"
)

func vertex(prefix string, i int) types.VertexID {
	return types.VertexID(fmt.Sprintf("%s%d", prefix, i))
}

// defaultGraph holds, for i in 1..4, entities at source<i>, dest<i>,
// sourceDir<i> and destDir<i>, an undirected edge source<i>-dest<i> and a
// directed edge sourceDir<i>->destDir<i>. It also holds an edge outside the
// queried view.
func defaultGraph() *fakeSource {
	src := newFakeSource()
	for i := 1; i <= 4; i++ {
		for _, p := range []string{"source", "dest", "sourceDir", "destDir"} {
			src.add(types.NewEntity(groupEntity, vertex(p, i)))
		}
		src.add(types.NewEdge(groupEdge, vertex("source", i), vertex("dest", i), false))
		src.add(types.NewEdge(groupEdge, vertex("sourceDir", i), vertex("destDir", i), true))
	}
	src.add(types.NewEdge("Hidden", vertex("source", 1), vertex("dest", 1), false))
	return src
}

var (
	entitySeedsExist = []types.Seed{
		types.EntitySeed{Vertex: "source2"},
		types.EntitySeed{Vertex: "dest3"},
		types.EntitySeed{Vertex: "sourceDir2"},
		types.EntitySeed{Vertex: "destDir3"},
	}
	entitySeedsMissing = []types.Seed{
		types.EntitySeed{Vertex: "idDoesNotExist"},
	}
	edgeSeedsExist = []types.Seed{
		types.EdgeSeed{Source: "source1", Destination: "dest1"},
	}
	directedEdgeSeedsExist = []types.Seed{
		types.EdgeSeed{Source: "sourceDir1", Destination: "destDir1", Directed: true},
	}
	edgeSeedsMissing = []types.Seed{
		types.EdgeSeed{Source: "source1", Destination: "dest2DoesNotExist"},
		types.EdgeSeed{Source: "source2DoesNotExist", Destination: "dest1"},
		types.EdgeSeed{Source: "source1", Destination: "dest1", Directed: true},
	}

	entitySeeds = slices.Concat(entitySeedsExist, entitySeedsMissing)
	edgeSeeds   = slices.Concat(edgeSeedsExist, directedEdgeSeedsExist, edgeSeedsMissing)
	allSeeds    = slices.Concat(entitySeeds, edgeSeeds)
)

// exactElements returns the element of the matrix groups that each seed
// identifies exactly.
func exactElements(seeds []types.Seed) []types.Element {
	out := make([]types.Element, 0, len(seeds))
	for _, seed := range seeds {
		switch s := seed.(type) {
		case types.EntitySeed:
			out = append(out, types.NewEntity(groupEntity, s.Vertex))
		case types.EdgeSeed:
			out = append(out, types.NewEdge(groupEdge, s.Source, s.Destination, s.Directed))
		}
	}
	return out
}

func seededVertices() []types.VertexID {
	var out []types.VertexID
	for _, seed := range slices.Concat(entitySeedsExist, edgeSeedsExist, directedEdgeSeedsExist) {
		out = append(out, seed.Vertices()...)
	}
	return out
}

func TestEvaluate_InclusionMatrix(t *testing.T) {
	src := defaultGraph()
	edgeTypes := []types.IncludeEdgeType{
		types.IncludeEdgesNone, types.IncludeEdgesDirected, types.IncludeEdgesUndirected, types.IncludeEdgesAll,
	}
	directions := []types.IncludeIncomingOutgoing{types.IncludeIncoming, types.IncludeOutgoing, types.IncludeBoth}

	for _, includeEntities := range []bool{true, false} {
		for _, edges := range edgeTypes {
			if !includeEntities && edges == types.IncludeEdgesNone {
				continue
			}
			for _, direction := range directions {
				opts := engine.FilterOptions{
					IncludeEntities:         includeEntities,
					IncludeEdges:            edges,
					IncludeIncomingOutgoing: direction,
					Groups:                  []types.Group{groupEntity, groupEdge},
				}
				name := fmt.Sprintf("entities=%t/edges=%s/direction=%s", includeEntities, edges, direction)

				t.Run("equal/"+name, func(t *testing.T) {
					var want []types.Element
					if includeEntities {
						want = append(want, exactElements(entitySeedsExist)...)
					}
					if edges.Accepts(true) {
						want = append(want, exactElements(directedEdgeSeedsExist)...)
					}
					if edges.Accepts(false) {
						want = append(want, exactElements(edgeSeedsExist)...)
					}

					seeds := allSeeds
					switch {
					case edges != types.IncludeEdgesNone && !includeEntities:
						seeds = edgeSeeds
					case edges == types.IncludeEdgesNone:
						seeds = entitySeeds
					}

					got := evaluate(t, src, seeds, types.SeedMatchingEqual, opts)
					assert.ElementsMatch(t, keysOf(want), keysOf(got))
				})

				t.Run("related/"+name, func(t *testing.T) {
					var want []types.Element
					if includeEntities {
						for _, v := range seededVertices() {
							want = append(want, types.NewEntity(groupEntity, v))
						}
					}
					if edges.Accepts(true) {
						want = append(want, types.NewEdge(groupEdge, "sourceDir1", "destDir1", true))
						if direction != types.IncludeIncoming {
							want = append(want, types.NewEdge(groupEdge, "sourceDir2", "destDir2", true))
						}
						if direction != types.IncludeOutgoing {
							want = append(want, types.NewEdge(groupEdge, "sourceDir3", "destDir3", true))
						}
					}
					if edges.Accepts(false) {
						want = append(want,
							types.NewEdge(groupEdge, "source1", "dest1", false),
							types.NewEdge(groupEdge, "source2", "dest2", false),
							types.NewEdge(groupEdge, "source3", "dest3", false),
						)
					}

					got := evaluate(t, src, allSeeds, types.SeedMatchingRelated, opts)
					assert.ElementsMatch(t, keysOf(want), keysOf(got))
				})
			}
		}
	}
}
