// Package storagetest provides a conformance suite that every
// storage.Backend implementation runs from its own tests.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/seedgraph/internal/storage"
	"github.com/scrypster/seedgraph/pkg/types"
)

// Graph returns the fixture loaded by the suite. Some vertex IDs differ only
// in case or punctuation, where bytewise order disagrees with the usual
// locale collations.
func Graph() []types.Element {
	return []types.Element{
		types.NewEntity("Entity", "a"),
		types.NewEntity("Entity", "b"),
		types.NewEntity("Other", "a"),
		types.NewEdge("Edge", "a", "b", true),
		types.NewEdge("Edge", "b", "a", true),
		types.NewEdge("Edge", "c", "a", false),
		types.NewEdge("Other", "a", "c", false),
		types.NewEdge("Edge", "d", "d", true),
		types.Edge{Group: "Edge", Source: "d", Destination: "b", Directed: false},
		types.NewEdge("Edge", "apple", "Zed", false),
		types.NewEdge("Edge", "x.y", "x-y", false),
		types.NewEdge("Edge", "x.y", "X_Y", true),
	}
}

func keys[E types.Element](elements []E) []types.ElementKey {
	out := make([]types.ElementKey, 0, len(elements))
	for _, el := range elements {
		out = append(out, el.Key())
	}
	return out
}

// Run exercises newBackend against the storage contract. newBackend must
// return an empty backend; the suite closes it.
func Run(t *testing.T, newBackend func(t *testing.T) storage.Backend) {
	t.Helper()

	load := func(t *testing.T) storage.Backend {
		t.Helper()
		b := newBackend(t)
		t.Cleanup(func() { _ = b.Close() })
		require.NoError(t, b.AddElements(context.Background(), Graph()))
		return b
	}

	t.Run("EntitiesAt", func(t *testing.T) {
		b := load(t)
		ctx := context.Background()

		got, err := b.EntitiesAt(ctx, "a")
		require.NoError(t, err)
		assert.ElementsMatch(t, []types.ElementKey{
			types.NewEntity("Entity", "a").Key(),
			types.NewEntity("Other", "a").Key(),
		}, keys(got))

		got, err = b.EntitiesAt(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("EdgesBetween", func(t *testing.T) {
		b := load(t)
		ctx := context.Background()

		got, err := b.EdgesBetween(ctx, "a", "b", true)
		require.NoError(t, err)
		assert.Equal(t, []types.ElementKey{types.NewEdge("Edge", "a", "b", true).Key()}, keys(got))

		got, err = b.EdgesBetween(ctx, "b", "a", true)
		require.NoError(t, err)
		assert.Equal(t, []types.ElementKey{types.NewEdge("Edge", "b", "a", true).Key()}, keys(got))

		forward, err := b.EdgesBetween(ctx, "a", "c", false)
		require.NoError(t, err)
		reverse, err := b.EdgesBetween(ctx, "c", "a", false)
		require.NoError(t, err)
		assert.Len(t, forward, 2)
		assert.ElementsMatch(t, keys(forward), keys(reverse))

		got, err = b.EdgesBetween(ctx, "a", "c", true)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("IncidentEdges", func(t *testing.T) {
		b := load(t)
		ctx := context.Background()

		got, err := b.IncidentEdges(ctx, "a")
		require.NoError(t, err)
		assert.ElementsMatch(t, []types.ElementKey{
			types.NewEdge("Edge", "a", "b", true).Key(),
			types.NewEdge("Edge", "b", "a", true).Key(),
			types.NewEdge("Edge", "a", "c", false).Key(),
			types.NewEdge("Other", "a", "c", false).Key(),
		}, keys(got))

		got, err = b.IncidentEdges(ctx, "d")
		require.NoError(t, err)
		assert.ElementsMatch(t, []types.ElementKey{
			types.NewEdge("Edge", "d", "d", true).Key(),
			types.NewEdge("Edge", "b", "d", false).Key(),
		}, keys(got))

		for _, e := range got {
			assert.True(t, e.Touches("d"))
		}

		got, err = b.IncidentEdges(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("DirectedOrientationPreserved", func(t *testing.T) {
		b := load(t)
		got, err := b.EdgesBetween(context.Background(), "b", "a", true)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, types.VertexID("b"), got[0].Source)
		assert.Equal(t, types.VertexID("a"), got[0].Destination)
	})

	t.Run("UndirectedOrderIsBytewise", func(t *testing.T) {
		b := load(t)
		ctx := context.Background()

		pairs := []struct{ lo, hi types.VertexID }{
			{"Zed", "apple"},
			{"x-y", "x.y"},
		}
		for _, p := range pairs {
			forward, err := b.EdgesBetween(ctx, p.lo, p.hi, false)
			require.NoError(t, err)
			reverse, err := b.EdgesBetween(ctx, p.hi, p.lo, false)
			require.NoError(t, err)
			require.Len(t, forward, 1, "%s-%s", p.lo, p.hi)
			assert.ElementsMatch(t, keys(forward), keys(reverse))
			assert.Equal(t, p.lo, forward[0].Source)
			assert.Equal(t, p.hi, forward[0].Destination)
		}

		got, err := b.IncidentEdges(ctx, "x.y")
		require.NoError(t, err)
		assert.ElementsMatch(t, []types.ElementKey{
			types.NewEdge("Edge", "x-y", "x.y", false).Key(),
			types.NewEdge("Edge", "x.y", "X_Y", true).Key(),
		}, keys(got))

		got, err = b.EdgesBetween(ctx, "x.y", "X_Y", true)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, types.VertexID("x.y"), got[0].Source, "directed edges keep their orientation")
	})

	t.Run("ScanGroups", func(t *testing.T) {
		b := load(t)
		ctx := context.Background()

		var all []types.Element
		require.NoError(t, b.ScanGroups(ctx, nil, func(el types.Element) error {
			all = append(all, el)
			return nil
		}))
		assert.ElementsMatch(t, keys(Graph()), keys(all))

		var other []types.Element
		require.NoError(t, b.ScanGroups(ctx, []types.Group{"Other"}, func(el types.Element) error {
			other = append(other, el)
			return nil
		}))
		assert.ElementsMatch(t, []types.ElementKey{
			types.NewEntity("Other", "a").Key(),
			types.NewEdge("Other", "a", "c", false).Key(),
		}, keys(other))

		stop := errors.New("stop")
		calls := 0
		err := b.ScanGroups(ctx, nil, func(types.Element) error {
			calls++
			return stop
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, calls)
	})

	t.Run("AddReplacesProperties", func(t *testing.T) {
		b := load(t)
		ctx := context.Background()

		updated := types.NewEntity("Entity", "a")
		updated.Properties = types.Properties{"count": "2"}
		require.NoError(t, b.AddElements(ctx, []types.Element{updated}))

		got, err := b.EntitiesAt(ctx, "a")
		require.NoError(t, err)
		require.Len(t, got, 2)
		for _, e := range got {
			if e.Group == "Entity" {
				assert.Equal(t, "2", e.Properties["count"])
			}
		}

		edge := types.Edge{Group: "Edge", Source: "c", Destination: "a", Properties: types.Properties{"weight": "3"}}
		require.NoError(t, b.AddElements(ctx, []types.Element{edge}))
		edges, err := b.EdgesBetween(ctx, "a", "c", false)
		require.NoError(t, err)
		assert.Len(t, edges, 2)
	})

	t.Run("AddRejectsInvalid", func(t *testing.T) {
		b := newBackend(t)
		t.Cleanup(func() { _ = b.Close() })
		ctx := context.Background()

		invalid := map[string]types.Element{
			"missing group":      types.Entity{Vertex: "x"},
			"separator in id":    types.NewEntity("Entity", "x\x00y"),
			"separator in group": types.NewEdge("Edge\x00", "x", "y", true),
		}
		for name, el := range invalid {
			err := b.AddElements(ctx, []types.Element{el})
			assert.ErrorIs(t, err, storage.ErrInvalidInput, name)
		}

		var stored []types.Element
		require.NoError(t, b.ScanGroups(ctx, nil, func(el types.Element) error {
			stored = append(stored, el)
			return nil
		}))
		assert.Empty(t, stored)
	})
}
