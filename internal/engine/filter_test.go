package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/seedgraph/internal/engine"
	"github.com/scrypster/seedgraph/pkg/types"
)

func mustFilter(t *testing.T, opts engine.FilterOptions) *engine.QueryFilter {
	t.Helper()
	f, err := engine.NewQueryFilter(opts)
	require.NoError(t, err)
	return f
}

func TestNewQueryFilter_Defaults(t *testing.T) {
	f := mustFilter(t, engine.FilterOptions{IncludeEntities: true})

	assert.True(t, f.IncludeEntities())
	assert.Equal(t, types.IncludeEdgesAll, f.IncludeEdges())
	assert.Equal(t, types.IncludeBoth, f.IncludeIncomingOutgoing())
	assert.Empty(t, f.Groups())
}

func TestNewQueryFilter_RejectsDegenerate(t *testing.T) {
	_, err := engine.NewQueryFilter(engine.FilterOptions{
		IncludeEntities: false,
		IncludeEdges:    types.IncludeEdgesNone,
	})
	assert.ErrorIs(t, err, engine.ErrInvalidQuery)
}

func TestNewQueryFilter_RejectsUnknownEnums(t *testing.T) {
	_, err := engine.NewQueryFilter(engine.FilterOptions{IncludeEntities: true, IncludeEdges: "SOME"})
	assert.ErrorIs(t, err, engine.ErrInvalidQuery)

	_, err = engine.NewQueryFilter(engine.FilterOptions{IncludeEntities: true, IncludeIncomingOutgoing: "SIDEWAYS"})
	assert.ErrorIs(t, err, engine.ErrInvalidQuery)
}

func TestQueryFilter_ZeroValueInvalid(t *testing.T) {
	var nilFilter *engine.QueryFilter
	assert.ErrorIs(t, nilFilter.Validate(), engine.ErrInvalidQuery)
	assert.ErrorIs(t, (&engine.QueryFilter{}).Validate(), engine.ErrInvalidQuery)
}

func TestQueryFilter_GroupsSortedAndDeduplicated(t *testing.T) {
	f := mustFilter(t, engine.FilterOptions{
		IncludeEntities: true,
		Groups:          []types.Group{"b", "a", "b"},
	})
	assert.Equal(t, []types.Group{"a", "b"}, f.Groups())
}

func TestQueryFilter_EmptyGroupView(t *testing.T) {
	unrestricted := mustFilter(t, engine.FilterOptions{IncludeEntities: true})
	assert.False(t, unrestricted.EmptyView())
	assert.Nil(t, unrestricted.Groups())
	assert.True(t, unrestricted.Admits(types.NewEntity("Any", "a")))

	none := mustFilter(t, engine.FilterOptions{IncludeEntities: true, Groups: []types.Group{}})
	assert.True(t, none.EmptyView())
	assert.NotNil(t, none.Groups())
	assert.Empty(t, none.Groups())
	assert.False(t, none.Admits(types.NewEntity("Any", "a")))
	assert.False(t, none.Admits(types.NewEdge("Any", "a", "b", false)))
	assert.False(t, none.AdmitsFrom(types.NewEdge("Any", "a", "b", false), "a"))
}

func TestQueryFilter_Admits(t *testing.T) {
	entity := types.NewEntity("Entity", "a")
	directed := types.NewEdge("Edge", "a", "b", true)
	undirected := types.NewEdge("Edge", "a", "b", false)
	outside := types.NewEdge("Other", "a", "b", true)

	tests := []struct {
		name  string
		opts  engine.FilterOptions
		admit []types.Element
		deny  []types.Element
	}{
		{
			name:  "everything",
			opts:  engine.FilterOptions{IncludeEntities: true, IncludeEdges: types.IncludeEdgesAll},
			admit: []types.Element{entity, directed, undirected, outside},
		},
		{
			name:  "entities only",
			opts:  engine.FilterOptions{IncludeEntities: true, IncludeEdges: types.IncludeEdgesNone},
			admit: []types.Element{entity},
			deny:  []types.Element{directed, undirected},
		},
		{
			name:  "directed edges only",
			opts:  engine.FilterOptions{IncludeEdges: types.IncludeEdgesDirected},
			admit: []types.Element{directed},
			deny:  []types.Element{entity, undirected},
		},
		{
			name:  "undirected edges only",
			opts:  engine.FilterOptions{IncludeEdges: types.IncludeEdgesUndirected},
			admit: []types.Element{undirected},
			deny:  []types.Element{entity, directed},
		},
		{
			name:  "group view",
			opts:  engine.FilterOptions{IncludeEntities: true, Groups: []types.Group{"Entity", "Edge"}},
			admit: []types.Element{entity, directed, undirected},
			deny:  []types.Element{outside},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := mustFilter(t, tt.opts)
			for _, el := range tt.admit {
				assert.True(t, f.Admits(el), "expected %v to be admitted", el)
			}
			for _, el := range tt.deny {
				assert.False(t, f.Admits(el), "expected %v to be denied", el)
			}
		})
	}
}

func TestQueryFilter_AdmitsFrom(t *testing.T) {
	ab := types.NewEdge("Edge", "a", "b", true)
	undirected := types.NewEdge("Edge", "a", "b", false)

	tests := []struct {
		direction types.IncludeIncomingOutgoing
		fromA     bool
		fromB     bool
	}{
		{types.IncludeOutgoing, true, false},
		{types.IncludeIncoming, false, true},
		{types.IncludeBoth, true, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.direction), func(t *testing.T) {
			f := mustFilter(t, engine.FilterOptions{
				IncludeEdges:            types.IncludeEdgesAll,
				IncludeIncomingOutgoing: tt.direction,
			})
			assert.Equal(t, tt.fromA, f.AdmitsFrom(ab, "a"))
			assert.Equal(t, tt.fromB, f.AdmitsFrom(ab, "b"))

			assert.True(t, f.AdmitsFrom(undirected, "a"), "undirected edges ignore direction")
			assert.True(t, f.AdmitsFrom(undirected, "b"), "undirected edges ignore direction")
		})
	}
}

func TestQueryFilter_AdmitsFromSelfLoop(t *testing.T) {
	loop := types.NewEdge("Edge", "a", "a", true)
	for _, d := range []types.IncludeIncomingOutgoing{types.IncludeIncoming, types.IncludeOutgoing, types.IncludeBoth} {
		f := mustFilter(t, engine.FilterOptions{IncludeIncomingOutgoing: d})
		assert.True(t, f.AdmitsFrom(loop, "a"), d)
	}
}

func TestQueryFilter_AdmitsFromRespectsEdgeInclusion(t *testing.T) {
	f := mustFilter(t, engine.FilterOptions{IncludeEntities: true, IncludeEdges: types.IncludeEdgesUndirected})
	assert.False(t, f.AdmitsFrom(types.NewEdge("Edge", "a", "b", true), "a"))
}
