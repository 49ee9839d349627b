package engine

import (
	"fmt"
	"slices"

	"github.com/scrypster/seedgraph/internal/storage"
	"github.com/scrypster/seedgraph/pkg/types"
)

// FilterOptions configures a QueryFilter.
//
// A zero IncludeEdges defaults to ALL and a zero IncludeIncomingOutgoing to
// BOTH. IncludeEntities has no default; false excludes entities. A nil
// Groups list puts every group in the view; a non-nil empty list puts none
// in it, so the filter admits nothing.
type FilterOptions struct {
	IncludeEntities         bool
	IncludeEdges            types.IncludeEdgeType
	IncludeIncomingOutgoing types.IncludeIncomingOutgoing
	Groups                  []types.Group
}

// QueryFilter decides which candidate elements a query may return.
// A QueryFilter is immutable once built and safe for concurrent use.
type QueryFilter struct {
	includeEntities bool
	includeEdges    types.IncludeEdgeType
	direction       types.IncludeIncomingOutgoing
	groups          []types.Group
	view            map[types.Group]struct{}
}

// NewQueryFilter validates opts and builds a filter. It returns an error
// wrapping ErrInvalidQuery when an enumeration is unknown or when the filter
// would admit nothing at all.
func NewQueryFilter(opts FilterOptions) (*QueryFilter, error) {
	if opts.IncludeEdges == "" {
		opts.IncludeEdges = types.IncludeEdgesAll
	}
	if opts.IncludeIncomingOutgoing == "" {
		opts.IncludeIncomingOutgoing = types.IncludeBoth
	}

	f := &QueryFilter{
		includeEntities: opts.IncludeEntities,
		includeEdges:    opts.IncludeEdges,
		direction:       opts.IncludeIncomingOutgoing,
	}
	if opts.Groups != nil {
		groups := slices.Clone(opts.Groups)
		slices.Sort(groups)
		f.groups = slices.Compact(groups)
		f.view = make(map[types.Group]struct{}, len(f.groups))
		for _, g := range f.groups {
			f.view[g] = struct{}{}
		}
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate reports whether f can be evaluated. The zero QueryFilter is not
// valid; filters must be built with NewQueryFilter.
func (f *QueryFilter) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: missing filter", ErrInvalidQuery)
	}
	if !f.includeEdges.IsValid() {
		return fmt.Errorf("%w: unknown include edges %q", ErrInvalidQuery, f.includeEdges)
	}
	if !f.direction.IsValid() {
		return fmt.Errorf("%w: unknown include incoming/outgoing %q", ErrInvalidQuery, f.direction)
	}
	if !f.includeEntities && f.includeEdges == types.IncludeEdgesNone {
		return fmt.Errorf("%w: entities and edges are both excluded", ErrInvalidQuery)
	}
	return nil
}

// IncludeEntities reports whether entities may be returned.
func (f *QueryFilter) IncludeEntities() bool { return f.includeEntities }

// IncludeEdges returns the edge inclusion.
func (f *QueryFilter) IncludeEdges() types.IncludeEdgeType { return f.includeEdges }

// IncludeIncomingOutgoing returns the direction inclusion.
func (f *QueryFilter) IncludeIncomingOutgoing() types.IncludeIncomingOutgoing { return f.direction }

// Groups returns the sorted group view. A nil result means every group.
func (f *QueryFilter) Groups() []types.Group { return slices.Clone(f.groups) }

// EmptyView reports whether the group view was restricted to no groups at
// all, in which case the filter admits nothing.
func (f *QueryFilter) EmptyView() bool { return f.view != nil && len(f.view) == 0 }

// Admits reports whether el passes the entity, edge and group inclusion.
func (f *QueryFilter) Admits(el types.Element) bool {
	switch e := el.(type) {
	case types.Entity:
		return f.includeEntities && storage.InGroups(f.view, e.Group)
	case types.Edge:
		return f.includeEdges.Accepts(e.Directed) && storage.InGroups(f.view, e.Group)
	default:
		return false
	}
}

// AdmitsFrom reports whether edge passes the filter when reached from the
// related vertex v. Directed edges must additionally have v at the end the
// direction inclusion names; undirected edges ignore it.
func (f *QueryFilter) AdmitsFrom(edge types.Edge, v types.VertexID) bool {
	if !f.Admits(edge) {
		return false
	}
	if !edge.Directed {
		return true
	}
	switch f.direction {
	case types.IncludeOutgoing:
		return edge.Source == v
	case types.IncludeIncoming:
		return edge.Destination == v
	default:
		return edge.Touches(v)
	}
}

// wantsEdges reports whether any class of edge can pass.
func (f *QueryFilter) wantsEdges() bool {
	return f.includeEdges != types.IncludeEdgesNone
}
