// Package memory provides an in-process storage backend backed by an
// ordered B-tree adjacency index.
//
// Every entity is indexed under its vertex and every edge under both of its
// endpoints, so all candidate lookups are range scans over a single vertex.
package memory

import (
	"context"
	"sync"

	"github.com/tidwall/btree"

	"github.com/scrypster/seedgraph/internal/storage"
	"github.com/scrypster/seedgraph/pkg/types"
)

// posting is one index entry: element el reachable from vertex at.
type posting struct {
	at  types.VertexID
	key types.ElementKey
	el  types.Element
}

func postingLess(a, b posting) bool {
	if a.at != b.at {
		return a.at < b.at
	}
	return keyLess(a.key, b.key)
}

func keyLess(a, b types.ElementKey) bool {
	switch {
	case a.Class != b.Class:
		return a.Class < b.Class
	case a.Group != b.Group:
		return a.Group < b.Group
	case a.Vertex != b.Vertex:
		return a.Vertex < b.Vertex
	case a.Other != b.Other:
		return a.Other < b.Other
	default:
		return !a.Directed && b.Directed
	}
}

// Store is a storage.Backend held entirely in memory. It is safe for
// concurrent use.
type Store struct {
	mu    sync.RWMutex
	index *btree.BTreeG[posting]
}

var _ storage.Backend = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{index: btree.NewBTreeG[posting](postingLess)}
}

// AddElements stores elements, replacing the properties of any element that
// is already present.
func (s *Store) AddElements(ctx context.Context, elements []types.Element) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.ValidateElements(elements); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, el := range elements {
		switch e := el.(type) {
		case types.Entity:
			s.index.Set(posting{at: e.Vertex, key: e.Key(), el: e})
		case types.Edge:
			e = e.Canonical()
			key := e.Key()
			s.index.Set(posting{at: e.Source, key: key, el: e})
			if e.Destination != e.Source {
				s.index.Set(posting{at: e.Destination, key: key, el: e})
			}
		}
	}
	return nil
}

// scanVertex calls fn for each posting at v until fn returns false.
func (s *Store) scanVertex(v types.VertexID, fn func(posting) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.index.Ascend(posting{at: v}, func(p posting) bool {
		if p.at != v {
			return false
		}
		return fn(p)
	})
}

// EntitiesAt returns the entities at v.
func (s *Store) EntitiesAt(ctx context.Context, v types.VertexID) ([]types.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []types.Entity
	s.scanVertex(v, func(p posting) bool {
		if e, ok := p.el.(types.Entity); ok {
			out = append(out, e)
		}
		return true
	})
	return out, nil
}

// EdgesBetween returns the edges joining source and destination.
func (s *Store) EdgesBetween(ctx context.Context, source, destination types.VertexID, directed bool) ([]types.Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := types.Edge{Source: source, Destination: destination, Directed: directed}.Canonical()

	var out []types.Edge
	s.scanVertex(want.Source, func(p posting) bool {
		e, ok := p.el.(types.Edge)
		if ok && e.Directed == directed && e.Source == want.Source && e.Destination == want.Destination {
			out = append(out, e)
		}
		return true
	})
	return out, nil
}

// IncidentEdges returns the edges with v as an endpoint.
func (s *Store) IncidentEdges(ctx context.Context, v types.VertexID) ([]types.Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []types.Edge
	s.scanVertex(v, func(p posting) bool {
		if e, ok := p.el.(types.Edge); ok {
			out = append(out, e)
		}
		return true
	})
	return out, nil
}

// ScanGroups calls fn for every element in groups. Edges are visited once,
// from their source posting. The scan walks a copy-on-write snapshot of the
// index, so fn may write to the store.
func (s *Store) ScanGroups(ctx context.Context, groups []types.Group, fn func(types.Element) error) error {
	set := storage.GroupSet(groups)

	s.mu.RLock()
	snapshot := s.index.Copy()
	s.mu.RUnlock()

	var err error
	snapshot.Scan(func(p posting) bool {
		if !storage.InGroups(set, p.key.Group) {
			return true
		}
		if e, ok := p.el.(types.Edge); ok && p.at != e.Source {
			return true
		}
		if err = ctx.Err(); err != nil {
			return false
		}
		err = fn(p.el)
		return err == nil
	})
	return err
}

// Len returns the number of stored elements.
func (s *Store) Len() int {
	n := 0
	_ = s.ScanGroups(context.Background(), nil, func(types.Element) error {
		n++
		return nil
	})
	return n
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
