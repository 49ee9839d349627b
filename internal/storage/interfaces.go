// Package storage provides composable storage interfaces for seedgraph.
//
// The query engine depends only on CandidateSource. Backends additionally
// implement GroupScanner (used by the all-elements query) and GraphWriter
// (used to load data), and are composed into a Backend by the opener.
package storage

import (
	"context"

	"github.com/scrypster/seedgraph/pkg/types"
)

// CandidateSource enumerates the stored elements identical or adjacent to a
// vertex. Implementations must be safe for concurrent read access.
//
// Failures that leave the caller unable to trust the answer are reported as
// errors matching ErrStorageUnavailable. A lookup that finds nothing returns
// an empty slice and a nil error.
type CandidateSource interface {
	// EntitiesAt returns every entity whose vertex equals v, in any group.
	EntitiesAt(ctx context.Context, v types.VertexID) ([]types.Entity, error)

	// EdgesBetween returns every edge with the given endpoints and
	// directedness, in any group. Undirected lookups are orientation
	// insensitive.
	EdgesBetween(ctx context.Context, source, destination types.VertexID, directed bool) ([]types.Edge, error)

	// IncidentEdges returns every edge with v as source or destination,
	// directed or not.
	IncidentEdges(ctx context.Context, v types.VertexID) ([]types.Edge, error)
}

// GroupScanner enumerates all stored elements of the given groups. An empty
// groups slice scans every group. Scanning stops at the first error returned
// by fn, which is passed back to the caller.
type GroupScanner interface {
	ScanGroups(ctx context.Context, groups []types.Group, fn func(types.Element) error) error
}

// GraphWriter stores elements. Adding an element that already exists
// replaces its properties.
type GraphWriter interface {
	AddElements(ctx context.Context, elements []types.Element) error
}

// Backend is a complete storage backend.
type Backend interface {
	CandidateSource
	GroupScanner
	GraphWriter

	// Close releases any resources held by the backend.
	Close() error
}
