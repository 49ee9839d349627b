// Package types defines the value types of the seedgraph query engine:
// vertex identifiers, the Entity and Edge graph elements, query seeds and the
// enumerations that parameterise a query.
//
// Elements and seeds are closed sum types. Element is implemented only by
// Entity and Edge, Seed only by EntitySeed and EdgeSeed; code that consumes
// them uses exhaustive type switches.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEnum is returned when a query enumeration cannot be parsed.
var ErrInvalidEnum = errors.New("invalid enum value")

// VertexID identifies a vertex. Equality is exact.
type VertexID string

// Group is the schema category of an entity or edge (e.g. "Entity", "Edge").
// Groups only take part in inclusion filtering, never in matching.
type Group string

// SeedMatching selects how seeds are matched against stored elements.
type SeedMatching string

const (
	// SeedMatchingEqual requires exact identity between seed and element.
	SeedMatchingEqual SeedMatching = "EQUAL"

	// SeedMatchingRelated requires the element to touch the seed's vertices.
	SeedMatchingRelated SeedMatching = "RELATED"
)

// IsValid reports whether m is a known matching mode.
func (m SeedMatching) IsValid() bool {
	return m == SeedMatchingEqual || m == SeedMatchingRelated
}

// IncludeEdgeType selects which edge directedness classes may be returned.
type IncludeEdgeType string

const (
	IncludeEdgesNone       IncludeEdgeType = "NONE"
	IncludeEdgesDirected   IncludeEdgeType = "DIRECTED"
	IncludeEdgesUndirected IncludeEdgeType = "UNDIRECTED"
	IncludeEdgesAll        IncludeEdgeType = "ALL"
)

// IsValid reports whether t is a known edge inclusion.
func (t IncludeEdgeType) IsValid() bool {
	switch t {
	case IncludeEdgesNone, IncludeEdgesDirected, IncludeEdgesUndirected, IncludeEdgesAll:
		return true
	}
	return false
}

// Accepts reports whether an edge with the given directedness passes t.
func (t IncludeEdgeType) Accepts(directed bool) bool {
	switch t {
	case IncludeEdgesAll:
		return true
	case IncludeEdgesDirected:
		return directed
	case IncludeEdgesUndirected:
		return !directed
	default:
		return false
	}
}

// IncludeIncomingOutgoing restricts which end of a directed edge a related
// seed vertex must occupy.
type IncludeIncomingOutgoing string

const (
	// IncludeIncoming admits directed edges whose destination is the seed vertex.
	IncludeIncoming IncludeIncomingOutgoing = "INCOMING"

	// IncludeOutgoing admits directed edges whose source is the seed vertex.
	IncludeOutgoing IncludeIncomingOutgoing = "OUTGOING"

	// IncludeBoth admits either end.
	IncludeBoth IncludeIncomingOutgoing = "BOTH"
)

// IsValid reports whether d is a known direction inclusion.
func (d IncludeIncomingOutgoing) IsValid() bool {
	return d == IncludeIncoming || d == IncludeOutgoing || d == IncludeBoth
}

// ParseSeedMatching parses a matching mode, case-insensitively.
func ParseSeedMatching(s string) (SeedMatching, error) {
	m := SeedMatching(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: seed matching %q", ErrInvalidEnum, s)
	}
	return m, nil
}

// ParseIncludeEdgeType parses an edge inclusion, case-insensitively.
func ParseIncludeEdgeType(s string) (IncludeEdgeType, error) {
	t := IncludeEdgeType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: include edges %q", ErrInvalidEnum, s)
	}
	return t, nil
}

// ParseIncludeIncomingOutgoing parses a direction inclusion, case-insensitively.
func ParseIncludeIncomingOutgoing(s string) (IncludeIncomingOutgoing, error) {
	d := IncludeIncomingOutgoing(strings.ToUpper(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", fmt.Errorf("%w: include incoming/outgoing %q", ErrInvalidEnum, s)
	}
	return d, nil
}
