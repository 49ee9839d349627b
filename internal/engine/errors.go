package engine

import "errors"

var (
	// ErrInvalidQuery is returned when a filter or query cannot be evaluated,
	// for example when it excludes both entities and edges. It is always
	// reported before any storage call is made.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrUnsupported is returned when the candidate source lacks a capability
	// the requested operation needs.
	ErrUnsupported = errors.New("operation not supported by storage")
)
