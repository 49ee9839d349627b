package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/scrypster/seedgraph/pkg/types"
)

var (
	// ErrStorageUnavailable indicates that the backend could not answer a
	// lookup. It is never retried or swallowed by the query engine.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// UnavailableError records which backend operation failed and why.
// It matches ErrStorageUnavailable under errors.Is.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrStorageUnavailable, e.Err)
}

// Unwrap returns the underlying cause.
func (e *UnavailableError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStorageUnavailable.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

// Unavailable wraps err as an UnavailableError for op. A nil err stays nil.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &UnavailableError{Op: op, Err: err}
}

// ValidateElements checks that elements are well-formed enough to store.
// Groups and vertex IDs must be non-empty and must not contain NUL, which
// key-value backends use as a key separator.
func ValidateElements(elements []types.Element) error {
	for i, el := range elements {
		switch e := el.(type) {
		case types.Entity:
			if e.Group == "" || e.Vertex == "" {
				return fmt.Errorf("%w: element %d: entity needs group and vertex", ErrInvalidInput, i)
			}
			if hasNUL(string(e.Group), string(e.Vertex)) {
				return fmt.Errorf("%w: element %d: entity group or vertex contains NUL", ErrInvalidInput, i)
			}
		case types.Edge:
			if e.Group == "" || e.Source == "" || e.Destination == "" {
				return fmt.Errorf("%w: element %d: edge needs group, source and destination", ErrInvalidInput, i)
			}
			if hasNUL(string(e.Group), string(e.Source), string(e.Destination)) {
				return fmt.Errorf("%w: element %d: edge group or endpoint contains NUL", ErrInvalidInput, i)
			}
		case nil:
			return fmt.Errorf("%w: element %d is nil", ErrInvalidInput, i)
		}
	}
	return nil
}

func hasNUL(fields ...string) bool {
	for _, f := range fields {
		if strings.IndexByte(f, 0) >= 0 {
			return true
		}
	}
	return false
}

// GroupSet turns a group list into a lookup set. A nil set means every
// group is wanted.
func GroupSet(groups []types.Group) map[types.Group]struct{} {
	if len(groups) == 0 {
		return nil
	}
	set := make(map[types.Group]struct{}, len(groups))
	for _, g := range groups {
		set[g] = struct{}{}
	}
	return set
}

// InGroups reports whether g is in set, treating a nil set as every group.
func InGroups(set map[types.Group]struct{}, g types.Group) bool {
	if set == nil {
		return true
	}
	_, ok := set[g]
	return ok
}
