// Package badger provides an embedded key-value storage backend built on
// BadgerDB.
//
// Keys are laid out so that every candidate lookup is a prefix scan:
//
//	n\x00<vertex>\x00<group>                              entity
//	a\x00<vertex>\x00<group>\x00<src>\x00<dst>\x00<d|u>     edge, once per endpoint
//
// Values hold the JSON wire form of the element.
package badger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/scrypster/seedgraph/internal/storage"
	"github.com/scrypster/seedgraph/pkg/types"
)

const sep = 0x00

var (
	entityPrefix    = []byte{'n', sep}
	adjacencyPrefix = []byte{'a', sep}
)

// Options configures the store.
type Options struct {
	// Dir is the data directory. It is ignored when InMemory is set.
	Dir string

	// InMemory keeps all data in memory.
	InMemory bool
}

// Store implements storage.Backend on BadgerDB.
type Store struct {
	db *badgerdb.DB
}

var _ storage.Backend = (*Store)(nil)

// New opens a Badger database.
func New(opts Options, logger *slog.Logger) (*Store, error) {
	bopts := badgerdb.DefaultOptions(opts.Dir)
	if opts.InMemory {
		bopts = badgerdb.DefaultOptions("").WithInMemory(true)
	}
	if logger != nil {
		bopts = bopts.WithLogger(slogAdapter{logger: logger})
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badgerdb.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badger: failed to open database: %w", err)
	}
	return &Store{db: db}, nil
}

func fail(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return storage.Unavailable("badger: "+op, err)
}

func key(parts ...string) []byte {
	var b bytes.Buffer
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(sep)
		}
		b.WriteString(p)
	}
	return b.Bytes()
}

func entityKey(e types.Entity) []byte {
	return append(bytes.Clone(entityPrefix), key(string(e.Vertex), string(e.Group))...)
}

func adjacencyKey(at types.VertexID, e types.Edge) []byte {
	dir := "u"
	if e.Directed {
		dir = "d"
	}
	return append(bytes.Clone(adjacencyPrefix),
		key(string(at), string(e.Group), string(e.Source), string(e.Destination), dir)...)
}

func vertexPrefix(prefix []byte, v types.VertexID) []byte {
	return append(append(bytes.Clone(prefix), string(v)...), sep)
}

// AddElements writes elements in a single transaction.
func (s *Store) AddElements(ctx context.Context, elements []types.Element) error {
	if err := storage.ValidateElements(elements); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		for _, el := range elements {
			switch e := el.(type) {
			case types.Entity:
				val, err := json.Marshal(e)
				if err != nil {
					return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
				}
				if err := txn.Set(entityKey(e), val); err != nil {
					return err
				}
			case types.Edge:
				e = e.Canonical()
				val, err := json.Marshal(e)
				if err != nil {
					return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
				}
				if err := txn.Set(adjacencyKey(e.Source, e), val); err != nil {
					return err
				}
				if e.Destination != e.Source {
					if err := txn.Set(adjacencyKey(e.Destination, e), val); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if errors.Is(err, storage.ErrInvalidInput) {
		return err
	}
	if err != nil {
		return fail(ctx, "add elements", err)
	}
	return nil
}

// scanPrefix decodes every value under prefix and passes it to fn with its
// key. The key is only valid until fn returns.
func (s *Store) scanPrefix(ctx context.Context, prefix []byte, fn func(k []byte, el types.Element) error) error {
	return s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			var el types.Element
			err := item.Value(func(val []byte) error {
				var j types.ElementJSON
				if err := json.Unmarshal(val, &j); err != nil {
					return err
				}
				decoded, err := j.Decode()
				el = decoded
				return err
			})
			if err != nil {
				return err
			}
			if err := fn(item.Key(), el); err != nil {
				return err
			}
		}
		return nil
	})
}

// EntitiesAt returns the entities at v.
func (s *Store) EntitiesAt(ctx context.Context, v types.VertexID) ([]types.Entity, error) {
	var out []types.Entity
	err := s.scanPrefix(ctx, vertexPrefix(entityPrefix, v), func(_ []byte, el types.Element) error {
		if e, ok := el.(types.Entity); ok && e.Vertex == v {
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, fail(ctx, "entities at", err)
	}
	return out, nil
}

// EdgesBetween returns the edges joining source and destination.
func (s *Store) EdgesBetween(ctx context.Context, source, destination types.VertexID, directed bool) ([]types.Edge, error) {
	want := types.Edge{Source: source, Destination: destination, Directed: directed}.Canonical()

	var out []types.Edge
	err := s.scanPrefix(ctx, vertexPrefix(adjacencyPrefix, want.Source), func(_ []byte, el types.Element) error {
		e, ok := el.(types.Edge)
		if ok && e.Directed == directed && e.Source == want.Source && e.Destination == want.Destination {
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, fail(ctx, "edges between", err)
	}
	return out, nil
}

// IncidentEdges returns the edges with v as an endpoint.
func (s *Store) IncidentEdges(ctx context.Context, v types.VertexID) ([]types.Edge, error) {
	var out []types.Edge
	err := s.scanPrefix(ctx, vertexPrefix(adjacencyPrefix, v), func(_ []byte, el types.Element) error {
		if e, ok := el.(types.Edge); ok && e.Touches(v) {
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, fail(ctx, "incident edges", err)
	}
	return out, nil
}

// ScanGroups calls fn for every element in groups, entities first, as the
// keys are iterated. Each edge is passed once, from the copy stored under
// its source. An empty groups slice scans all groups.
func (s *Store) ScanGroups(ctx context.Context, groups []types.Group, fn func(types.Element) error) error {
	set := storage.GroupSet(groups)

	var fnErr error
	call := func(el types.Element) error {
		fnErr = fn(el)
		return fnErr
	}

	err := s.scanPrefix(ctx, entityPrefix, func(_ []byte, el types.Element) error {
		if e, ok := el.(types.Entity); ok && storage.InGroups(set, e.Group) {
			return call(e)
		}
		return nil
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return fail(ctx, "scan entities", err)
	}

	err = s.scanPrefix(ctx, adjacencyPrefix, func(k []byte, el types.Element) error {
		e, ok := el.(types.Edge)
		if !ok || !storage.InGroups(set, e.Group) || keyVertex(adjacencyPrefix, k) != e.Source {
			return nil
		}
		return call(e)
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return fail(ctx, "scan edges", err)
	}
	return nil
}

// keyVertex returns the vertex a key under prefix is stored at.
func keyVertex(prefix, k []byte) types.VertexID {
	rest := k[len(prefix):]
	if i := bytes.IndexByte(rest, sep); i >= 0 {
		rest = rest[:i]
	}
	return types.VertexID(rest)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// slogAdapter routes Badger's logger to slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Errorf(format string, args ...any) {
	a.logger.Error(fmt.Sprintf("badger: "+format, args...))
}

func (a slogAdapter) Warningf(format string, args ...any) {
	a.logger.Warn(fmt.Sprintf("badger: "+format, args...))
}

func (a slogAdapter) Infof(format string, args ...any) {
	a.logger.Debug(fmt.Sprintf("badger: "+format, args...))
}

func (a slogAdapter) Debugf(format string, args ...any) {
	a.logger.Debug(fmt.Sprintf("badger: "+format, args...))
}
