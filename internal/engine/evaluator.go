// Package engine evaluates seed-based graph queries.
//
// A query is a list of seeds, a matching mode and a QueryFilter. The
// Evaluator resolves each seed against a storage.CandidateSource on demand
// while the returned Stream is consumed, filters the candidates and returns
// every matching element once.
package engine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/scrypster/seedgraph/internal/metrics"
	"github.com/scrypster/seedgraph/internal/storage"
	"github.com/scrypster/seedgraph/pkg/types"
)

// Candidate lookup operation names, as recorded in metrics.
const (
	opEntitiesAt    = "entities_at"
	opEdgesBetween  = "edges_between"
	opIncidentEdges = "incident_edges"
	opScanGroups    = "scan_groups"
)

// scanBatchSize bounds how many scanned elements a group scan hands to the
// stream at a time.
const scanBatchSize = 256

// errScanStopped ends a group scan whose stream was closed early.
var errScanStopped = errors.New("engine: group scan stopped")

// exhausted produces no batches.
func exhausted(context.Context) ([]types.Element, bool, error) { return nil, false, nil }

// Evaluator runs queries against a candidate source. It holds no per-query
// state and is safe for concurrent use.
type Evaluator struct {
	source  storage.CandidateSource
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger used for query tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records query metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Evaluator) { e.metrics = m }
}

// NewEvaluator creates an evaluator over source.
func NewEvaluator(source storage.CandidateSource, opts ...Option) *Evaluator {
	e := &Evaluator{
		source: source,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate returns a stream of the elements matching seeds under mode and
// filter. The arguments are validated before any storage call; invalid input
// yields an error wrapping ErrInvalidQuery. Storage is consulted lazily as
// the stream is advanced, and storage errors end the stream unchanged.
//
// Under SeedMatchingEqual an entity seed matches the entities at its vertex
// and an edge seed matches the edges with exactly its endpoints and
// directedness. Under SeedMatchingRelated a seed matches the entities at
// each of its vertices and every edge incident to them, with directed edges
// restricted by the filter's incoming/outgoing inclusion. A filter with an
// empty group view yields an empty stream without consulting storage.
func (e *Evaluator) Evaluate(ctx context.Context, seeds []types.Seed, mode types.SeedMatching, filter *QueryFilter) (*Stream, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: unknown seed matching %q", ErrInvalidQuery, mode)
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	for i, seed := range seeds {
		if seed == nil {
			return nil, fmt.Errorf("%w: seed %d is nil", ErrInvalidQuery, i)
		}
	}

	m := &matcher{
		source:  e.source,
		filter:  filter,
		mode:    mode,
		seeds:   slices.Clone(seeds),
		visited: make(map[types.VertexID]struct{}),
		metrics: e.metrics,
	}

	id := uuid.NewString()
	e.logger.Debug("evaluating query",
		"query_id", id,
		"mode", mode,
		"seeds", len(seeds),
		"include_entities", filter.IncludeEntities(),
		"include_edges", filter.IncludeEdges(),
		"include_incoming_outgoing", filter.IncludeIncomingOutgoing(),
	)
	if filter.EmptyView() {
		return newStream(ctx, id, string(mode), exhausted, e.logger, e.metrics), nil
	}
	return newStream(ctx, id, string(mode), m.next, e.logger, e.metrics), nil
}

// EvaluateAll returns a stream of every stored element in the filter's
// group view that the filter admits. The incoming/outgoing inclusion does
// not apply. The candidate source must implement storage.GroupScanner,
// otherwise ErrUnsupported is returned.
//
// The scan starts on the first call to Next and is suspended between
// batches of at most scanBatchSize admitted elements. Closing the stream
// stops the scan.
func (e *Evaluator) EvaluateAll(ctx context.Context, filter *QueryFilter) (*Stream, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	scanner, ok := e.source.(storage.GroupScanner)
	if !ok {
		return nil, fmt.Errorf("%w: group scan", ErrUnsupported)
	}

	id := uuid.NewString()
	e.logger.Debug("evaluating all elements",
		"query_id", id,
		"groups", filter.Groups(),
	)
	if filter.EmptyView() {
		return newStream(ctx, id, "ALL", exhausted, e.logger, e.metrics), nil
	}

	groups := filter.Groups()
	var scan iter.Seq2[types.Element, error] = func(yield func(types.Element, error) bool) {
		e.metrics.Lookup(opScanGroups)
		err := scanner.ScanGroups(ctx, groups, func(el types.Element) error {
			if !filter.Admits(el) {
				return nil
			}
			if !yield(el, nil) {
				return errScanStopped
			}
			return nil
		})
		if err != nil && !errors.Is(err, errScanStopped) {
			yield(nil, err)
		}
	}
	next, stop := iter.Pull2(scan)

	var scanErr error
	produce := func(context.Context) ([]types.Element, bool, error) {
		if scanErr != nil {
			return nil, false, scanErr
		}
		batch := make([]types.Element, 0, scanBatchSize)
		for len(batch) < scanBatchSize {
			el, err, ok := next()
			if !ok {
				break
			}
			if err != nil {
				if len(batch) == 0 {
					return nil, false, err
				}
				scanErr = err
				break
			}
			batch = append(batch, el)
		}
		if len(batch) == 0 {
			return nil, false, nil
		}
		return batch, true, nil
	}

	s := newStream(ctx, id, "ALL", produce, e.logger, e.metrics)
	s.release = stop
	return s, nil
}

// matcher resolves one query's seeds in order, one seed per batch.
type matcher struct {
	source  storage.CandidateSource
	filter  *QueryFilter
	mode    types.SeedMatching
	seeds   []types.Seed
	pos     int
	visited map[types.VertexID]struct{}
	metrics *metrics.Metrics
}

func (m *matcher) next(ctx context.Context) ([]types.Element, bool, error) {
	if m.pos >= len(m.seeds) {
		m.visited = nil
		return nil, false, nil
	}
	seed := m.seeds[m.pos]
	m.pos++

	var (
		batch []types.Element
		err   error
	)
	if m.mode == types.SeedMatchingEqual {
		batch, err = m.equal(ctx, seed)
	} else {
		batch, err = m.related(ctx, seed)
	}
	if err != nil {
		return nil, false, err
	}
	return batch, true, nil
}

func (m *matcher) equal(ctx context.Context, seed types.Seed) ([]types.Element, error) {
	key := Classify(seed)

	var out []types.Element
	switch key.Kind {
	case KeyVertex:
		if !m.filter.IncludeEntities() {
			return nil, nil
		}
		m.metrics.Lookup(opEntitiesAt)
		entities, err := m.source.EntitiesAt(ctx, key.Vertex)
		if err != nil {
			return nil, err
		}
		for _, ent := range entities {
			if key.Matches(ent) && m.filter.Admits(ent) {
				out = append(out, ent)
			}
		}
	case KeyEdge:
		if !m.filter.IncludeEdges().Accepts(key.Directed) {
			return nil, nil
		}
		m.metrics.Lookup(opEdgesBetween)
		edges, err := m.source.EdgesBetween(ctx, key.Source, key.Destination, key.Directed)
		if err != nil {
			return nil, err
		}
		for _, edge := range edges {
			if key.Matches(edge) && m.filter.Admits(edge) {
				out = append(out, edge)
			}
		}
	}
	return out, nil
}

// related gathers the elements touching each seed vertex. A vertex is looked
// up once per query; later seeds sharing it add nothing new.
func (m *matcher) related(ctx context.Context, seed types.Seed) ([]types.Element, error) {
	var out []types.Element
	for _, v := range seed.Vertices() {
		if _, ok := m.visited[v]; ok {
			continue
		}
		m.visited[v] = struct{}{}

		if m.filter.IncludeEntities() {
			m.metrics.Lookup(opEntitiesAt)
			entities, err := m.source.EntitiesAt(ctx, v)
			if err != nil {
				return nil, err
			}
			for _, ent := range entities {
				if ent.Vertex == v && m.filter.Admits(ent) {
					out = append(out, ent)
				}
			}
		}

		if m.filter.wantsEdges() {
			m.metrics.Lookup(opIncidentEdges)
			edges, err := m.source.IncidentEdges(ctx, v)
			if err != nil {
				return nil, err
			}
			for _, edge := range edges {
				if edge.Touches(v) && m.filter.AdmitsFrom(edge, v) {
					out = append(out, edge)
				}
			}
		}
	}
	return out, nil
}
