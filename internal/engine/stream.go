package engine

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/scrypster/seedgraph/internal/metrics"
	"github.com/scrypster/seedgraph/pkg/types"
)

// produceFunc returns the next batch of admitted candidates. It reports
// false once no batches remain.
type produceFunc func(ctx context.Context) ([]types.Element, bool, error)

// Stream is the lazy result of a query. Candidates are fetched from storage
// only as the stream is advanced, and every element is returned at most
// once.
//
// A Stream is single-pass and owned by one goroutine. Its use mirrors
// database/sql.Rows:
//
//	s, err := ev.Evaluate(ctx, seeds, types.SeedMatchingRelated, filter)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//	for s.Next() {
//		el := s.Element()
//		...
//	}
//	return s.Err()
type Stream struct {
	ctx     context.Context
	id      string
	mode    string
	produce produceFunc
	release func()

	pending []types.Element
	seen    map[types.ElementKey]struct{}
	current types.Element
	count   int
	err     error
	done    bool

	started time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func newStream(ctx context.Context, id, mode string, produce produceFunc, logger *slog.Logger, m *metrics.Metrics) *Stream {
	return &Stream{
		ctx:     ctx,
		id:      id,
		mode:    mode,
		produce: produce,
		seen:    make(map[types.ElementKey]struct{}),
		started: time.Now(),
		logger:  logger,
		metrics: m,
	}
}

// ID returns the identifier assigned to the query.
func (s *Stream) ID() string { return s.id }

// Next advances to the next element. It returns false when the stream is
// exhausted, has failed, or has been closed; Err distinguishes failure.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	for {
		for len(s.pending) > 0 {
			el := s.pending[0]
			s.pending = s.pending[1:]

			key := el.Key()
			if _, dup := s.seen[key]; dup {
				continue
			}
			s.seen[key] = struct{}{}
			s.current = el
			s.count++
			s.metrics.Emitted(string(el.Class()))
			return true
		}

		if err := s.ctx.Err(); err != nil {
			s.finish(err, metrics.OutcomeError)
			return false
		}

		batch, more, err := s.produce(s.ctx)
		if err != nil {
			s.finish(err, metrics.OutcomeError)
			return false
		}
		if !more {
			s.finish(nil, metrics.OutcomeOK)
			return false
		}
		s.pending = batch
	}
}

// Element returns the element Next advanced to.
func (s *Stream) Element() types.Element { return s.current }

// Err returns the error that ended the stream, if any. Storage errors are
// returned exactly as the candidate source reported them.
func (s *Stream) Err() error { return s.err }

// Count returns how many elements have been returned so far.
func (s *Stream) Count() int { return s.count }

// Close ends the stream, stops any group scan still in progress and releases
// the de-duplication state. Closing an already finished stream is a no-op.
func (s *Stream) Close() error {
	if !s.done {
		s.finish(nil, metrics.OutcomeAbandoned)
	}
	return nil
}

// All returns an iterator over the remaining elements. A failure is yielded
// once as the final pair with a nil element. The stream is closed when
// iteration stops.
func (s *Stream) All() iter.Seq2[types.Element, error] {
	return func(yield func(types.Element, error) bool) {
		defer s.Close()
		for s.Next() {
			if !yield(s.Element(), nil) {
				return
			}
		}
		if err := s.Err(); err != nil {
			yield(nil, err)
		}
	}
}

func (s *Stream) finish(err error, outcome string) {
	if s.release != nil {
		s.release()
		s.release = nil
	}
	s.done = true
	s.err = err
	s.current = nil
	s.pending = nil
	s.seen = nil

	elapsed := time.Since(s.started)
	s.metrics.ObserveQuery(s.mode, outcome, elapsed)
	s.logger.Debug("query finished",
		"query_id", s.id,
		"outcome", outcome,
		"emitted", s.count,
		"duration", elapsed,
	)
}

// Collect drains s into a slice and closes it. On failure the elements read
// before the error are returned along with it.
func Collect(s *Stream) ([]types.Element, error) {
	defer s.Close()
	var out []types.Element
	for s.Next() {
		out = append(out, s.Element())
	}
	return out, s.Err()
}
