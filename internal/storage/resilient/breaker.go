// Package resilient guards a storage backend with a circuit breaker.
//
// After a run of consecutive storage failures the circuit opens and every
// call fails fast with an error matching storage.ErrStorageUnavailable until
// the timeout elapses. Nothing is retried.
package resilient

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/scrypster/seedgraph/internal/metrics"
	"github.com/scrypster/seedgraph/internal/storage"
	"github.com/scrypster/seedgraph/pkg/types"
)

// ErrCircuitOpen is the cause reported while the circuit rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config holds the configuration for the circuit breaker.
type Config struct {
	// Name identifies the breaker in logs and metrics.
	Name string

	// MaxFailures is the number of consecutive failures required to trip the circuit.
	// Default: 5
	MaxFailures uint32

	// Timeout is the duration the circuit stays open before transitioning to half-open.
	// Default: 30 seconds
	Timeout time.Duration

	// HalfOpenMaxSuccesses is the number of requests allowed through, and the
	// number of successes required, in the half-open state.
	// Default: 2
	HalfOpenMaxSuccesses uint32
}

// DefaultConfig returns the default breaker configuration.
func DefaultConfig() Config {
	return Config{
		Name:                 "storage",
		MaxFailures:          5,
		Timeout:              30 * time.Second,
		HalfOpenMaxSuccesses: 2,
	}
}

// Counts holds request counters since the store was created.
type Counts struct {
	TotalRequests        uint64
	TotalFailures        uint64
	Rejected             uint64
	ConsecutiveFailures  uint32
	ConsecutiveSuccesses uint32
}

// Store wraps a storage.Backend with a circuit breaker.
type Store struct {
	backend storage.Backend
	breaker *gobreaker.CircuitBreaker
	name    string
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	counts Counts
}

var _ storage.Backend = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger logs breaker state changes to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics publishes the breaker state to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New wraps backend. Zero fields in cfg take their defaults.
func New(backend storage.Backend, cfg Config, opts ...Option) *Store {
	def := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.HalfOpenMaxSuccesses == 0 {
		cfg.HalfOpenMaxSuccesses = def.HalfOpenMaxSuccesses
	}

	s := &Store{
		backend: backend,
		name:    cfg.Name,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenMaxSuccesses,
		Interval:    0,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		// Only storage unavailability counts against the backend.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, storage.ErrStorageUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("storage circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
			s.metrics.SetBreakerState(name, stateValue(to))
		},
	})
	s.metrics.SetBreakerState(cfg.Name, 0)
	return s
}

func stateValue(st gobreaker.State) float64 {
	switch st {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// execute runs fn through the breaker. Calls rejected by an open circuit
// fail with a storage.UnavailableError whose cause is ErrCircuitOpen.
func execute[T any](s *Store, ctx context.Context, op string, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return fn()
	})

	s.mu.Lock()
	s.counts.TotalRequests++
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		s.counts.Rejected++
	case err != nil && errors.Is(err, storage.ErrStorageUnavailable):
		s.counts.TotalFailures++
	}
	s.mu.Unlock()

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, storage.Unavailable(s.name+": "+op, ErrCircuitOpen)
	}
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	return result.(T), nil
}

// EntitiesAt implements storage.CandidateSource.
func (s *Store) EntitiesAt(ctx context.Context, v types.VertexID) ([]types.Entity, error) {
	return execute(s, ctx, "entities at", func() ([]types.Entity, error) {
		return s.backend.EntitiesAt(ctx, v)
	})
}

// EdgesBetween implements storage.CandidateSource.
func (s *Store) EdgesBetween(ctx context.Context, source, destination types.VertexID, directed bool) ([]types.Edge, error) {
	return execute(s, ctx, "edges between", func() ([]types.Edge, error) {
		return s.backend.EdgesBetween(ctx, source, destination, directed)
	})
}

// IncidentEdges implements storage.CandidateSource.
func (s *Store) IncidentEdges(ctx context.Context, v types.VertexID) ([]types.Edge, error) {
	return execute(s, ctx, "incident edges", func() ([]types.Edge, error) {
		return s.backend.IncidentEdges(ctx, v)
	})
}

// ScanGroups implements storage.GroupScanner.
func (s *Store) ScanGroups(ctx context.Context, groups []types.Group, fn func(types.Element) error) error {
	_, err := execute(s, ctx, "scan groups", func() (struct{}, error) {
		return struct{}{}, s.backend.ScanGroups(ctx, groups, fn)
	})
	return err
}

// AddElements implements storage.GraphWriter.
func (s *Store) AddElements(ctx context.Context, elements []types.Element) error {
	_, err := execute(s, ctx, "add elements", func() (struct{}, error) {
		return struct{}{}, s.backend.AddElements(ctx, elements)
	})
	return err
}

// Close closes the wrapped backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// State returns the current state of the circuit breaker.
// Possible values: "closed", "open", "half-open"
func (s *Store) State() string {
	return s.breaker.State().String()
}

// Counts returns the request counters.
func (s *Store) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.counts
	bc := s.breaker.Counts()
	c.ConsecutiveFailures = bc.ConsecutiveFailures
	c.ConsecutiveSuccesses = bc.ConsecutiveSuccesses
	return c
}
