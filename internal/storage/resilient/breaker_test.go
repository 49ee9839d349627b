package resilient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/seedgraph/internal/metrics"
	"github.com/scrypster/seedgraph/internal/storage"
	"github.com/scrypster/seedgraph/internal/storage/memory"
	"github.com/scrypster/seedgraph/internal/storage/storagetest"
	"github.com/scrypster/seedgraph/pkg/types"
)

// flakyBackend fails lookups with err while failing is set.
type flakyBackend struct {
	*memory.Store
	failing bool
	err     error
	calls   int
}

func (f *flakyBackend) IncidentEdges(ctx context.Context, v types.VertexID) ([]types.Edge, error) {
	f.calls++
	if f.failing {
		return nil, f.err
	}
	return f.Store.IncidentEdges(ctx, v)
}

func newFlaky() *flakyBackend {
	return &flakyBackend{
		Store: memory.New(),
		err:   storage.Unavailable("flaky: incident edges", errors.New("connection refused")),
	}
}

func TestStore_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		return New(memory.New(), DefaultConfig())
	})
}

func TestStore_OpensAfterConsecutiveFailures(t *testing.T) {
	backend := newFlaky()
	backend.failing = true
	s := New(backend, Config{MaxFailures: 3, Timeout: time.Hour})
	ctx := context.Background()

	for range 3 {
		_, err := s.IncidentEdges(ctx, "a")
		assert.Equal(t, backend.err, err, "backend errors pass through unchanged")
	}
	assert.Equal(t, "open", s.State())

	_, err := s.IncidentEdges(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 3, backend.calls, "an open circuit does not reach the backend")

	c := s.Counts()
	assert.Equal(t, uint64(4), c.TotalRequests)
	assert.Equal(t, uint64(3), c.TotalFailures)
	assert.Equal(t, uint64(1), c.Rejected)
}

func TestStore_HalfOpenRecovers(t *testing.T) {
	backend := newFlaky()
	backend.failing = true
	s := New(backend, Config{MaxFailures: 1, Timeout: 20 * time.Millisecond, HalfOpenMaxSuccesses: 1})
	ctx := context.Background()

	_, err := s.IncidentEdges(ctx, "a")
	require.Error(t, err)
	require.Equal(t, "open", s.State())

	backend.failing = false
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, "half-open", s.State())

	_, err = s.IncidentEdges(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "closed", s.State())
}

func TestStore_InvalidInputDoesNotTrip(t *testing.T) {
	s := New(memory.New(), Config{MaxFailures: 1, Timeout: time.Hour})
	ctx := context.Background()

	for range 3 {
		err := s.AddElements(ctx, []types.Element{types.Entity{Vertex: "x"}})
		assert.ErrorIs(t, err, storage.ErrInvalidInput)
	}
	assert.Equal(t, "closed", s.State())
}

func TestStore_CancelledContext(t *testing.T) {
	backend := newFlaky()
	s := New(backend, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.IncidentEdges(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, backend.calls)
}

func TestStore_PublishesState(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	backend := newFlaky()
	backend.failing = true
	s := New(backend, Config{Name: "graph", MaxFailures: 1, Timeout: time.Hour}, WithMetrics(m))

	assert.Equal(t, 0.0, testutil.ToFloat64(m.BreakerState.WithLabelValues("graph")))
	_, _ = s.IncidentEdges(context.Background(), "a")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BreakerState.WithLabelValues("graph")))
}
