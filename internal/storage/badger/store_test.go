package badger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/seedgraph/internal/storage"
	"github.com/scrypster/seedgraph/internal/storage/storagetest"
	"github.com/scrypster/seedgraph/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(Options{InMemory: true}, nil)
	require.NoError(t, err)
	return store
}

func TestStore_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		return newTestStore(t)
	})
}

func TestStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := New(Options{Dir: dir}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	require.NoError(t, store.AddElements(ctx, []types.Element{types.NewEdge("Edge", "a", "b", true)}))
	require.NoError(t, store.Close())

	store, err = New(Options{Dir: dir}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	got, err := store.IncidentEdges(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStore_VertexPrefixIsExact(t *testing.T) {
	store := newTestStore(t)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	require.NoError(t, store.AddElements(ctx, []types.Element{
		types.NewEntity("Entity", "a"),
		types.NewEntity("Entity", "ab"),
		types.NewEdge("Edge", "ab", "c", false),
	}))

	entities, err := store.EntitiesAt(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, entities, 1)

	edges, err := store.IncidentEdges(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestStore_ClosedReportsUnavailable(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Close())

	_, err := store.IncidentEdges(context.Background(), "a")
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)
}

func TestStore_SeparatorInLookupMatchesNothing(t *testing.T) {
	store := newTestStore(t)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	require.NoError(t, store.AddElements(ctx, []types.Element{
		types.NewEntity("Entity", "a"),
		types.NewEdge("Edge", "a", "b", true),
	}))

	edges, err := store.IncidentEdges(ctx, "a\x00Edge")
	require.NoError(t, err)
	assert.Empty(t, edges)

	edges, err = store.EdgesBetween(ctx, "a\x00Edge", "a", true)
	require.NoError(t, err)
	assert.Empty(t, edges)

	err = store.AddElements(ctx, []types.Element{types.NewEntity("Entity", "a\x00Entity")})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	entities, err := store.EntitiesAt(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, entities, 1, "rejected write leaves the store unchanged")
}

func TestStore_ScanGroupsPassesEachEdgeOnce(t *testing.T) {
	store := newTestStore(t)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	require.NoError(t, store.AddElements(ctx, []types.Element{
		types.NewEdge("Edge", "b", "a", false),
		types.NewEdge("Edge", "b", "a", true),
		types.NewEdge("Edge", "c", "c", true),
	}))

	var got []types.ElementKey
	require.NoError(t, store.ScanGroups(ctx, []types.Group{"Edge"}, func(el types.Element) error {
		got = append(got, el.Key())
		return nil
	}))
	assert.ElementsMatch(t, []types.ElementKey{
		types.NewEdge("Edge", "a", "b", false).Key(),
		types.NewEdge("Edge", "b", "a", true).Key(),
		types.NewEdge("Edge", "c", "c", true).Key(),
	}, got)
}
