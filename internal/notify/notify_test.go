package notify

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/seedgraph/pkg/types"
)

type reloadMsg struct {
	path     string
	elements []types.Element
}

func startWatcher(t *testing.T, paths ...string) <-chan reloadMsg {
	t.Helper()
	received := make(chan reloadMsg, 16)
	w := NewFixtureWatcher(paths, func(path string, elements []types.Element) {
		received <- reloadMsg{path, elements}
	}, nil)
	require.NoError(t, w.Start())
	t.Cleanup(w.Stop)
	return received
}

// waitForElements waits for a reload of path carrying n elements. Partial
// writes may be observed first and are skipped.
func waitForElements(t *testing.T, received <-chan reloadMsg, path string, n int) reloadMsg {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case msg := <-received:
			if msg.path == path && len(msg.elements) == n {
				return msg
			}
		case <-timeout:
			t.Fatalf("timeout waiting for %d elements from %s", n, path)
		}
	}
}

func TestFixtureWatcher_DirectoryReload(t *testing.T) {
	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err)
	received := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	path := filepath.Join(dir, "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`entities:
  - {group: Entity, vertex: a}
edges:
  - {group: Edge, source: b, destination: a}
`), 0o600))

	msg := waitForElements(t, received, path, 2)
	assert.Equal(t, types.NewEntity("Entity", "a"), msg.elements[0])
	assert.Equal(t, types.NewEdge("Edge", "a", "b", false), msg.elements[1])
}

func TestFixtureWatcher_InvalidFixtureSkipped(t *testing.T) {
	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err)
	received := startWatcher(t, dir)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("entities: [{group: Entity}]\n"), 0o600))

	good := filepath.Join(dir, "good.yml")
	require.NoError(t, os.WriteFile(good, []byte("entities: [{group: Entity, vertex: x}]\n"), 0o600))

	msg := waitForElements(t, received, good, 1)
	assert.Equal(t, good, msg.path)
}

func TestFixtureWatcher_SingleFile(t *testing.T) {
	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err)

	path := filepath.Join(dir, "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entities: []\n"), 0o600))
	received := startWatcher(t, path)

	sibling := filepath.Join(dir, "other.yaml")
	require.NoError(t, os.WriteFile(sibling, []byte("entities: [{group: Entity, vertex: s}]\n"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("entities: [{group: Entity, vertex: a}, {group: Entity, vertex: b}]\n"), 0o600))

	msg := waitForElements(t, received, path, 2)
	assert.Equal(t, path, msg.path)
}

func TestFixtureWatcher_MissingPath(t *testing.T) {
	w := NewFixtureWatcher([]string{filepath.Join(t.TempDir(), "missing")}, nil, nil)
	assert.Error(t, w.Start())
	w.Stop()
}

func TestFixtureWatcher_Wants(t *testing.T) {
	w := NewFixtureWatcher(nil, nil, nil)
	w.dirs["/data"] = true
	w.files["/other/graph.json"] = true

	assert.True(t, w.wants("/data/a.yaml"))
	assert.True(t, w.wants("/data/a.YML"))
	assert.False(t, w.wants("/data/a.json"))
	assert.False(t, w.wants("/data/.hidden.yaml"))
	assert.False(t, w.wants("/data/sub/a.yaml"))
	assert.True(t, w.wants("/other/graph.json"))
	assert.False(t, w.wants("/other/graph.yaml"))
}
