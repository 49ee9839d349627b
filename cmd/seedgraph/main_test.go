package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/seedgraph/internal/engine"
	"github.com/scrypster/seedgraph/pkg/types"
)

const fixtureYAML = `entities:
  - {group: Person, vertex: ada}
edges:
  - {group: Knows, source: ada, destination: bob, directed: true}
  - {group: Knows, source: cyd, destination: ada}
`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o600))
	return path
}

// run executes the CLI with args and returns what it wrote to stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

// elementsOf decodes JSON-lines output into sorted one-line descriptions.
func elementsOf(t *testing.T, out string) []string {
	t.Helper()
	var got []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var e types.ElementJSON
		require.NoError(t, json.Unmarshal([]byte(line), &e), line)
		if e.Class == types.ClassEntity {
			got = append(got, "entity "+string(e.Vertex))
			continue
		}
		dir := "-"
		if e.Directed {
			dir = ">"
		}
		got = append(got, "edge "+string(e.Source)+dir+string(e.Destination))
	}
	sort.Strings(got)
	return got
}

func TestQueryCmd_Seeds(t *testing.T) {
	fixture := writeFixture(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "related entity seed",
			args: []string{"--seed", "ada"},
			want: []string{"edge ada-cyd", "edge ada>bob", "entity ada"},
		},
		{
			name: "edges excluded",
			args: []string{"--seed", "ada", "--edges", "none"},
			want: []string{"entity ada"},
		},
		{
			name: "incoming only",
			args: []string{"--seed", "bob", "--direction", "INCOMING"},
			want: []string{"edge ada>bob"},
		},
		{
			name: "equal directed edge seed",
			args: []string{"--seed", "ada>bob", "--matching", "EQUAL"},
			want: []string{"edge ada>bob"},
		},
		{
			name: "equal undirected edge seed in either orientation",
			args: []string{"--seed", "cyd-ada", "--matching", "EQUAL"},
			want: []string{"edge ada-cyd"},
		},
		{
			name: "all elements of one group",
			args: []string{"--all", "--group", "Knows"},
			want: []string{"edge ada-cyd", "edge ada>bob"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"query", "--engine", "memory", "--data", fixture, "--log-level", "error"}, tt.args...)
			out, err := run(t, "", args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, elementsOf(t, out))
		})
	}
}

func TestQueryCmd_RequestFromStdin(t *testing.T) {
	fixture := writeFixture(t)

	t.Run("json", func(t *testing.T) {
		out, err := run(t, `{"seeds":[{"class":"EntitySeed","vertex":"bob"}],"include_entities":false}`,
			"query", "--engine", "memory", "--data", fixture, "--file", "-")
		require.NoError(t, err)
		assert.Equal(t, []string{"edge ada>bob"}, elementsOf(t, out))
	})

	t.Run("yaml with flag override", func(t *testing.T) {
		req := "seeds:\n  - {class: EntitySeed, vertex: ada}\ninclude_edges: UNDIRECTED\n"
		out, err := run(t, req,
			"query", "--engine", "memory", "--data", fixture, "--file", "-", "--no-entities")
		require.NoError(t, err)
		assert.Equal(t, []string{"edge ada-cyd"}, elementsOf(t, out))
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := run(t, `{"seeds":[],"limit":1}`, "query", "--engine", "memory", "--file", "-")
		assert.ErrorIs(t, err, engine.ErrInvalidQuery)
	})
}

func TestQueryCmd_InvalidQuery(t *testing.T) {
	tests := map[string][]string{
		"bad matching":   {"--seed", "a", "--matching", "FUZZY"},
		"bad seed":       {"--seed", ">b"},
		"admits nothing": {"--seed", "a", "--no-entities", "--edges", "NONE"},
	}
	for name, extra := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := run(t, "", append([]string{"query", "--engine", "memory"}, extra...)...)
			assert.ErrorIs(t, err, engine.ErrInvalidQuery)
		})
	}
}

func TestQueryCmd_NoSeeds(t *testing.T) {
	out, err := run(t, "", "query", "--engine", "memory", "--data", writeFixture(t))
	require.NoError(t, err)
	assert.Empty(t, elementsOf(t, out))
}

func TestLoadThenQuery_SQLite(t *testing.T) {
	fixture := writeFixture(t)
	db := filepath.Join(t.TempDir(), "data", "graph.db")

	out, err := run(t, "", "load", "--engine", "sqlite", "--sqlite-path", db, fixture)
	require.NoError(t, err)
	assert.Equal(t, "loaded 3 elements into sqlite\n", out)

	out, err = run(t, "", "query", "--engine", "sqlite", "--sqlite-path", db, "--seed", "cyd")
	require.NoError(t, err)
	assert.Equal(t, []string{"edge ada-cyd"}, elementsOf(t, out))
}

func TestLoadCmd_RequiresPath(t *testing.T) {
	_, err := run(t, "", "load", "--engine", "memory")
	assert.Error(t, err)
}

func TestRootCmd_UnknownEngine(t *testing.T) {
	_, err := run(t, "", "query", "--engine", "cassandra", "--seed", "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage engine")
}

func TestRootCmd_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "seedgraph.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("storage:\n  engine: memory\nlog:\n  level: error\n"), 0o600))

	out, err := run(t, "", "query", "--config", cfgPath, "--data", writeFixture(t), "--seed", "bob", "--edges", "NONE")
	require.NoError(t, err)
	assert.Empty(t, elementsOf(t, out), "bob has no entity")
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "seedgraph dev\n", out)
}

func TestParseSeed(t *testing.T) {
	tests := []struct {
		in   string
		want types.SeedJSON
	}{
		{"a", types.SeedJSON{Class: types.ClassEntitySeed, Vertex: "a"}},
		{"a-b", types.SeedJSON{Class: types.ClassEdgeSeed, Source: "a", Destination: "b"}},
		{"a>b", types.SeedJSON{Class: types.ClassEdgeSeed, Source: "a", Destination: "b", Directed: true}},
	}
	for _, tt := range tests {
		got, err := parseSeed(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "a>", "-b"} {
		_, err := parseSeed(bad)
		assert.ErrorIs(t, err, engine.ErrInvalidQuery, bad)
	}
}

func TestServeCmd_InvalidConfig(t *testing.T) {
	_, err := run(t, "", "serve", "--engine", "postgres")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dsn is required")
}

func TestServeCmd_MissingWatchPath(t *testing.T) {
	_, err := run(t, "", "serve", "--engine", "memory", "--port", "0", "--watch",
		"--data", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
