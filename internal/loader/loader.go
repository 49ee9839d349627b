// Package loader reads graph fixtures written in YAML.
//
// A fixture lists entities and edges:
//
//	entities:
//	  - {group: Entity, vertex: a}
//	edges:
//	  - {group: Edge, source: a, destination: b, directed: true}
//
// Undirected edges are returned in canonical orientation.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scrypster/seedgraph/pkg/types"
)

// ErrInvalidFixture is returned when a fixture cannot be decoded.
var ErrInvalidFixture = errors.New("invalid fixture")

// Fixture is the YAML document layout.
type Fixture struct {
	Entities []EntityYAML `yaml:"entities"`
	Edges    []EdgeYAML   `yaml:"edges"`
}

type EntityYAML struct {
	Group      types.Group      `yaml:"group"`
	Vertex     types.VertexID   `yaml:"vertex"`
	Properties types.Properties `yaml:"properties,omitempty"`
}

type EdgeYAML struct {
	Group       types.Group      `yaml:"group"`
	Source      types.VertexID   `yaml:"source"`
	Destination types.VertexID   `yaml:"destination"`
	Directed    bool             `yaml:"directed"`
	Properties  types.Properties `yaml:"properties,omitempty"`
}

// Elements converts the fixture to graph elements, entities first. It fails
// on the first entry missing a group or vertex.
func (f Fixture) Elements() ([]types.Element, error) {
	out := make([]types.Element, 0, len(f.Entities)+len(f.Edges))
	for i, e := range f.Entities {
		if e.Group == "" || e.Vertex == "" {
			return nil, fmt.Errorf("%w: entity %d needs group and vertex", ErrInvalidFixture, i)
		}
		out = append(out, types.Entity{Group: e.Group, Vertex: e.Vertex, Properties: e.Properties})
	}
	for i, e := range f.Edges {
		if e.Group == "" || e.Source == "" || e.Destination == "" {
			return nil, fmt.Errorf("%w: edge %d needs group, source and destination", ErrInvalidFixture, i)
		}
		edge := types.NewEdge(e.Group, e.Source, e.Destination, e.Directed)
		edge.Properties = e.Properties
		out = append(out, edge)
	}
	return out, nil
}

// Parse decodes one YAML fixture from r. Unknown keys are rejected. An empty
// document yields no elements.
func Parse(r io.Reader) ([]types.Element, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}
	return f.Elements()
}

// LoadFile reads the fixture at path.
func LoadFile(path string) ([]types.Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	elems, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return elems, nil
}

// LoadDir reads every .yaml and .yml file under dir, in lexical path order.
// Hidden directories are skipped.
func LoadDir(dir string) ([]types.Element, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	sort.Strings(files)

	var out []types.Element
	for _, f := range files {
		elems, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		out = append(out, elems...)
	}
	return out, nil
}

// Load reads path as a single fixture file or, if it is a directory, as a
// tree of fixtures.
func Load(path string) ([]types.Element, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat fixture: %w", err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}
