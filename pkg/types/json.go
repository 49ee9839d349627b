package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidElement is returned when a wire element or seed cannot be decoded.
var ErrInvalidElement = errors.New("invalid element")

// ElementJSON is the wire form of an Element. Class selects which of the
// vertex fields are meaningful.
type ElementJSON struct {
	Class       ElementClass `json:"class" yaml:"class"`
	Group       Group        `json:"group" yaml:"group"`
	Vertex      VertexID     `json:"vertex,omitempty" yaml:"vertex,omitempty"`
	Source      VertexID     `json:"source,omitempty" yaml:"source,omitempty"`
	Destination VertexID     `json:"destination,omitempty" yaml:"destination,omitempty"`
	Directed    bool         `json:"directed,omitempty" yaml:"directed,omitempty"`
	Properties  Properties   `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// EncodeElement converts an element to its wire form.
func EncodeElement(el Element) ElementJSON {
	switch e := el.(type) {
	case Entity:
		return ElementJSON{Class: ClassEntity, Group: e.Group, Vertex: e.Vertex, Properties: e.Properties}
	case Edge:
		return ElementJSON{
			Class:       ClassEdge,
			Group:       e.Group,
			Source:      e.Source,
			Destination: e.Destination,
			Directed:    e.Directed,
			Properties:  e.Properties,
		}
	default:
		panic("types: unknown element type")
	}
}

// Decode converts the wire form back to an Element. Undirected edges come
// back in canonical orientation.
func (j ElementJSON) Decode() (Element, error) {
	if j.Group == "" {
		return nil, fmt.Errorf("%w: group is required", ErrInvalidElement)
	}
	switch j.Class {
	case ClassEntity:
		if j.Vertex == "" {
			return nil, fmt.Errorf("%w: entity vertex is required", ErrInvalidElement)
		}
		return Entity{Group: j.Group, Vertex: j.Vertex, Properties: j.Properties}, nil
	case ClassEdge:
		if j.Source == "" || j.Destination == "" {
			return nil, fmt.Errorf("%w: edge source and destination are required", ErrInvalidElement)
		}
		e := NewEdge(j.Group, j.Source, j.Destination, j.Directed)
		e.Properties = j.Properties
		return e, nil
	default:
		return nil, fmt.Errorf("%w: unknown class %q", ErrInvalidElement, j.Class)
	}
}

// MarshalJSON encodes the entity with its class discriminator.
func (e Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(EncodeElement(e))
}

// MarshalJSON encodes the edge with its class discriminator.
func (e Edge) MarshalJSON() ([]byte, error) {
	return json.Marshal(EncodeElement(e))
}

// SeedJSON is the wire form of a Seed.
type SeedJSON struct {
	Class       SeedClass `json:"class" yaml:"class"`
	Vertex      VertexID  `json:"vertex,omitempty" yaml:"vertex,omitempty"`
	Source      VertexID  `json:"source,omitempty" yaml:"source,omitempty"`
	Destination VertexID  `json:"destination,omitempty" yaml:"destination,omitempty"`
	Directed    bool      `json:"directed,omitempty" yaml:"directed,omitempty"`
}

// EncodeSeed converts a seed to its wire form.
func EncodeSeed(s Seed) SeedJSON {
	switch sd := s.(type) {
	case EntitySeed:
		return SeedJSON{Class: ClassEntitySeed, Vertex: sd.Vertex}
	case EdgeSeed:
		return SeedJSON{Class: ClassEdgeSeed, Source: sd.Source, Destination: sd.Destination, Directed: sd.Directed}
	default:
		panic("types: unknown seed type")
	}
}

// Decode converts the wire form back to a Seed.
func (j SeedJSON) Decode() (Seed, error) {
	switch j.Class {
	case ClassEntitySeed:
		if j.Vertex == "" {
			return nil, fmt.Errorf("%w: entity seed vertex is required", ErrInvalidElement)
		}
		return EntitySeed{Vertex: j.Vertex}, nil
	case ClassEdgeSeed:
		if j.Source == "" || j.Destination == "" {
			return nil, fmt.Errorf("%w: edge seed source and destination are required", ErrInvalidElement)
		}
		return EdgeSeed{Source: j.Source, Destination: j.Destination, Directed: j.Directed}, nil
	default:
		return nil, fmt.Errorf("%w: unknown seed class %q", ErrInvalidElement, j.Class)
	}
}

// DecodeSeeds decodes a list of wire seeds, failing on the first bad one.
func DecodeSeeds(in []SeedJSON) ([]Seed, error) {
	seeds := make([]Seed, 0, len(in))
	for i, j := range in {
		s, err := j.Decode()
		if err != nil {
			return nil, fmt.Errorf("seed %d: %w", i, err)
		}
		seeds = append(seeds, s)
	}
	return seeds, nil
}

// DecodeElements decodes a list of wire elements, failing on the first bad one.
func DecodeElements(in []ElementJSON) ([]Element, error) {
	elems := make([]Element, 0, len(in))
	for i, j := range in {
		el, err := j.Decode()
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		elems = append(elems, el)
	}
	return elems, nil
}
