package engine_test

import (
	"context"
	"sync"

	"github.com/scrypster/seedgraph/internal/storage"
	"github.com/scrypster/seedgraph/pkg/types"
)

// fakeSource is an in-memory CandidateSource that counts calls and can be
// told to fail.
type fakeSource struct {
	mu       sync.Mutex
	elements []types.Element
	keys     map[types.ElementKey]struct{}
	calls    map[string]int
	failOn   string
	failErr  error

	// scanned counts elements passed to ScanGroups callbacks; scanEnded is
	// set when ScanGroups returns.
	scanned   int
	scanEnded bool
}

func newFakeSource(elements ...types.Element) *fakeSource {
	f := &fakeSource{
		keys:  make(map[types.ElementKey]struct{}),
		calls: make(map[string]int),
	}
	for _, el := range elements {
		f.add(el)
	}
	return f
}

func (f *fakeSource) add(el types.Element) {
	if _, ok := f.keys[el.Key()]; ok {
		return
	}
	f.keys[el.Key()] = struct{}{}
	f.elements = append(f.elements, el)
}

func (f *fakeSource) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if f.failOn == op || f.failOn == "*" {
		return f.failErr
	}
	return nil
}

func (f *fakeSource) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeSource) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeSource) EntitiesAt(_ context.Context, v types.VertexID) ([]types.Entity, error) {
	if err := f.record("EntitiesAt"); err != nil {
		return nil, err
	}
	var out []types.Entity
	for _, el := range f.elements {
		if e, ok := el.(types.Entity); ok && e.Vertex == v {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeSource) EdgesBetween(_ context.Context, source, destination types.VertexID, directed bool) ([]types.Edge, error) {
	if err := f.record("EdgesBetween"); err != nil {
		return nil, err
	}
	want := types.Edge{Source: source, Destination: destination, Directed: directed}.Canonical()
	var out []types.Edge
	for _, el := range f.elements {
		e, ok := el.(types.Edge)
		if !ok || e.Directed != directed {
			continue
		}
		c := e.Canonical()
		if c.Source == want.Source && c.Destination == want.Destination {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeSource) IncidentEdges(_ context.Context, v types.VertexID) ([]types.Edge, error) {
	if err := f.record("IncidentEdges"); err != nil {
		return nil, err
	}
	var out []types.Edge
	for _, el := range f.elements {
		if e, ok := el.(types.Edge); ok && e.Touches(v) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeSource) ScanGroups(_ context.Context, groups []types.Group, fn func(types.Element) error) error {
	if err := f.record("ScanGroups"); err != nil {
		return err
	}
	set := storage.GroupSet(groups)
	for _, el := range f.elements {
		var g types.Group
		switch e := el.(type) {
		case types.Entity:
			g = e.Group
		case types.Edge:
			g = e.Group
		}
		if !storage.InGroups(set, g) {
			continue
		}
		f.mu.Lock()
		f.scanned++
		f.mu.Unlock()
		if err := fn(el); err != nil {
			f.endScan()
			return err
		}
	}
	f.endScan()
	return nil
}

func (f *fakeSource) endScan() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanEnded = true
}

func (f *fakeSource) scanState() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scanned, f.scanEnded
}

// lookupOnly hides ScanGroups from the evaluator.
type lookupOnly struct {
	storage.CandidateSource
}

func keysOf(elements []types.Element) []types.ElementKey {
	keys := make([]types.ElementKey, 0, len(elements))
	for _, el := range elements {
		keys = append(keys, el.Key())
	}
	return keys
}
