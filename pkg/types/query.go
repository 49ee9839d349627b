package types

import "fmt"

// QueryRequest is the wire form of a seeded query. Omitted knobs take their
// defaults: RELATED matching, entities included, ALL edges, BOTH directions
// and every group. An explicit empty groups list selects no group.
type QueryRequest struct {
	Seeds                   []SeedJSON `json:"seeds" yaml:"seeds"`
	SeedMatching            string     `json:"seed_matching,omitempty" yaml:"seed_matching,omitempty"`
	IncludeEntities         *bool      `json:"include_entities,omitempty" yaml:"include_entities,omitempty"`
	IncludeEdges            string     `json:"include_edges,omitempty" yaml:"include_edges,omitempty"`
	IncludeIncomingOutgoing string     `json:"include_incoming_outgoing,omitempty" yaml:"include_incoming_outgoing,omitempty"`
	Groups                  []Group    `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// QueryKnobs are the decoded enumerations of a QueryRequest.
type QueryKnobs struct {
	SeedMatching            SeedMatching
	IncludeEntities         bool
	IncludeEdges            IncludeEdgeType
	IncludeIncomingOutgoing IncludeIncomingOutgoing
	Groups                  []Group
}

// Knobs parses the request enumerations, applying defaults for omitted
// fields. Errors wrap ErrInvalidEnum.
func (r QueryRequest) Knobs() (QueryKnobs, error) {
	k := QueryKnobs{
		SeedMatching:            SeedMatchingRelated,
		IncludeEntities:         true,
		IncludeEdges:            IncludeEdgesAll,
		IncludeIncomingOutgoing: IncludeBoth,
		Groups:                  r.Groups,
	}
	var err error
	if r.SeedMatching != "" {
		if k.SeedMatching, err = ParseSeedMatching(r.SeedMatching); err != nil {
			return QueryKnobs{}, err
		}
	}
	if r.IncludeEntities != nil {
		k.IncludeEntities = *r.IncludeEntities
	}
	if r.IncludeEdges != "" {
		if k.IncludeEdges, err = ParseIncludeEdgeType(r.IncludeEdges); err != nil {
			return QueryKnobs{}, err
		}
	}
	if r.IncludeIncomingOutgoing != "" {
		if k.IncludeIncomingOutgoing, err = ParseIncludeIncomingOutgoing(r.IncludeIncomingOutgoing); err != nil {
			return QueryKnobs{}, err
		}
	}
	return k, nil
}

// DecodedSeeds returns the request seeds as Seed values.
func (r QueryRequest) DecodedSeeds() ([]Seed, error) {
	seeds, err := DecodeSeeds(r.Seeds)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return seeds, nil
}
