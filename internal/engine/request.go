package engine

import (
	"fmt"

	"github.com/scrypster/seedgraph/pkg/types"
)

// Query is a decoded, validated seeded query.
type Query struct {
	Seeds  []types.Seed
	Mode   types.SeedMatching
	Filter *QueryFilter
}

// ParseRequest decodes a wire query. Every error it returns wraps
// ErrInvalidQuery.
func ParseRequest(req types.QueryRequest) (Query, error) {
	filter, knobs, err := parseKnobs(req)
	if err != nil {
		return Query{}, err
	}
	seeds, err := req.DecodedSeeds()
	if err != nil {
		return Query{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	return Query{Seeds: seeds, Mode: knobs.SeedMatching, Filter: filter}, nil
}

// ParseFilter decodes only the inclusion knobs of a wire query, as used by
// the all-elements query. Seeds and seed matching are ignored.
func ParseFilter(req types.QueryRequest) (*QueryFilter, error) {
	filter, _, err := parseKnobs(req)
	return filter, err
}

func parseKnobs(req types.QueryRequest) (*QueryFilter, types.QueryKnobs, error) {
	knobs, err := req.Knobs()
	if err != nil {
		return nil, knobs, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	filter, err := NewQueryFilter(FilterOptions{
		IncludeEntities:         knobs.IncludeEntities,
		IncludeEdges:            knobs.IncludeEdges,
		IncludeIncomingOutgoing: knobs.IncludeIncomingOutgoing,
		Groups:                  knobs.Groups,
	})
	if err != nil {
		return nil, knobs, err
	}
	return filter, knobs, nil
}
