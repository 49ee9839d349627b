package storage

import (
	"encoding/json"
	"fmt"

	"github.com/scrypster/seedgraph/pkg/types"
)

// MarshalProperties encodes element properties for a backend column or
// value. Empty properties encode to nil.
func MarshalProperties(p types.Properties) ([]byte, error) {
	if len(p) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: properties: %v", ErrInvalidInput, err)
	}
	return data, nil
}

// UnmarshalProperties decodes properties written by MarshalProperties.
func UnmarshalProperties(data []byte) (types.Properties, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var p types.Properties
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	return p, nil
}
