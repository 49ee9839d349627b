package postgres

import (
	"context"
	"fmt"
)

// TruncateForTest removes all rows from the element tables.
func (s *Store) TruncateForTest(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "TRUNCATE TABLE entities, edges"); err != nil {
		return fmt.Errorf("postgres: failed to truncate: %w", err)
	}
	return nil
}
