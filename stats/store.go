package stats

import "context"

// Store persists the single aggregate record.
type Store interface {
	// GetStats returns the aggregate, or a not-found error when no record
	// has been written yet.
	GetStats(ctx context.Context) (*ProgramStats, error)
	// SaveStats creates or replaces the aggregate.
	SaveStats(ctx context.Context, s *ProgramStats) error
}
