package report

import "context"

// Repository defines the interface for report persistence operations.
type Repository interface {
	// Save inserts or replaces a report by ID.
	Save(ctx context.Context, r *Report) error

	// FindByID retrieves a report by its identifier.
	// Returns ErrReportNotFound if not found.
	FindByID(ctx context.Context, id string) (*Report, error)

	// FindByScenario retrieves the latest reports of a scenario, newest first.
	// A limit <= 0 means no limit.
	FindByScenario(ctx context.Context, scenario string, limit int) ([]*Report, error)
}
