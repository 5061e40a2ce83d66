package correction

import (
	"context"
)

// CorrectionRepository defines data access for correction requests
type CorrectionRepository interface {
	// Create inserts a pending request. Returns ErrDuplicateRequest when a
	// non-rejected request exists for the same worker and day.
	Create(ctx context.Context, request Request) (Request, error)

	// GetByID returns ErrCorrectionNotFound when missing.
	GetByID(ctx context.Context, id string) (Request, error)

	// GetByIDForUpdate locks the row for the surrounding transaction.
	GetByIDForUpdate(ctx context.Context, id string) (Request, error)

	// GetActiveByWorkerAndDay returns the non-rejected request for the day, or nil.
	GetActiveByWorkerAndDay(ctx context.Context, workerID, day string) (*Request, error)

	// List returns requests matching the filter, newest first, and the total count.
	List(ctx context.Context, filter CorrectionFilter) ([]Request, int64, error)

	// Decide records the terminal status only if the request is still pending.
	// Returns ErrCorrectionNotFound otherwise.
	Decide(ctx context.Context, request Request) error
}
