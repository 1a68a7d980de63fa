package patent

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows candidate listings for search and prior-art scans.
type ListFilter struct {
	// Assignee, when non-empty, restricts results to one assignee.
	Assignee string

	// Limit caps the number of patents returned; zero means the
	// repository default.
	Limit int

	// Offset supports simple pagination.
	Offset int
}

// Repository defines the persistence contract for the patent aggregate.
// Implementations live under internal/infrastructure/database.
type Repository interface {
	// Create stores a patent together with its claim set.
	Create(ctx context.Context, p *Patent) error

	// GetByID loads a patent and its claims.  Returns ErrCodePatentNotFound
	// when no patent has the given id.
	GetByID(ctx context.Context, id uuid.UUID) (*Patent, error)

	// GetByIDs loads several patents at once, preserving the order of ids.
	// Missing ids are skipped, not errors.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Patent, error)

	// GetByNumber loads a patent by its publication number.
	GetByNumber(ctx context.Context, number string) (*Patent, error)

	// List returns patents matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]*Patent, error)

	// SaveClaims replaces a patent's stored claim set.
	SaveClaims(ctx context.Context, patentID uuid.UUID, claims ClaimSet) error

	// GetClaims loads a patent's claim set in number order.
	GetClaims(ctx context.Context, patentID uuid.UUID) (ClaimSet, error)

	// Count returns the number of stored patents.
	Count(ctx context.Context) (int64, error)
}
