package crud

import (
	"context"

	"github.com/restforge/restforge/internal/domain"
)

// Store is the persistence collaborator boundary. Implementations report
// failures as opaque errors; the pipeline wraps every one of them into a
// domain.PersistenceError before it reaches the terminal error channel.
type Store interface {
	// Find returns the single record matching the filter, or nil when no row
	// matches. A nil record with a nil error is not a failure.
	Find(ctx context.Context, filter *domain.Filter) (*domain.Record, error)

	// FindAndCountAll returns the total count of rows matching the predicate
	// alongside the page selected by the filter's pagination and ordering.
	FindAndCountAll(ctx context.Context, filter *domain.Filter) (int64, []*domain.Record, error)

	// Count returns the number of rows matching the predicate alone.
	Count(ctx context.Context, filter *domain.Filter) (int64, error)

	// Create persists a new record from the given column values, attributing
	// both createdBy and updatedBy to the actor.
	Create(ctx context.Context, fields map[string]any, actor int64) (*domain.Record, error)

	// Save persists the record's current field values and updatedBy.
	Save(ctx context.Context, rec *domain.Record) error

	// Destroy removes the record.
	Destroy(ctx context.Context, rec *domain.Record) error
}
