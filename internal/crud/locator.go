package crud

import (
	"context"

	"github.com/restforge/restforge/internal/domain"
)

// locateEntity finds exactly one record matching the accumulated predicate
// plus the operation's own path identifier. The filter is cloned so the added
// id clause never leaks back into the caller's state. A well-formed id with
// no matching row is NotFoundError, distinct from the ValidationError a
// malformed id produces.
func locateEntity(ctx context.Context, resource *Resource, filter *domain.Filter, rawID string) (*domain.Record, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	lookup := filter.Clone()
	lookup.Where[domain.ColumnID] = id

	rec, err := resource.Store.Find(ctx, lookup)
	if err != nil {
		return nil, domain.NewPersistenceError(domain.DBReadError, err)
	}
	if rec == nil {
		return nil, domain.NewNotFoundError(resource.DisplayName, "cannot find %s with id %d", resource.DisplayName, id)
	}
	return rec, nil
}
