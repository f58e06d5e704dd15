package crud

import (
	"context"

	"github.com/restforge/restforge/internal/domain"
)

// resolveReferences walks the reference-model chain in declaration order,
// resolving each path-parameter identifier against its store and adding one
// where entry per model. The chain stops at the first failure: if model i
// fails, model i+1 is never queried. Later entries may overwrite earlier
// same-named keys, so the order is part of the contract.
func resolveReferences(ctx context.Context, refs []*Resource, pathParams map[string]string, filter *domain.Filter) error {
	for _, ref := range refs {
		id, err := parseID(pathParams[ref.IDParam])
		if err != nil {
			return err
		}

		lookup := domain.NewFilter()
		lookup.Where[domain.ColumnID] = id

		rec, err := ref.Store.Find(ctx, lookup)
		if err != nil {
			return domain.NewPersistenceError(domain.DBReadError, err)
		}
		if rec == nil {
			return domain.NewValidationError("cannot find %s with id %d", ref.DisplayName, id)
		}

		filter.Where[ref.IDParam] = rec.ID
	}
	return nil
}
