package expand

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/restforge/restforge/internal/crud"
	"github.com/restforge/restforge/internal/domain"
)

// newRecordLoader builds a dataloader that batches reference lookups against
// one store. Keys are decimal record identifiers; a missing record resolves
// to nil data, matching the single-lookup behavior.
func newRecordLoader(store crud.Store) *dataloader.Loader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]any, len(keys))
		for i, k := range keys {
			id, err := strconv.ParseInt(k.String(), 10, 64)
			if err != nil {
				results := make([]*dataloader.Result, len(keys))
				for j := range results {
					results[j] = &dataloader.Result{Error: fmt.Errorf("invalid record id %q: %w", k.String(), err)}
				}
				return results
			}
			ids[i] = id
		}

		filter := domain.NewFilter()
		filter.Where["id__in"] = ids

		_, records, err := store.FindAndCountAll(ctx, filter)
		if err != nil {
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Map id -> record for ordering
		recordMap := make(map[string]*domain.Record, len(records))
		for _, rec := range records {
			recordMap[strconv.FormatInt(rec.ID, 10)] = rec
		}

		// Build results in the same order as keys
		results := make([]*dataloader.Result, len(keys))
		for i, k := range keys {
			if rec, ok := recordMap[k.String()]; ok {
				results[i] = &dataloader.Result{Data: rec}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}
		return results
	}

	return dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))
}
