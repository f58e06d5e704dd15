// Package expand implements the partial-response step that terminates read
// pipelines: trimming envelope content to caller-requested fields and
// hydrating reference keys into the records they point at.
package expand

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/graph-gophers/dataloader"

	"github.com/restforge/restforge/internal/crud"
	"github.com/restforge/restforge/internal/domain"
)

// Query keys consumed here. The crud validators let both of them through on
// read operations.
const (
	fieldsKey = "fields"
	expandKey = "expand"
)

// Expander hydrates and trims populated response envelopes for one resource.
// References maps a record field name (the reference model's id parameter) to
// the store holding the referenced records.
type Expander struct {
	references map[string]crud.Store
}

// NewExpander builds an expander over the given reference stores. A nil or
// empty map yields an expander that only performs field selection.
func NewExpander(references map[string]crud.Store) *Expander {
	return &Expander{references: references}
}

// ExpandList finalizes a list envelope in place.
func (e *Expander) ExpandList(ctx context.Context, env *crud.ListEnvelope, query url.Values) error {
	expanded, err := e.hydrate(ctx, env.Content, splitParam(query.Get(expandKey)))
	if err != nil {
		return err
	}
	env.Content = selectFields(expanded, splitParam(query.Get(fieldsKey)))
	return nil
}

// ExpandGet finalizes a get envelope in place.
func (e *Expander) ExpandGet(ctx context.Context, env *crud.GetEnvelope, query url.Values) error {
	expanded, err := e.hydrate(ctx, []map[string]any{env.Content}, splitParam(query.Get(expandKey)))
	if err != nil {
		return err
	}
	env.Content = selectFields(expanded, splitParam(query.Get(fieldsKey)))[0]
	return nil
}

// hydrate replaces each requested reference key's identifier value with the
// flattened referenced record. All records of a page share one loader per
// key, so lookups batch into a single store call.
func (e *Expander) hydrate(ctx context.Context, content []map[string]any, expand []string) ([]map[string]any, error) {
	for _, key := range expand {
		store, ok := e.references[key]
		if !ok {
			return nil, domain.NewValidationError("cannot expand %s", key)
		}
		loader := newRecordLoader(store)

		thunks := make([]dataloader.Thunk, len(content))
		for i, item := range content {
			id, ok := numericID(item[key])
			if !ok {
				continue
			}
			thunks[i] = loader.Load(ctx, dataloader.StringKey(formatID(id)))
		}
		for i, thunk := range thunks {
			if thunk == nil {
				continue
			}
			data, err := thunk()
			if err != nil {
				return nil, domain.NewPersistenceError(domain.DBReadError, err)
			}
			if rec, ok := data.(*domain.Record); ok && rec != nil {
				content[i][key] = rec.Flatten()
			}
		}
	}
	return content, nil
}

// selectFields trims each record to the requested fields. The identifier is
// always retained; an empty request keeps everything.
func selectFields(content []map[string]any, fields []string) []map[string]any {
	if len(fields) == 0 {
		return content
	}
	out := make([]map[string]any, len(content))
	for i, item := range content {
		trimmed := make(map[string]any, len(fields)+1)
		if id, ok := item[domain.ColumnID]; ok {
			trimmed[domain.ColumnID] = id
		}
		for _, field := range fields {
			if v, ok := item[field]; ok {
				trimmed[field] = v
			}
		}
		out[i] = trimmed
	}
	return out
}

func numericID(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int32:
		return int64(t), true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	}
	return 0, false
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func splitParam(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
