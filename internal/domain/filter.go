package domain

// SortDirection represents ordering direction for sortable fields.
type SortDirection string

const (
	SortDirectionAsc  SortDirection = "asc"
	SortDirectionDesc SortDirection = "desc"
)

// OrderTerm is one element of an ordering specification.
type OrderTerm struct {
	Field     string
	Direction SortDirection
}

// Filter is the accumulated query predicate handed to the persistence layer.
// Where keys are entity column names or reference foreign-key names, never raw
// caller input; a key may carry an operator suffix of the form "field__op"
// (op in eq, ne, lt, lte, gt, gte, like, in), plain keys meaning equality.
// A Filter is built fresh per request, mutated additively through the
// pipeline, and discarded after the persistence call.
type Filter struct {
	Where   map[string]any
	Offset  int
	Limit   int
	OrderBy []OrderTerm
}

// NewFilter returns an empty filter with an allocated Where map and no
// pagination bounds (Limit 0 means unbounded until the query builder sets it).
func NewFilter() *Filter {
	return &Filter{Where: map[string]any{}}
}

// Clone returns a deep copy so a derived predicate cannot leak back into the
// request's shared filter.
func (f *Filter) Clone() *Filter {
	where := make(map[string]any, len(f.Where))
	for k, v := range f.Where {
		where[k] = v
	}
	orderBy := append([]OrderTerm(nil), f.OrderBy...)
	return &Filter{Where: where, Offset: f.Offset, Limit: f.Limit, OrderBy: orderBy}
}

// MergeWhere copies every entry of extra into the filter's predicate,
// overwriting same-named keys. Later merges win; forced filters are merged
// after caller-derived ones for exactly this reason.
func (f *Filter) MergeWhere(extra map[string]any) {
	if f.Where == nil {
		f.Where = make(map[string]any, len(extra))
	}
	for k, v := range extra {
		f.Where[k] = v
	}
}

// BaseWhereKey strips an operator suffix ("status__in" -> "status") so
// allow-list checks compare on the column name alone.
func BaseWhereKey(key string) string {
	for i := len(key) - 2; i > 0; i-- {
		if key[i] == '_' && key[i+1] == '_' {
			return key[:i]
		}
	}
	return key
}

// RestrictWhere drops every predicate key whose base column name is not in
// allowed. A nil allowed slice means no restriction is configured; an empty
// one drops everything. This is the entityFilterIDs security boundary.
func (f *Filter) RestrictWhere(allowed []string) {
	if allowed == nil {
		return
	}
	permitted := make(map[string]struct{}, len(allowed))
	for _, key := range allowed {
		permitted[key] = struct{}{}
	}
	for key := range f.Where {
		if _, ok := permitted[BaseWhereKey(key)]; !ok {
			delete(f.Where, key)
		}
	}
}
