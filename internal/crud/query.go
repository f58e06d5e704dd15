package crud

import (
	"sort"
	"strconv"
	"strings"

	"github.com/restforge/restforge/internal/domain"
)

// Recognized query keys for filterable operations.
const (
	queryKeyOffset  = "offset"
	queryKeyLimit   = "limit"
	queryKeyOrderBy = "orderBy"
	queryKeyFilter  = "filter"
)

var filterOperators = map[string]struct{}{
	"eq": {}, "ne": {}, "lt": {}, "lte": {}, "gt": {}, "gte": {}, "like": {}, "in": {},
}

// applyQueryFilter turns the raw query-string mapping into pagination,
// ordering, and predicate entries on an existing filter. Defaults are set
// before any key is inspected. Unrecognized keys fail immediately; among
// recognized keys the first error encountered wins (keys are visited in
// sorted order, cross-key order is otherwise not contractual).
func applyQueryFilter(filter *domain.Filter, query map[string][]string, resource *Resource, defaultLimit int) error {
	filter.Offset = 0
	filter.Limit = defaultLimit

	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := ""
		if vals := query[key]; len(vals) > 0 {
			value = vals[0]
		}

		switch key {
		case queryKeyOffset:
			offset, err := parseBound(key, value)
			if err != nil {
				return err
			}
			filter.Offset = offset
		case queryKeyLimit:
			limit, err := parseBound(key, value)
			if err != nil {
				return err
			}
			filter.Limit = limit
		case queryKeyOrderBy:
			orderBy, err := parseOrderBy(value, resource.Sortable)
			if err != nil {
				return err
			}
			filter.OrderBy = orderBy
		case queryKeyFilter:
			where, err := parseFilterExpression(value)
			if err != nil {
				return err
			}
			filter.MergeWhere(where)
		case queryKeyFields, queryKeyExpand:
			// presentation keys, consumed by the expansion step
		default:
			return domain.NewValidationError("parameter not supported: %s", key)
		}
	}
	return nil
}

func parseBound(key, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError("invalid %s parameter %s", key, raw)
	}
	return n, nil
}

// parseOrderBy parses a comma-separated field list, leading '-' meaning
// descending, against the resource's sortable set.
func parseOrderBy(raw string, sortable []string) ([]domain.OrderTerm, error) {
	terms := []domain.OrderTerm{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, domain.NewValidationError("invalid orderBy parameter %s", raw)
		}
		direction := domain.SortDirectionAsc
		if strings.HasPrefix(part, "-") {
			direction = domain.SortDirectionDesc
			part = part[1:]
		}
		if !containsField(sortable, part) {
			return nil, domain.NewValidationError("cannot order by %s", part)
		}
		terms = append(terms, domain.OrderTerm{Field: part, Direction: direction})
	}
	return terms, nil
}

// parseFilterExpression parses the filter grammar: comma-separated key:value
// terms, keys optionally suffixed with an operator as in status__in, 'in'
// values separated by '|'.
func parseFilterExpression(raw string) (map[string]any, error) {
	where := map[string]any{}
	for _, term := range strings.Split(raw, ",") {
		term = strings.TrimSpace(term)
		key, value, found := strings.Cut(term, ":")
		if !found || key == "" {
			return nil, domain.NewValidationError("malformed filter term %s", term)
		}
		if op := operatorOf(key); op != "" {
			if _, ok := filterOperators[op]; !ok {
				return nil, domain.NewValidationError("unknown filter operator %s in %s", op, term)
			}
			if op == "in" {
				parts := strings.Split(value, "|")
				vals := make([]any, len(parts))
				for i, part := range parts {
					vals[i] = coerceScalar(part)
				}
				where[key] = vals
				continue
			}
		}
		where[key] = coerceScalar(value)
	}
	return where, nil
}

func operatorOf(key string) string {
	if base := domain.BaseWhereKey(key); base != key {
		return key[len(base)+2:]
	}
	return ""
}

// coerceScalar picks the narrowest literal type for a filter value so the
// store can compare against typed columns.
func coerceScalar(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

func containsField(fields []string, name string) bool {
	for _, field := range fields {
		if field == name {
			return true
		}
	}
	return false
}
