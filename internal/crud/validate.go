package crud

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/restforge/restforge/internal/domain"
)

// Query keys reserved for the field-expansion collaborator. List and get let
// them through; mutations reject them like any other key.
const (
	queryKeyFields = "fields"
	queryKeyExpand = "expand"
)

func isPresentationKey(key string) bool {
	return key == queryKeyFields || key == queryKeyExpand
}

// checkExtraParameters rejects any query-string key. Filterable operations
// skip this check entirely and route keys through the query-filter builder
// instead. Keys are inspected in sorted order so the reported key is
// deterministic.
func checkExtraParameters(query url.Values, allowPresentation bool) error {
	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if allowPresentation && isPresentationKey(key) {
			continue
		}
		return domain.NewValidationError("parameter not supported: %s", key)
	}
	return nil
}

// checkIDConsistency verifies that a body field named after a reference
// model's identifier parameter agrees with the path. Reference models are
// checked in declaration order and the first mismatch wins.
func checkIDConsistency(refs []*Resource, pathParams map[string]string, body map[string]any) error {
	for _, ref := range refs {
		raw, ok := body[ref.IDParam]
		if !ok {
			continue
		}
		pathID, err := parseID(pathParams[ref.IDParam])
		if err != nil {
			return err
		}
		bodyID, ok := numericValue(raw)
		if !ok || bodyID != pathID {
			return domain.NewValidationError("field %s does not match the %s path parameter", ref.IDParam, ref.IDParam)
		}
	}
	return nil
}

// parseID parses a path-parameter identifier as a non-negative integer.
func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, domain.NewValidationError("Invalid id parameter %s", raw)
	}
	return id, nil
}

// numericValue coerces a decoded JSON body value to an identifier. JSON
// numbers arrive as float64; string forms are accepted when integral.
func numericValue(raw any) (int64, bool) {
	switch v := raw.(type) {
	case float64:
		n := int64(v)
		if float64(n) != v {
			return 0, false
		}
		return n, true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	case fmt.Stringer:
		n, err := strconv.ParseInt(v.String(), 10, 64)
		return n, err == nil
	}
	return 0, false
}
