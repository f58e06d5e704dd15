package crud

// Resource describes one registered entity type. The same descriptor serves
// both roles a type can play: the operation's own target, or a reference
// model whose path-parameter identifier scopes a child resource.
type Resource struct {
	// Name is the route segment, e.g. "tasks".
	Name string

	// DisplayName appears in error messages, e.g. "Task".
	DisplayName string

	// IDParam is the path parameter carrying this type's identifier when it
	// acts as a reference model, and equally the foreign-key column name on
	// scoped children, e.g. "projectId".
	IDParam string

	// Columns lists the entity-specific writable columns, identifier and
	// audit columns excluded.
	Columns []string

	// Sortable lists the fields orderBy may name.
	Sortable []string

	Store Store
}

// Options is the per-registration policy set.
type Options struct {
	// Filtering enables query-string parsing for the list and count
	// operations. Without it any query key is rejected outright.
	Filtering bool

	// EntityFilterIDs, when non-nil, is the allow-list of predicate keys
	// permitted to reach the persistence call. It is a security boundary,
	// applied after filter construction so neither query input nor reference
	// resolution can introduce a disallowed key.
	EntityFilterIDs []string

	// CustomFilters are predicate fragments forced into every list and count,
	// merged after the allow-list so they always survive.
	CustomFilters map[string]any

	// DeletionRestrictions is an additional forced predicate applied only to
	// delete; an entity outside it reads as not found.
	DeletionRestrictions map[string]any
}
