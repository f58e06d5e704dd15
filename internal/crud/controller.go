package crud

import (
	"context"
	"net/http"

	"github.com/restforge/restforge/internal/domain"
)

// DefaultPageSize bounds filterable lists when the registration config does
// not override it.
const DefaultPageSize = 50

// Controller runs the five operation pipelines for one registered resource.
// Each pipeline is a fixed sequence of stages short-circuiting on the first
// error; the controller never catches or retries. Controllers are immutable
// after construction and safe for concurrent requests: every Filter, record,
// and envelope is owned by a single request.
type Controller struct {
	resource     *Resource
	refs         []*Resource
	opts         Options
	defaultLimit int
}

// NewController registers the operation pipelines for a resource with its
// ordered reference-model chain and policy options. defaultLimit is the
// configured page size for filterable lists.
func NewController(resource *Resource, refs []*Resource, opts Options, defaultLimit int) *Controller {
	if defaultLimit <= 0 {
		defaultLimit = DefaultPageSize
	}
	return &Controller{resource: resource, refs: refs, opts: opts, defaultLimit: defaultLimit}
}

// Resource returns the controller's target resource descriptor.
func (c *Controller) Resource() *Resource {
	return c.resource
}

// References returns the declared reference-model chain, in order.
func (c *Controller) References() []*Resource {
	return c.refs
}

// buildListFilter runs the shared front half of list-shaped pipelines:
// extra-parameter check or query parsing, reference resolution, allow-list,
// and forced custom filters.
func (c *Controller) buildListFilter(ctx context.Context, req *Request) (*domain.Filter, error) {
	filter := domain.NewFilter()

	if !c.opts.Filtering {
		if err := checkExtraParameters(req.Query, true); err != nil {
			return nil, err
		}
	}
	if err := resolveReferences(ctx, c.refs, req.PathParams, filter); err != nil {
		return nil, err
	}
	if c.opts.Filtering {
		if err := applyQueryFilter(filter, req.Query, c.resource, c.defaultLimit); err != nil {
			return nil, err
		}
	}
	filter.RestrictWhere(c.opts.EntityFilterIDs)
	filter.MergeWhere(c.opts.CustomFilters)
	return filter, nil
}

// List counts and fetches the page matching the request's accumulated filter.
func (c *Controller) List(ctx context.Context, req *Request) (*ListEnvelope, error) {
	filter, err := c.buildListFilter(ctx, req)
	if err != nil {
		return nil, err
	}

	total, rows, err := c.resource.Store.FindAndCountAll(ctx, filter)
	if err != nil {
		return nil, domain.NewPersistenceError(domain.DBReadError, err)
	}

	content := make([]map[string]any, len(rows))
	for i, rec := range rows {
		content[i] = rec.Flatten()
	}
	return newListEnvelope(total, content), nil
}

// Count runs the list pipeline up to filter completion and counts matches.
func (c *Controller) Count(ctx context.Context, req *Request) (*CountEnvelope, error) {
	filter, err := c.buildListFilter(ctx, req)
	if err != nil {
		return nil, err
	}

	count, err := c.resource.Store.Count(ctx, filter)
	if err != nil {
		return nil, domain.NewPersistenceError(domain.DBReadError, err)
	}
	return newCountEnvelope(count), nil
}

// Get locates the single entity named by the path identifier within the
// reference scope.
func (c *Controller) Get(ctx context.Context, req *Request) (*GetEnvelope, error) {
	if err := checkExtraParameters(req.Query, true); err != nil {
		return nil, err
	}

	filter := domain.NewFilter()
	if err := resolveReferences(ctx, c.refs, req.PathParams, filter); err != nil {
		return nil, err
	}
	filter.RestrictWhere(c.opts.EntityFilterIDs)

	rec, err := locateEntity(ctx, c.resource, filter, req.PathParam("id"))
	if err != nil {
		return nil, err
	}
	return newGetEnvelope(rec.Flatten()), nil
}

// Create persists a new entity scoped to its resolved references, attributing
// creation to the current user. Client-supplied identifier and audit fields
// are discarded, and every resolved reference key overwrites whatever the
// body carried for it.
func (c *Controller) Create(ctx context.Context, req *Request) (*MutationEnvelope, error) {
	if err := checkIDConsistency(c.refs, req.PathParams, req.Body); err != nil {
		return nil, err
	}
	if err := checkExtraParameters(req.Query, false); err != nil {
		return nil, err
	}

	filter := domain.NewFilter()
	if err := resolveReferences(ctx, c.refs, req.PathParams, filter); err != nil {
		return nil, err
	}

	fields := make(map[string]any, len(req.Body)+len(filter.Where))
	for k, v := range req.Body {
		fields[k] = v
	}
	domain.StripServerManaged(fields)
	for k, v := range filter.Where {
		fields[k] = v
	}

	rec, err := c.resource.Store.Create(ctx, fields, req.UserID)
	if err != nil {
		return nil, domain.NewPersistenceError(domain.DBCreateError, err)
	}
	return newMutationEnvelope(rec.ID, http.StatusCreated), nil
}

// Update applies the body onto the located entity. Identifier, audit, and
// reference-key fields are stripped first: a scoped entity cannot be
// reassigned to another parent through an update.
func (c *Controller) Update(ctx context.Context, req *Request) (*MutationEnvelope, error) {
	if err := checkIDConsistency(c.refs, req.PathParams, req.Body); err != nil {
		return nil, err
	}
	if err := checkExtraParameters(req.Query, false); err != nil {
		return nil, err
	}

	filter := domain.NewFilter()
	if err := resolveReferences(ctx, c.refs, req.PathParams, filter); err != nil {
		return nil, err
	}
	filter.RestrictWhere(c.opts.EntityFilterIDs)

	rec, err := locateEntity(ctx, c.resource, filter, req.PathParam("id"))
	if err != nil {
		return nil, err
	}

	fields := make(map[string]any, len(req.Body))
	for k, v := range req.Body {
		fields[k] = v
	}
	domain.StripServerManaged(fields)
	for _, ref := range c.refs {
		delete(fields, ref.IDParam)
	}
	for k, v := range fields {
		rec.SetField(k, v)
	}
	rec.UpdatedBy = req.UserID

	if err := c.resource.Store.Save(ctx, rec); err != nil {
		return nil, domain.NewPersistenceError(domain.DBUpdateError, err)
	}
	return newMutationEnvelope(rec.ID, http.StatusOK), nil
}

// Delete removes the located entity. Deletion restrictions join the locator
// predicate, so a restricted entity reads as not found rather than deletable.
func (c *Controller) Delete(ctx context.Context, req *Request) (*MutationEnvelope, error) {
	if err := checkExtraParameters(req.Query, false); err != nil {
		return nil, err
	}

	filter := domain.NewFilter()
	if err := resolveReferences(ctx, c.refs, req.PathParams, filter); err != nil {
		return nil, err
	}
	filter.RestrictWhere(c.opts.EntityFilterIDs)
	filter.MergeWhere(c.opts.DeletionRestrictions)

	rec, err := locateEntity(ctx, c.resource, filter, req.PathParam("id"))
	if err != nil {
		return nil, err
	}

	if err := c.resource.Store.Destroy(ctx, rec); err != nil {
		return nil, domain.NewPersistenceError(domain.DBDeleteError, err)
	}
	return newMutationEnvelope(rec.ID, http.StatusOK), nil
}
