package crud

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/restforge/restforge/internal/domain"
)

// fakeStore is an in-memory persistence collaborator recording every call so
// tests can assert ordering and short-circuiting.
type fakeStore struct {
	name    string
	records []*domain.Record
	calls   *[]string
	err     error

	findFilters []*domain.Filter
	listFilters []*domain.Filter
	created     []map[string]any
	createActor int64
	saved       []*domain.Record
	destroyed   []*domain.Record
	nextID      int64
}

func (s *fakeStore) log(op string) {
	if s.calls != nil {
		*s.calls = append(*s.calls, s.name+"."+op)
	}
}

func (s *fakeStore) Find(ctx context.Context, filter *domain.Filter) (*domain.Record, error) {
	s.log("find")
	s.findFilters = append(s.findFilters, filter.Clone())
	if s.err != nil {
		return nil, s.err
	}
	for _, rec := range s.records {
		if recordMatches(rec, filter.Where) {
			return rec, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindAndCountAll(ctx context.Context, filter *domain.Filter) (int64, []*domain.Record, error) {
	s.log("list")
	s.listFilters = append(s.listFilters, filter.Clone())
	if s.err != nil {
		return 0, nil, s.err
	}
	matched := []*domain.Record{}
	for _, rec := range s.records {
		if recordMatches(rec, filter.Where) {
			matched = append(matched, rec)
		}
	}
	return int64(len(matched)), matched, nil
}

func (s *fakeStore) Count(ctx context.Context, filter *domain.Filter) (int64, error) {
	s.log("count")
	total, _, err := s.FindAndCountAll(ctx, filter)
	return total, err
}

func (s *fakeStore) Create(ctx context.Context, fields map[string]any, actor int64) (*domain.Record, error) {
	s.log("create")
	if s.err != nil {
		return nil, s.err
	}
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	s.created = append(s.created, copied)
	s.createActor = actor
	s.nextID++
	rec := &domain.Record{ID: s.nextID, Fields: copied, CreatedBy: actor, UpdatedBy: actor}
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *fakeStore) Save(ctx context.Context, rec *domain.Record) error {
	s.log("save")
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, rec)
	return nil
}

func (s *fakeStore) Destroy(ctx context.Context, rec *domain.Record) error {
	s.log("destroy")
	if s.err != nil {
		return s.err
	}
	s.destroyed = append(s.destroyed, rec)
	return nil
}

func recordMatches(rec *domain.Record, where map[string]any) bool {
	for key, want := range where {
		base := domain.BaseWhereKey(key)
		var got any
		if base == domain.ColumnID {
			got = rec.ID
		} else {
			got = rec.Fields[base]
		}
		if vals, ok := want.([]any); ok {
			found := false
			for _, v := range vals {
				if valueEqual(got, v) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
			continue
		}
		if !valueEqual(got, want) {
			return false
		}
	}
	return true
}

func valueEqual(got, want any) bool {
	gi, gok := numericValue(got)
	wi, wok := numericValue(want)
	if gok && wok {
		return gi == wi
	}
	return fmt.Sprint(got) == fmt.Sprint(want)
}

func record(id int64, fields map[string]any) *domain.Record {
	if fields == nil {
		fields = map[string]any{}
	}
	return &domain.Record{ID: id, Fields: fields}
}

func parentResource(store *fakeStore) *Resource {
	return &Resource{
		Name:        "parents",
		DisplayName: "Parent",
		IDParam:     "parentId",
		Columns:     []string{"name"},
		Sortable:    []string{"name", "createdAt"},
		Store:       store,
	}
}

func childResource(store *fakeStore) *Resource {
	return &Resource{
		Name:        "children",
		DisplayName: "Child",
		IDParam:     "childId",
		Columns:     []string{"parentId", "name", "ownerId", "archived"},
		Sortable:    []string{"name", "createdAt"},
		Store:       store,
	}
}

func TestListNonFilterableRejectsAnyQueryKey(t *testing.T) {
	store := &fakeStore{name: "children"}
	ctrl := NewController(childResource(store), nil, Options{}, 50)

	_, err := ctrl.List(context.Background(), &Request{
		Query: url.Values{"offset": {"10"}},
	})

	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(store.listFilters) != 0 {
		t.Fatalf("persistence called despite validation failure")
	}
}

func TestListFilterConstruction(t *testing.T) {
	parentStore := &fakeStore{name: "parents", records: []*domain.Record{record(7, nil)}}
	childStore := &fakeStore{name: "children"}
	ctrl := NewController(childResource(childStore), []*Resource{parentResource(parentStore)}, Options{Filtering: true}, 50)

	_, err := ctrl.List(context.Background(), &Request{
		PathParams: map[string]string{"parentId": "7"},
		Query:      url.Values{"offset": {"10"}, "limit": {"5"}, "orderBy": {"name"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(childStore.listFilters) != 1 {
		t.Fatalf("expected exactly one persistence call, got %d", len(childStore.listFilters))
	}
	want := &domain.Filter{
		Where:   map[string]any{"parentId": int64(7)},
		Offset:  10,
		Limit:   5,
		OrderBy: []domain.OrderTerm{{Field: "name", Direction: domain.SortDirectionAsc}},
	}
	if diff := cmp.Diff(want, childStore.listFilters[0]); diff != "" {
		t.Fatalf("filter mismatch (-want +got):\n%s", diff)
	}
}

func TestListNegativeReferenceID(t *testing.T) {
	parentStore := &fakeStore{name: "parents"}
	childStore := &fakeStore{name: "children"}
	ctrl := NewController(childResource(childStore), []*Resource{parentResource(parentStore)}, Options{Filtering: true}, 50)

	_, err := ctrl.List(context.Background(), &Request{
		PathParams: map[string]string{"parentId": "-1"},
	})

	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if validationErr.Message != "Invalid id parameter -1" {
		t.Fatalf("unexpected message %q", validationErr.Message)
	}
	if len(parentStore.findFilters) != 0 || len(childStore.listFilters) != 0 {
		t.Fatalf("persistence called before id validation")
	}
}

func TestReferenceChainResolvesSequentially(t *testing.T) {
	calls := []string{}
	grandpaStore := &fakeStore{name: "grandparents", calls: &calls, records: []*domain.Record{record(1, nil)}}
	parentStore := &fakeStore{name: "parents", calls: &calls, records: []*domain.Record{record(2, nil)}}
	childStore := &fakeStore{name: "children", calls: &calls}

	grandpa := &Resource{Name: "grandparents", DisplayName: "Grandparent", IDParam: "grandparentId", Store: grandpaStore}
	refs := []*Resource{grandpa, parentResource(parentStore)}
	ctrl := NewController(childResource(childStore), refs, Options{}, 50)

	_, err := ctrl.List(context.Background(), &Request{
		PathParams: map[string]string{"grandparentId": "1", "parentId": "2"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"grandparents.find", "parents.find", "children.list"}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Fatalf("call order mismatch (-want +got):\n%s", diff)
	}
	if got := childStore.listFilters[0].Where; !valueEqual(got["grandparentId"], int64(1)) || !valueEqual(got["parentId"], int64(2)) {
		t.Fatalf("reference keys missing from predicate: %v", got)
	}
}

func TestReferenceChainShortCircuitsOnFirstFailure(t *testing.T) {
	calls := []string{}
	grandpaStore := &fakeStore{name: "grandparents", calls: &calls} // id 1 missing
	parentStore := &fakeStore{name: "parents", calls: &calls, records: []*domain.Record{record(2, nil)}}
	childStore := &fakeStore{name: "children", calls: &calls}

	grandpa := &Resource{Name: "grandparents", DisplayName: "Grandparent", IDParam: "grandparentId", Store: grandpaStore}
	refs := []*Resource{grandpa, parentResource(parentStore)}
	ctrl := NewController(childResource(childStore), refs, Options{}, 50)

	_, err := ctrl.List(context.Background(), &Request{
		PathParams: map[string]string{"grandparentId": "1", "parentId": "2"},
	})

	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if validationErr.Message != "cannot find Grandparent with id 1" {
		t.Fatalf("unexpected message %q", validationErr.Message)
	}
	if diff := cmp.Diff([]string{"grandparents.find"}, calls); diff != "" {
		t.Fatalf("later stages ran after failure (-want +got):\n%s", diff)
	}
}

func TestAllowListDropsDisallowedPredicateKeys(t *testing.T) {
	parentStore := &fakeStore{name: "parents", records: []*domain.Record{record(7, nil)}}
	childStore := &fakeStore{name: "children"}
	opts := Options{Filtering: true, EntityFilterIDs: []string{"parentId"}}
	ctrl := NewController(childResource(childStore), []*Resource{parentResource(parentStore)}, opts, 50)

	_, err := ctrl.List(context.Background(), &Request{
		PathParams: map[string]string{"parentId": "7"},
		Query:      url.Values{"filter": {"ownerId:5"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	where := childStore.listFilters[0].Where
	if _, ok := where["ownerId"]; ok {
		t.Fatalf("ownerId survived the allow-list: %v", where)
	}
	if !valueEqual(where["parentId"], int64(7)) {
		t.Fatalf("parentId dropped by the allow-list: %v", where)
	}
}

func TestListMergesCustomFilters(t *testing.T) {
	childStore := &fakeStore{name: "children"}
	opts := Options{Filtering: true, EntityFilterIDs: []string{}, CustomFilters: map[string]any{"archived": false}}
	ctrl := NewController(childResource(childStore), nil, opts, 50)

	_, err := ctrl.List(context.Background(), &Request{
		Query: url.Values{"filter": {"archived:true"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The empty allow-list removed the caller's key; the forced filter wins.
	where := childStore.listFilters[0].Where
	if got, ok := where["archived"]; !ok || got != false {
		t.Fatalf("forced filter missing or overridden: %v", where)
	}
}

func TestGetScopedToWrongParentIsNotFound(t *testing.T) {
	parentStore := &fakeStore{name: "parents", records: []*domain.Record{record(1, nil), record(2, nil)}}
	childStore := &fakeStore{name: "children", records: []*domain.Record{
		record(10, map[string]any{"parentId": int64(2)}),
	}}
	ctrl := NewController(childResource(childStore), []*Resource{parentResource(parentStore)}, Options{}, 50)

	_, err := ctrl.Get(context.Background(), &Request{
		PathParams: map[string]string{"parentId": "1", "id": "10"},
	})

	var notFoundErr *domain.NotFoundError
	if !errors.As(err, &notFoundErr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	lookup := childStore.findFilters[len(childStore.findFilters)-1]
	if !valueEqual(lookup.Where["parentId"], int64(1)) {
		t.Fatalf("locator predicate lost the reference key: %v", lookup.Where)
	}
}

func TestGetIsIdempotent(t *testing.T) {
	childStore := &fakeStore{name: "children", records: []*domain.Record{
		record(10, map[string]any{"name": "alpha"}),
	}}
	ctrl := NewController(childResource(childStore), nil, Options{}, 50)

	req := &Request{PathParams: map[string]string{"id": "10"}, Query: url.Values{"fields": {"name"}}}
	first, err := ctrl.Get(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ctrl.Get(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated get diverged (-first +second):\n%s", diff)
	}
}

func TestCreateStripsServerManagedFieldsAndAttributesActor(t *testing.T) {
	parentStore := &fakeStore{name: "parents", records: []*domain.Record{record(7, nil)}}
	childStore := &fakeStore{name: "children"}
	ctrl := NewController(childResource(childStore), []*Resource{parentResource(parentStore)}, Options{}, 50)

	env, err := ctrl.Create(context.Background(), &Request{
		PathParams: map[string]string{"parentId": "7"},
		Body: map[string]any{
			"id":        float64(99),
			"createdBy": float64(13),
			"name":      "bravo",
		},
		UserID: 42,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(childStore.created) != 1 {
		t.Fatalf("expected one create call, got %d", len(childStore.created))
	}
	created := childStore.created[0]
	if _, ok := created["id"]; ok {
		t.Fatalf("client-supplied id reached the store: %v", created)
	}
	if _, ok := created["createdBy"]; ok {
		t.Fatalf("client-supplied audit field reached the store: %v", created)
	}
	if !valueEqual(created["parentId"], int64(7)) {
		t.Fatalf("resolved reference key missing from created data: %v", created)
	}
	if childStore.createActor != 42 {
		t.Fatalf("actor not attributed, got %d", childStore.createActor)
	}
	if env.ID == 0 || !env.Result.Success || env.Result.Status != 201 {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestCreateRoundTripsThroughGet(t *testing.T) {
	childStore := &fakeStore{name: "children"}
	ctrl := NewController(childResource(childStore), nil, Options{}, 50)

	created, err := ctrl.Create(context.Background(), &Request{
		Body:   map[string]any{"name": "charlie"},
		UserID: 5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := ctrl.Get(context.Background(), &Request{
		PathParams: map[string]string{"id": fmt.Sprint(created.ID)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Content["name"] != "charlie" {
		t.Fatalf("submitted field lost in round trip: %v", got.Content)
	}
	if !valueEqual(got.Content["createdBy"], int64(5)) || !valueEqual(got.Content["updatedBy"], int64(5)) {
		t.Fatalf("audit attribution missing: %v", got.Content)
	}
}

func TestCreateRejectsInconsistentReferenceID(t *testing.T) {
	parentStore := &fakeStore{name: "parents", records: []*domain.Record{record(7, nil)}}
	childStore := &fakeStore{name: "children"}
	ctrl := NewController(childResource(childStore), []*Resource{parentResource(parentStore)}, Options{}, 50)

	_, err := ctrl.Create(context.Background(), &Request{
		PathParams: map[string]string{"parentId": "7"},
		Body:       map[string]any{"parentId": float64(9), "name": "delta"},
	})

	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(parentStore.findFilters) != 0 {
		t.Fatalf("reference resolution ran before consistency check")
	}
	if len(childStore.created) != 0 {
		t.Fatalf("create reached the store despite mismatch")
	}
}

func TestUpdateCannotReassignReferenceKey(t *testing.T) {
	parentStore := &fakeStore{name: "parents", records: []*domain.Record{record(7, nil)}}
	childStore := &fakeStore{name: "children", records: []*domain.Record{
		record(10, map[string]any{"parentId": int64(7), "name": "echo"}),
	}}
	ctrl := NewController(childResource(childStore), []*Resource{parentResource(parentStore)}, Options{}, 50)

	_, err := ctrl.Update(context.Background(), &Request{
		PathParams: map[string]string{"parentId": "7", "id": "10"},
		Body:       map[string]any{"parentId": float64(7), "name": "foxtrot"},
		UserID:     8,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(childStore.saved) != 1 {
		t.Fatalf("expected one save call, got %d", len(childStore.saved))
	}
	saved := childStore.saved[0]
	if saved.Fields["name"] != "foxtrot" {
		t.Fatalf("body field not applied: %v", saved.Fields)
	}
	if !valueEqual(saved.Fields["parentId"], int64(7)) {
		t.Fatalf("reference key mutated: %v", saved.Fields)
	}
	if saved.UpdatedBy != 8 {
		t.Fatalf("updatedBy not attributed, got %d", saved.UpdatedBy)
	}
}

func TestDeleteRestrictionTurnsDeleteIntoNotFound(t *testing.T) {
	childStore := &fakeStore{name: "children", records: []*domain.Record{
		record(10, map[string]any{"archived": true}),
	}}
	opts := Options{DeletionRestrictions: map[string]any{"archived": false}}
	ctrl := NewController(childResource(childStore), nil, opts, 50)

	_, err := ctrl.Delete(context.Background(), &Request{
		PathParams: map[string]string{"id": "10"},
	})

	var notFoundErr *domain.NotFoundError
	if !errors.As(err, &notFoundErr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if len(childStore.destroyed) != 0 {
		t.Fatalf("restricted entity was destroyed")
	}
}

func TestDeleteDestroysLocatedEntity(t *testing.T) {
	childStore := &fakeStore{name: "children", records: []*domain.Record{
		record(10, map[string]any{"archived": false}),
	}}
	opts := Options{DeletionRestrictions: map[string]any{"archived": false}}
	ctrl := NewController(childResource(childStore), nil, opts, 50)

	env, err := ctrl.Delete(context.Background(), &Request{
		PathParams: map[string]string{"id": "10"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.ID != 10 || !env.Result.Success {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if len(childStore.destroyed) != 1 {
		t.Fatalf("expected one destroy call, got %d", len(childStore.destroyed))
	}
}

func TestPersistenceFailureWrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	childStore := &fakeStore{name: "children", err: cause}
	ctrl := NewController(childResource(childStore), nil, Options{}, 50)

	_, err := ctrl.List(context.Background(), &Request{})

	var persistenceErr *domain.PersistenceError
	if !errors.As(err, &persistenceErr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if persistenceErr.Code != domain.DBReadError {
		t.Fatalf("unexpected code %q", persistenceErr.Code)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause not retained")
	}
}

func TestCountSharesListPipeline(t *testing.T) {
	childStore := &fakeStore{name: "children", records: []*domain.Record{
		record(1, map[string]any{"archived": false}),
		record(2, map[string]any{"archived": true}),
	}}
	ctrl := NewController(childResource(childStore), nil, Options{Filtering: true}, 50)

	env, err := ctrl.Count(context.Background(), &Request{
		Query: url.Values{"filter": {"archived:false"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Content.Count != 1 {
		t.Fatalf("expected count 1, got %d", env.Content.Count)
	}
}
