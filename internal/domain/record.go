package domain

import "time"

// Audit column names. These are set exclusively by the pipeline and the store;
// inbound bodies are stripped of them before any write.
const (
	ColumnID        = "id"
	ColumnCreatedBy = "createdBy"
	ColumnUpdatedBy = "updatedBy"
	ColumnCreatedAt = "createdAt"
	ColumnUpdatedAt = "updatedAt"
)

// AuditColumns lists every server-owned column, identifier included.
var AuditColumns = []string{ColumnID, ColumnCreatedBy, ColumnUpdatedBy, ColumnCreatedAt, ColumnUpdatedAt}

// Record is one persisted entity row. Fields holds the entity-specific
// columns; the identifier and audit attribution live alongside so the
// pipeline can protect them without knowing the entity type.
type Record struct {
	ID        int64          `json:"id"`
	Fields    map[string]any `json:"fields"`
	CreatedBy int64          `json:"createdBy"`
	UpdatedBy int64          `json:"updatedBy"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Flatten merges the identifier and audit fields into a single map, the shape
// envelopes and the expansion step work with.
func (r *Record) Flatten() map[string]any {
	out := make(map[string]any, len(r.Fields)+5)
	for k, v := range r.Fields {
		out[k] = v
	}
	out[ColumnID] = r.ID
	out[ColumnCreatedBy] = r.CreatedBy
	out[ColumnUpdatedBy] = r.UpdatedBy
	out[ColumnCreatedAt] = r.CreatedAt
	out[ColumnUpdatedAt] = r.UpdatedAt
	return out
}

// SetField applies one body key onto a located record, allocating Fields on
// first use.
func (r *Record) SetField(key string, value any) {
	if r.Fields == nil {
		r.Fields = make(map[string]any)
	}
	r.Fields[key] = value
}

// StripServerManaged removes the identifier and audit keys from an inbound
// body map in place. Callers must never be able to write these directly.
func StripServerManaged(body map[string]any) {
	for _, key := range AuditColumns {
		delete(body, key)
	}
}
