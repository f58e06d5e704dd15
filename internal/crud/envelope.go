package crud

import "net/http"

// ListMetadata carries list-level aggregates.
type ListMetadata struct {
	TotalCount int64 `json:"totalCount"`
}

// ListEnvelope is the list operation's response shape.
type ListEnvelope struct {
	Success  bool             `json:"success"`
	Status   int              `json:"status"`
	Metadata ListMetadata     `json:"metadata"`
	Content  []map[string]any `json:"content"`
}

// GetEnvelope is the get operation's response shape.
type GetEnvelope struct {
	Success bool           `json:"success"`
	Status  int            `json:"status"`
	Content map[string]any `json:"content"`
}

// CountEnvelope is the count operation's response shape.
type CountEnvelope struct {
	Success bool         `json:"success"`
	Status  int          `json:"status"`
	Content CountContent `json:"content"`
}

// CountContent wraps the row count.
type CountContent struct {
	Count int64 `json:"count"`
}

// MutationResult is the status portion of a mutation envelope.
type MutationResult struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

// MutationEnvelope is the create/update/delete response shape: identifier and
// status only, no content.
type MutationEnvelope struct {
	ID     int64          `json:"id"`
	Result MutationResult `json:"result"`
}

func newListEnvelope(total int64, content []map[string]any) *ListEnvelope {
	return &ListEnvelope{
		Success:  true,
		Status:   http.StatusOK,
		Metadata: ListMetadata{TotalCount: total},
		Content:  content,
	}
}

func newGetEnvelope(content map[string]any) *GetEnvelope {
	return &GetEnvelope{Success: true, Status: http.StatusOK, Content: content}
}

func newCountEnvelope(count int64) *CountEnvelope {
	return &CountEnvelope{Success: true, Status: http.StatusOK, Content: CountContent{Count: count}}
}

func newMutationEnvelope(id int64, status int) *MutationEnvelope {
	return &MutationEnvelope{ID: id, Result: MutationResult{Success: true, Status: status}}
}
