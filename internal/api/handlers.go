package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/restforge/restforge/internal/auth"
	"github.com/restforge/restforge/internal/crud"
	"github.com/restforge/restforge/internal/domain"
	"github.com/restforge/restforge/internal/expand"
	"github.com/restforge/restforge/internal/export"
)

// Endpoint binds one registered resource's controller to its expansion step.
type Endpoint struct {
	Controller *crud.Controller
	Expander   *expand.Expander
}

type resourceHandler struct {
	controller *crud.Controller
	expander   *expand.Expander
}

// pathParams collects the declared parameters the router extracted: one per
// reference model in the chain, plus the operation's own identifier.
func (h *resourceHandler) pathParams(r *http.Request) map[string]string {
	params := make(map[string]string)
	for _, ref := range h.controller.References() {
		params[ref.IDParam] = r.PathValue(ref.IDParam)
	}
	if id := r.PathValue("id"); id != "" {
		params["id"] = id
	}
	return params
}

func (h *resourceHandler) request(r *http.Request, withBody bool) (*crud.Request, error) {
	req := &crud.Request{
		PathParams: h.pathParams(r),
		Query:      r.URL.Query(),
		UserID:     auth.CurrentUserID(r.Context()),
	}
	if withBody {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, domain.NewValidationError("Invalid JSON body")
		}
		req.Body = body
	}
	return req, nil
}

func (h *resourceHandler) list(w http.ResponseWriter, r *http.Request) {
	req, err := h.request(r, false)
	if err != nil {
		writeError(w, err)
		return
	}
	env, err := h.controller.List(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.expander.ExpandList(r.Context(), env, req.Query); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, env.Status, env)
}

func (h *resourceHandler) get(w http.ResponseWriter, r *http.Request) {
	req, err := h.request(r, false)
	if err != nil {
		writeError(w, err)
		return
	}
	env, err := h.controller.Get(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.expander.ExpandGet(r.Context(), env, req.Query); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, env.Status, env)
}

func (h *resourceHandler) count(w http.ResponseWriter, r *http.Request) {
	req, err := h.request(r, false)
	if err != nil {
		writeError(w, err)
		return
	}
	env, err := h.controller.Count(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, env.Status, env)
}

func (h *resourceHandler) create(w http.ResponseWriter, r *http.Request) {
	req, err := h.request(r, true)
	if err != nil {
		writeError(w, err)
		return
	}
	env, err := h.controller.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, env.Result.Status, env)
}

func (h *resourceHandler) update(w http.ResponseWriter, r *http.Request) {
	req, err := h.request(r, true)
	if err != nil {
		writeError(w, err)
		return
	}
	env, err := h.controller.Update(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, env.Result.Status, env)
}

func (h *resourceHandler) delete(w http.ResponseWriter, r *http.Request) {
	req, err := h.request(r, false)
	if err != nil {
		writeError(w, err)
		return
	}
	env, err := h.controller.Delete(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, env.Result.Status, env)
}

// exportList runs the list pipeline and streams the page as a workbook.
func (h *resourceHandler) exportList(w http.ResponseWriter, r *http.Request) {
	req, err := h.request(r, false)
	if err != nil {
		writeError(w, err)
		return
	}
	env, err := h.controller.List(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	resource := h.controller.Resource()
	headers := append([]string{domain.ColumnID}, resource.Columns...)
	headers = append(headers, domain.ColumnCreatedBy, domain.ColumnUpdatedBy, domain.ColumnCreatedAt, domain.ColumnUpdatedAt)

	filename := fmt.Sprintf("%s-%s.xlsx", resource.Name, uuid.NewString()[:8])
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := export.WriteWorkbook(w, headers, env.Content); err != nil {
		log.Printf("[EXPORT] failed to stream %s workbook: %v", resource.Name, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Error   string `json:"error"`
}

// writeError maps the pipeline's error taxonomy onto outward status codes:
// validation to 400, not-found to 404, persistence to 500 with the cause kept
// server-side.
func writeError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	var notFoundErr *domain.NotFoundError
	var persistenceErr *domain.PersistenceError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Status: http.StatusBadRequest, Error: validationErr.Message})
	case errors.As(err, &notFoundErr):
		writeJSON(w, http.StatusNotFound, errorEnvelope{Status: http.StatusNotFound, Error: notFoundErr.Error()})
	case errors.As(err, &persistenceErr):
		log.Printf("[STORE] %s: %v", persistenceErr.Code, persistenceErr.Err)
		writeJSON(w, http.StatusInternalServerError, errorEnvelope{Status: http.StatusInternalServerError, Error: "internal server error"})
	default:
		log.Printf("[HTTP] unhandled error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorEnvelope{Status: http.StatusInternalServerError, Error: "internal server error"})
	}
}
