package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRouter mounts every endpoint under /api, nested beneath its declared
// reference-model chain, e.g. /api/projects/{projectId}/tasks/{id}. Literal
// segments (count, export) take precedence over the {id} wildcard.
func NewRouter(pool *pgxpool.Pool, endpoints []*Endpoint) *http.ServeMux {
	mux := http.NewServeMux()

	for _, endpoint := range endpoints {
		handler := &resourceHandler{controller: endpoint.Controller, expander: endpoint.Expander}
		prefix := routePrefix(endpoint)

		mux.HandleFunc("GET "+prefix, handler.list)
		mux.HandleFunc("POST "+prefix, handler.create)
		mux.HandleFunc("GET "+prefix+"/count", handler.count)
		mux.HandleFunc("GET "+prefix+"/export", handler.exportList)
		mux.HandleFunc("GET "+prefix+"/{id}", handler.get)
		mux.HandleFunc("PUT "+prefix+"/{id}", handler.update)
		mux.HandleFunc("DELETE "+prefix+"/{id}", handler.delete)
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}

func routePrefix(endpoint *Endpoint) string {
	prefix := "/api"
	for _, ref := range endpoint.Controller.References() {
		prefix += fmt.Sprintf("/%s/{%s}", ref.Name, ref.IDParam)
	}
	return prefix + "/" + endpoint.Controller.Resource().Name
}
