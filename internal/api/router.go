// Package api implements the Othala REST API using chi.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/othala/internal/contentsvc"
	"github.com/starford/othala/internal/graph"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *contentsvc.Service, g *graph.DB, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, g)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Search and lookup.
	r.Get("/search", h.Search)
	r.Get("/nodes/{id}", h.GetNode)

	// Writes.
	r.Post("/content", h.CreateContent)
	r.Post("/reindex", h.Reindex)

	// Graph export and stats.
	r.Get("/graph", h.Graph)
	r.Get("/stats", h.Stats)

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
