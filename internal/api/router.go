package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/taxonomy-explorer/internal/taxonomyservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *taxonomyservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/taxonomy", func(r chi.Router) {
		r.Get("/tree", h.Tree)
		r.Get("/node-info/{name}", h.NodeInfo)
		r.Get("/nodes/{bigID}", h.Node)
		r.Get("/search", h.Search)
		r.Get("/source", h.Source)
		r.Put("/source", h.ReplaceSource)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
