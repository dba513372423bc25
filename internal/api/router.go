package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/taviso/stfjson/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Converted documents.
	r.Get("/documents", h.ListDocuments)
	r.Get("/documents/*", h.GetDocument)

	// Unconverted exports.
	r.Get("/raw/*", h.GetRaw)

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
