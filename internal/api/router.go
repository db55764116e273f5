package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notearchiver/internal/archiveservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *archiveservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Archiving.
	r.Post("/archive", h.Archive)
	r.Get("/archive/preview", h.Preview)

	// Notes that can still be archived.
	r.Get("/notes", h.ListNotes)

	// Archive settings.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)
	r.Get("/settings/folder-status", h.FolderStatus)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
