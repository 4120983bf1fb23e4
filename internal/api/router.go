package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/whatday/internal/workspace"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(ws *workspace.Workspace, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(ws)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Pages.
	r.Get("/pages", h.ListPages)
	r.Get("/pages/*", h.GetPage)
	r.Put("/pages/*", h.PutPage)
	r.Delete("/pages/*", h.DeletePage)
	r.Post("/pages/*", h.PageAction)

	// Badges, settings and scan history.
	r.Get("/badges", h.Badges)
	r.Get("/settings", h.GetSettings)
	r.Post("/settings", h.ApplySettings)
	r.Get("/scans/*", h.Scans)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
