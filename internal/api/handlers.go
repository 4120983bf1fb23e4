package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/whatday/internal/apperr"
	"github.com/starford/whatday/internal/session"
	"github.com/starford/whatday/internal/storage"
	"github.com/starford/whatday/internal/store"
	"github.com/starford/whatday/internal/workspace"
)

const maxBodyBytes = 10 << 20

// Page actions accepted by POST /api/pages/*.
const (
	actionMutations = "mutations"
	actionRemove    = "remove"
)

// Handler holds API route handlers.
type Handler struct {
	ws *workspace.Workspace
}

// NewHandler creates a new Handler.
func NewHandler(ws *workspace.Workspace) *Handler {
	return &Handler{ws: ws}
}

// pagePath extracts the page path from the URL (everything after the route
// prefix). Supports encoded slashes from OpenAPI clients (e.g. docs%2Fa.html).
func pagePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// splitAction separates a trailing action segment from a page path.
func splitAction(p string) (path, action string) {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return p, ""
	}
	return p[:i], p[i+1:]
}

// writeError maps domain errors to HTTP responses.
func writeError(w http.ResponseWriter, op, path string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrInvalidMessage):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrUnsupported):
		writeJSON(w, http.StatusUnsupportedMediaType, errorBody("unsupported page format"))
	default:
		slog.Error(op+" failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListPages handles GET /api/pages.
//
//	@Summary		List pages with optional pagination
//	@Tags			pages
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	PageListResponse
//	@Security		BearerAuth
//	@Router			/pages [get]
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	rows, total, err := h.ws.ListPages(r.Context(), limit, offset)
	if err != nil {
		slog.Error("list pages failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if rows == nil {
		rows = []PageListItem{}
	}
	writeJSON(w, http.StatusOK, PageListResponse{Pages: rows, Total: total})
}

// GetPage handles GET /api/pages/*.
//
//	@Summary		Get a highlighted page
//	@Description	Returns the live highlighted document. ?locale= renders a copy under that locale; ?raw=1 returns text/html.
//	@Tags			pages
//	@Produce		json,html
//	@Param			path	path		string	true	"Page path"
//	@Param			locale	query		string	false	"Locale override"
//	@Param			raw		query		bool	false	"Return the HTML document only"
//	@Success		200		{object}	PageDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{path} [get]
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	path := pagePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	q := r.URL.Query()
	p, err := h.ws.GetPage(r.Context(), path, q.Get("locale"))
	if err != nil {
		writeError(w, "get page", path, err)
		return
	}
	if raw, _ := strconv.ParseBool(q.Get("raw")); raw {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("ETag", storage.ETag(p.Checksum))
		_, _ = w.Write([]byte(p.HTML))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PutPage handles PUT /api/pages/*.
//
//	@Summary		Create or replace a page with optimistic concurrency
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string			true	"Page path"
//	@Param			If-Match	header	string			false	"Page ETag (SHA-256 checksum) or * for optimistic concurrency"
//	@Param			body		body	PutPageRequest	true	"New content"
//	@Success		200		{object}	PageDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{path} [put]
func (h *Handler) PutPage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	path := pagePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req PutPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	p, err := h.ws.PutPage(r.Context(), path, []byte(req.Content), storage.ParseETag(r.Header.Get("If-Match")))
	if err != nil {
		writeError(w, "put page", path, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeletePage handles DELETE /api/pages/*.
//
//	@Summary		Delete a page
//	@Tags			pages
//	@Param			path	path	string	true	"Page path"
//	@Success		204		"Page deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{path} [delete]
func (h *Handler) DeletePage(w http.ResponseWriter, r *http.Request) {
	path := pagePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.ws.DeletePage(r.Context(), path); err != nil {
		writeError(w, "delete page", path, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PageAction handles POST /api/pages/{path}/mutations and
// POST /api/pages/{path}/remove.
//
//	@Summary		Mutate a live page or remove its highlights
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string			true	"Page path"
//	@Param			body	body		MutationRequest	false	"Fragment to append (mutations only)"
//	@Success		200		{object}	RemoveResponse
//	@Success		202		"Mutation accepted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{path}/mutations [post]
//	@Router			/pages/{path}/remove [post]
func (h *Handler) PageAction(w http.ResponseWriter, r *http.Request) {
	path, action := splitAction(pagePath(r))
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	switch action {
	case actionRemove:
		n, err := h.ws.RemoveHighlights(r.Context(), path)
		if err != nil {
			writeError(w, "remove highlights", path, err)
			return
		}
		writeJSON(w, http.StatusOK, RemoveResponse{Removed: n})

	case actionMutations:
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req MutationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
		if req.Content == "" {
			writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
			return
		}
		if req.Format == "" {
			req.Format = storage.FormatHTML
		}
		if req.Format != storage.FormatHTML && req.Format != storage.FormatMarkdown {
			writeJSON(w, http.StatusBadRequest, errorBody("format must be html or markdown"))
			return
		}
		if err := h.ws.Mutate(r.Context(), path, req.Format, []byte(req.Content)); err != nil {
			writeError(w, "mutate page", path, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)

	default:
		writeJSON(w, http.StatusNotFound, errorBody("unknown page action"))
	}
}

// Badges handles GET /api/badges.
//
//	@Summary		List the match count of every page
//	@Tags			badges
//	@Produce		json
//	@Success		200	{object}	BadgeListResponse
//	@Security		BearerAuth
//	@Router			/badges [get]
func (h *Handler) Badges(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, BadgeListResponse{Badges: h.ws.Badges().All()})
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Get the current highlight settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	highlight.Settings
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.ws.Settings())
}

// ApplySettings handles POST /api/settings.
//
//	@Summary		Apply a configuration-change message to every page
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		session.Message	true	"Configuration change"
//	@Success		200		{object}	highlight.Settings
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [post]
func (h *Handler) ApplySettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var msg session.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	next, err := h.ws.ApplySettings(r.Context(), msg)
	if err != nil {
		writeError(w, "apply settings", "", err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// Scans handles GET /api/scans/*.
//
//	@Summary		Get the scan history of a page
//	@Tags			scans
//	@Produce		json
//	@Param			path	path		string	true	"Page path"
//	@Param			limit	query		int		false	"Max records"
//	@Success		200		{object}	ScanListResponse
//	@Security		BearerAuth
//	@Router			/scans/{path} [get]
func (h *Handler) Scans(w http.ResponseWriter, r *http.Request) {
	path := pagePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	scans, err := h.ws.Scans(r.Context(), path, limit)
	if err != nil {
		writeError(w, "scans", path, err)
		return
	}
	if scans == nil {
		scans = []store.ScanRecord{}
	}
	writeJSON(w, http.StatusOK, ScanListResponse{Scans: scans})
}
