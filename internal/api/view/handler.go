// Package view serves saved project files as raw web assets so a project
// can be previewed (or iframed) straight out of the file store.
package view

import (
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pairpad/pairpad/internal/storage"
)

// Handler serves the public read-only gateway.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a new view handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// contentTypeFor maps a file name to the Content-Type the browser needs to
// render it. Unknown extensions fall back to plain text so nothing is ever
// sniffed into something executable.
func contentTypeFor(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return "text/plain; charset=utf-8"
	}
	switch strings.ToLower(name[idx+1:]) {
	case "html", "htm":
		return "text/html; charset=utf-8"
	case "css":
		return "text/css; charset=utf-8"
	case "js":
		return "application/javascript; charset=utf-8"
	case "json":
		return "application/json; charset=utf-8"
	case "svg":
		return "image/svg+xml; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Serve handles GET /view/{projectID} and GET /view/{projectID}/{fileName}.
// A bare project URL serves index.html, matching what relative links inside
// the page expect.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	name := chi.URLParam(r, "*")
	if name == "" {
		name = "index.html"
	}

	file, err := h.storage.Files().Get(r.Context(), projectID, name)
	if err != nil {
		log.Printf("view: get file error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	// An empty record is as unservable as a missing one.
	if file == nil || file.Content == "" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(name))
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte(file.Content))
}
