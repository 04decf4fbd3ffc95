// Package files provides HTTP handlers for the shared file table and the
// change feed watch endpoint.
package files

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pairpad/pairpad/internal/api/middleware"
	"github.com/pairpad/pairpad/internal/keycodec"
	"github.com/pairpad/pairpad/internal/metrics"
	"github.com/pairpad/pairpad/internal/models"
	"github.com/pairpad/pairpad/internal/storage"
	"github.com/pairpad/pairpad/internal/stream"
)

// Response helpers (local to avoid import cycle with api package)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	Data  any       `json:"data,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

const (
	errCodeBadRequest    = "BAD_REQUEST"
	errCodeNotFound      = "NOT_FOUND"
	errCodeInternalError = "INTERNAL_ERROR"

	// maxContentBytes bounds a single file body.
	maxContentBytes = 1 << 20
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Error: &apiError{Code: code, Message: message}})
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(apiResponse{Data: data})
}

// Handler handles file table endpoints.
type Handler struct {
	storage       storage.Storage
	hub           *stream.Hub
	streamMaxLife time.Duration
}

// NewHandler creates a new files handler.
func NewHandler(store storage.Storage, hub *stream.Hub, streamMaxLife time.Duration) *Handler {
	return &Handler{
		storage:       store,
		hub:           hub,
		streamMaxLife: streamMaxLife,
	}
}

// PutRequest is the wire shape of a file write.
type PutRequest struct {
	Content      string `json:"content"`
	Type         string `json:"type,omitempty"`
	LastModified int64  `json:"lastModified,omitempty"`
}

// Snapshot handles GET .../files - the full file table keyed by name.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	project := middleware.ProjectFromContext(r.Context())

	snapshot, err := h.storage.Files().ListAll(r.Context(), project.ID)
	if err != nil {
		log.Printf("snapshot error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	jsonOK(w, snapshot)
}

// Get handles GET .../files/{key} for a single record.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	project := middleware.ProjectFromContext(r.Context())

	name, err := keycodec.Decode(chi.URLParam(r, "key"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "malformed file key")
		return
	}

	file, err := h.storage.Files().Get(r.Context(), project.ID, name)
	if err != nil {
		log.Printf("get file error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if file == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "file not found")
		return
	}
	jsonOK(w, file)
}

// Put handles PUT .../files/{key}. The write is an unconditional overwrite;
// the record's lastModified timestamp is the only conflict signal, and
// readers converge through last-write-wins.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	project := middleware.ProjectFromContext(r.Context())

	name, err := keycodec.Decode(chi.URLParam(r, "key"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "malformed file key")
		return
	}
	if name == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "file name required")
		return
	}
	// The stream route owns the "watch" key segment; a record stored
	// under it could never be fetched back.
	if keycodec.Encode(name) == "watch" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "file name is reserved")
		return
	}

	var req PutRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxContentBytes)).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	file := &models.File{
		Name:         name,
		Content:      req.Content,
		Type:         models.FileTypeFor(name),
		LastModified: req.LastModified,
		ModifiedBy:   middleware.Username(r.Context()),
	}
	// Writers normally stamp their own wall clock; stamp here only when the
	// client sent none.
	if file.LastModified == 0 {
		file.LastModified = models.NowMillis()
	}

	if err := h.storage.Files().Put(r.Context(), project.ID, file); err != nil {
		log.Printf("put file error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	metrics.FileWritesTotal.WithLabelValues(project.ID).Inc()
	h.broadcast(r, project.ID)
	jsonOK(w, file)
}

// Delete handles DELETE .../files/{key}. Deleting a missing file is a no-op.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	project := middleware.ProjectFromContext(r.Context())

	name, err := keycodec.Decode(chi.URLParam(r, "key"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "malformed file key")
		return
	}

	if err := h.storage.Files().Delete(r.Context(), project.ID, name); err != nil {
		log.Printf("delete file error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	metrics.FileDeletesTotal.WithLabelValues(project.ID).Inc()
	h.broadcast(r, project.ID)
	w.WriteHeader(http.StatusNoContent)
}

// broadcast publishes the new full snapshot to every feed subscriber. The
// writer's own subscription receives the echo too; suppressing self-echoes
// is the client engine's job.
func (h *Handler) broadcast(r *http.Request, projectID string) {
	snapshot, err := h.storage.Files().ListAll(r.Context(), projectID)
	if err != nil {
		log.Printf("broadcast: list files: %v", err)
		return
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("broadcast: marshal snapshot: %v", err)
		return
	}
	h.hub.Publish(stream.FilesTopic(projectID), payload)
	metrics.SnapshotsPublishedTotal.Inc()
}

// Watch handles GET .../files/watch - SSE stream of file table snapshots.
// The current snapshot is sent immediately, then one event per mutation.
func (h *Handler) Watch(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "streaming not supported")
		return
	}

	project := middleware.ProjectFromContext(r.Context())
	ctx := r.Context()

	snapshot, err := h.storage.Files().ListAll(ctx, project.ID)
	if err != nil {
		log.Printf("watch: initial snapshot: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	initial, err := json.Marshal(snapshot)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	sub, cancel := h.hub.Subscribe(stream.FilesTopic(project.ID))
	defer cancel()

	metrics.WatchStreamsActive.Inc()
	defer metrics.WatchStreamsActive.Dec()

	sse := NewSSEWriter(w, flusher)
	sse.Start()
	if err := sse.SendEvent("snapshot", initial); err != nil {
		return
	}

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	deadline := time.Now().Add(h.streamMaxLife)

	for {
		select {
		case <-ctx.Done():
			return

		case payload, open := <-sub:
			if !open {
				return
			}
			if err := sse.SendEvent("snapshot", payload); err != nil {
				return
			}

		case <-keepalive.C:
			if time.Now().After(deadline) {
				sse.SendEvent("close", []byte(`{"reason":"timeout"}`))
				return
			}
			if err := sse.SendComment("keepalive"); err != nil {
				return
			}
		}
	}
}
