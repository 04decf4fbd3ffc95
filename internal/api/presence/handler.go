// Package presence provides HTTP handlers for the ephemeral presence store.
package presence

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pairpad/pairpad/internal/api/files"
	"github.com/pairpad/pairpad/internal/api/middleware"
	"github.com/pairpad/pairpad/internal/metrics"
	"github.com/pairpad/pairpad/internal/models"
	"github.com/pairpad/pairpad/internal/storage"
	"github.com/pairpad/pairpad/internal/stream"
)

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
	errCodeInternalError = "INTERNAL_ERROR"
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

// Handler handles presence endpoints.
type Handler struct {
	storage       storage.Storage
	hub           *stream.Hub
	window        time.Duration
	streamMaxLife time.Duration
}

// NewHandler creates a new presence handler.
func NewHandler(store storage.Storage, hub *stream.Hub, window, streamMaxLife time.Duration) *Handler {
	return &Handler{
		storage:       store,
		hub:           hub,
		window:        window,
		streamMaxLife: streamMaxLife,
	}
}

// HeartbeatRequest is the body of a presence refresh.
type HeartbeatRequest struct {
	ViewingFile string `json:"viewingFile,omitempty"`
}

// Heartbeat handles PUT .../presence/{sessionID}. The server stamps
// lastSeen; identity comes from the access token, never the body.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	project := middleware.ProjectFromContext(r.Context())

	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "session id required")
		return
	}
	// The stream route owns the "watch" segment.
	if sessionID == "watch" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "session id is reserved")
		return
	}

	var req HeartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	username := middleware.Username(r.Context())
	if claims := middleware.UserClaims(r.Context()); claims != nil && claims.DisplayName != "" {
		username = claims.DisplayName
	}

	entry := &models.Presence{
		SessionID:   sessionID,
		Username:    username,
		ViewingFile: req.ViewingFile,
		LastSeen:    models.NowMillis(),
	}

	if err := h.storage.Presence().Upsert(r.Context(), project.ID, entry); err != nil {
		log.Printf("heartbeat error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	metrics.HeartbeatsTotal.Inc()
	h.broadcast(r, project.ID)
	jsonOK(w, entry)
}

// Active handles GET .../presence - sessions inside the liveness window.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	project := middleware.ProjectFromContext(r.Context())

	entries, err := h.storage.Presence().ListActive(r.Context(), project.ID, time.Now(), h.window)
	if err != nil {
		log.Printf("presence list error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if entries == nil {
		entries = []*models.Presence{}
	}
	jsonOK(w, entries)
}

// Release handles DELETE .../presence/{sessionID}. Best-effort: a session
// that never calls this still goes offline once the window elapses.
func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	project := middleware.ProjectFromContext(r.Context())

	sessionID := chi.URLParam(r, "sessionID")
	if err := h.storage.Presence().Delete(r.Context(), project.ID, sessionID); err != nil {
		log.Printf("presence release error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	h.broadcast(r, project.ID)
	w.WriteHeader(http.StatusNoContent)
}

// broadcast publishes the active set to presence watchers.
func (h *Handler) broadcast(r *http.Request, projectID string) {
	entries, err := h.storage.Presence().ListActive(r.Context(), projectID, time.Now(), h.window)
	if err != nil {
		log.Printf("presence broadcast: %v", err)
		return
	}
	if entries == nil {
		entries = []*models.Presence{}
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		log.Printf("presence broadcast: marshal: %v", err)
		return
	}
	h.hub.Publish(stream.PresenceTopic(projectID), payload)
}

// Watch handles GET .../presence/watch - SSE stream of active presence sets.
func (h *Handler) Watch(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "streaming not supported")
		return
	}

	project := middleware.ProjectFromContext(r.Context())
	ctx := r.Context()

	entries, err := h.storage.Presence().ListActive(ctx, project.ID, time.Now(), h.window)
	if err != nil {
		log.Printf("presence watch: initial list: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if entries == nil {
		entries = []*models.Presence{}
	}
	initial, err := json.Marshal(entries)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	sub, cancel := h.hub.Subscribe(stream.PresenceTopic(project.ID))
	defer cancel()

	metrics.WatchStreamsActive.Inc()
	defer metrics.WatchStreamsActive.Dec()

	sse := files.NewSSEWriter(w, flusher)
	sse.Start()
	if err := sse.SendEvent("presence", initial); err != nil {
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
			if err := sse.SendEvent("presence", payload); err != nil {
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
