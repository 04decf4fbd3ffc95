// Package projects provides HTTP handlers for the project directory.
package projects

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pairpad/pairpad/internal/api/middleware"
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
	errCodeForbidden     = "FORBIDDEN"
	errCodeNotFound      = "NOT_FOUND"
	errCodeConflict      = "CONFLICT"
	errCodeInternalError = "INTERNAL_ERROR"
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Error: &apiError{Code: code, Message: message}})
}

func jsonData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Data: data})
}

// Handler handles project directory endpoints.
type Handler struct {
	storage storage.Storage
	hub     *stream.Hub
}

// NewHandler creates a new projects handler.
func NewHandler(store storage.Storage, hub *stream.Hub) *Handler {
	return &Handler{storage: store, hub: hub}
}

// CreateRequest is the body for project creation.
type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ShareRequest is the body for granting access.
type ShareRequest struct {
	Username string `json:"username"`
}

// Create handles POST /projects. New projects are seeded with index.html,
// styles.css and script.js.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project name required")
		return
	}

	ctx := r.Context()
	owner := middleware.Username(ctx)

	project := models.NewProject(req.Name, req.Description, owner)
	project.ID = uuid.New().String()

	if err := h.storage.Projects().Create(ctx, project); err != nil {
		log.Printf("create project error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	for _, file := range seedFiles(project.Name, owner) {
		if err := h.storage.Files().Put(ctx, project.ID, file); err != nil {
			log.Printf("seed file %s error: %v", file.Name, err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return
		}
	}

	log.Printf("created project %s (%s) for %s", project.Name, project.ID, owner)
	jsonData(w, http.StatusCreated, project)
}

// List handles GET /projects - owned plus shared, owned first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.storage.Projects().ListForUser(r.Context(), middleware.Username(r.Context()))
	if err != nil {
		log.Printf("list projects error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if summaries == nil {
		summaries = []*models.ProjectSummary{}
	}
	jsonData(w, http.StatusOK, summaries)
}

// Get handles GET /projects/{projectID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	jsonData(w, http.StatusOK, middleware.ProjectFromContext(r.Context()))
}

// Delete handles DELETE /projects/{projectID}. Owner only; removes the
// project reference, its file table and its presence in one stroke.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	project := middleware.ProjectFromContext(r.Context())

	if !project.IsOwner(middleware.Username(r.Context())) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "only the owner can delete a project")
		return
	}

	if err := h.storage.Projects().Delete(r.Context(), project.ID); err != nil {
		if err == storage.ErrNotFound {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
			return
		}
		log.Printf("delete project error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("deleted project %s", project.ID)
	w.WriteHeader(http.StatusNoContent)
}

// Share handles POST /projects/{projectID}/share. Owner only. Shared users
// read and write the same file table; nothing is copied.
func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	project := middleware.ProjectFromContext(r.Context())
	username := middleware.Username(r.Context())

	if !project.IsOwner(username) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "only the owner can share a project")
		return
	}

	var req ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "username required")
		return
	}
	if req.Username == username {
		jsonError(w, http.StatusConflict, errCodeConflict, "cannot share a project with yourself")
		return
	}

	ctx := r.Context()
	grantee, err := h.storage.Users().GetByUsername(ctx, req.Username)
	if err != nil {
		log.Printf("share: get user error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if grantee == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "user not found")
		return
	}

	if err := h.storage.Projects().Share(ctx, project.ID, req.Username); err != nil {
		log.Printf("share error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("shared project %s with %s", project.ID, req.Username)
	w.WriteHeader(http.StatusNoContent)
}

// Unshare handles DELETE /projects/{projectID}/share/{username}. Owner only.
func (h *Handler) Unshare(w http.ResponseWriter, r *http.Request) {
	project := middleware.ProjectFromContext(r.Context())

	if !project.IsOwner(middleware.Username(r.Context())) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "only the owner can revoke access")
		return
	}

	grantee := chi.URLParam(r, "username")
	if err := h.storage.Projects().Unshare(r.Context(), project.ID, grantee); err != nil {
		log.Printf("unshare error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
