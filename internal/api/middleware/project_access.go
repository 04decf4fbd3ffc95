package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pairpad/pairpad/internal/models"
	"github.com/pairpad/pairpad/internal/storage"
)

// ProjectAccess returns middleware that loads the {projectID} route param,
// rejects requests from users who neither own nor were granted the project,
// and stashes the loaded project in the request context.
func ProjectAccess(store storage.Storage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			projectID := chi.URLParam(r, "projectID")
			if projectID == "" {
				jsonNotFoundProject(w)
				return
			}

			project, err := store.Projects().GetByID(r.Context(), projectID)
			if err != nil {
				log.Printf("project access: get project %s: %v", projectID, err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]string{"code": "INTERNAL_ERROR", "message": "internal server error"},
				})
				return
			}
			if project == nil {
				jsonNotFoundProject(w)
				return
			}

			username := Username(r.Context())
			if !project.IsOwner(username) && !project.IsSharedWith(username) {
				jsonForbidden(w)
				return
			}

			ctx := context.WithValue(r.Context(), projectKey, project)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProjectFromContext returns the project loaded by ProjectAccess.
func ProjectFromContext(ctx context.Context) *models.Project {
	if v, ok := ctx.Value(projectKey).(*models.Project); ok {
		return v
	}
	return nil
}

func jsonNotFoundProject(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": "NOT_FOUND", "message": "project not found"},
	})
}
