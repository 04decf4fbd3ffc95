// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pairpad/pairpad/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error

	// Repository accessors
	Users() UserRepository
	Projects() ProjectRepository
	Files() FileRepository
	Presence() PresenceRepository
}

// UserRepository defines operations for account management.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Count(ctx context.Context) (int64, error)
}

// ProjectRepository defines operations for the project directory.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id string) (*models.Project, error)
	// Delete removes the project together with its file table and presence.
	Delete(ctx context.Context, id string) error
	// ListForUser returns owned plus shared projects, owned first.
	ListForUser(ctx context.Context, username string) ([]*models.ProjectSummary, error)
	Share(ctx context.Context, projectID, username string) error
	Unshare(ctx context.Context, projectID, username string) error
}

// FileRepository defines operations for the shared file table.
// Writes are unconditional per-record overwrites: last write always wins
// structurally, with no optimistic-concurrency check.
type FileRepository interface {
	// Put overwrites the record keyed by the encoded file name.
	Put(ctx context.Context, projectID string, file *models.File) error
	Get(ctx context.Context, projectID, name string) (*models.File, error)
	// Delete removes the keyed record. Deleting a missing file is a no-op.
	Delete(ctx context.Context, projectID, name string) error
	// ListAll returns the full snapshot of the project's file table.
	ListAll(ctx context.Context, projectID string) (map[string]*models.File, error)
}

// PresenceRepository defines operations for ephemeral session liveness.
type PresenceRepository interface {
	// Upsert writes or refreshes a session's presence record.
	Upsert(ctx context.Context, projectID string, p *models.Presence) error
	// ListActive returns records with lastSeen inside the liveness window.
	ListActive(ctx context.Context, projectID string, now time.Time, window time.Duration) ([]*models.Presence, error)
	// Delete removes a session's record. Missing records are a no-op.
	Delete(ctx context.Context, projectID, sessionID string) error
	// DeleteStale removes records whose lastSeen fell out of the window.
	DeleteStale(ctx context.Context, now time.Time, window time.Duration) (int64, error)
}
