package models

import (
	"time"
)

// Project represents a shared workspace of files.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Owner       string    `json:"owner"`
	CreatedAt   time.Time `json:"created_at"`
	SharedWith  []string  `json:"shared_with,omitempty"`
}

// NewProject creates a new Project with an initialized timestamp.
func NewProject(name, description, owner string) *Project {
	return &Project{
		Name:        name,
		Description: description,
		Owner:       owner,
		CreatedAt:   time.Now(),
	}
}

// IsOwner returns true if the given username owns this project.
func (p *Project) IsOwner(username string) bool {
	return p.Owner == username
}

// IsSharedWith returns true if the project has been shared with the user.
func (p *Project) IsSharedWith(username string) bool {
	for _, u := range p.SharedWith {
		if u == username {
			return true
		}
	}
	return false
}

// ProjectSummary is a project listing entry.
type ProjectSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner"`
	IsOwner     bool   `json:"is_owner"`
}
