package models

import (
	"time"
)

// User represents a registered account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser creates a new User with an initialized timestamp.
func NewUser(username, displayName string) *User {
	if displayName == "" {
		displayName = username
	}
	return &User{
		Username:    username,
		DisplayName: displayName,
		CreatedAt:   time.Now(),
	}
}
