package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// sessionState is what padctl remembers between invocations: which server,
// who is logged in, and the last opened project.
type sessionState struct {
	Server      string `json:"server"`
	Username    string `json:"username"`
	Token       string `json:"token"`
	LastProject string `json:"last_project,omitempty"`
}

func sessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "pairpad", "session.json"), nil
}

// loadSession reads the saved session. A missing file is an empty session.
func loadSession() (*sessionState, error) {
	path, err := sessionPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &sessionState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var state sessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	return &state, nil
}

// saveSession persists the session with user-only permissions; it holds a
// bearer token.
func saveSession(state *sessionState) error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}
