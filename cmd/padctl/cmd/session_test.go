package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSessionRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	// Missing file reads as an empty session
	state, err := loadSession()
	if err != nil {
		t.Fatalf("load empty session: %v", err)
	}
	if state.Token != "" || state.LastProject != "" {
		t.Errorf("empty session not empty: %+v", state)
	}

	state.Server = "http://pad.example.com:8080"
	state.Username = "alice"
	state.Token = "tok"
	state.LastProject = "p1"
	if err := saveSession(state); err != nil {
		t.Fatalf("save session: %v", err)
	}

	loaded, err := loadSession()
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if *loaded != *state {
		t.Errorf("loaded = %+v, want %+v", loaded, state)
	}

	// Token file must be user-only
	path, err := sessionPath()
	if err != nil {
		t.Fatalf("session path: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat session: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("session file mode = %v, want 0600", info.Mode().Perm())
	}
	if filepath.Base(path) != "session.json" {
		t.Errorf("session file name = %s", filepath.Base(path))
	}
}

func TestResolveProject(t *testing.T) {
	state := &sessionState{LastProject: "saved"}

	if got, err := resolveProject("flag", state); err != nil || got != "flag" {
		t.Errorf("resolveProject(flag) = %q, %v", got, err)
	}
	if got, err := resolveProject("", state); err != nil || got != "saved" {
		t.Errorf("resolveProject(saved) = %q, %v", got, err)
	}
	if _, err := resolveProject("", &sessionState{}); err == nil {
		t.Error("expected error with no project anywhere")
	}
}
