package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pairpad/pairpad/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store := NewSQLiteStorage(":memory:")
	if err := store.Open(); err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func createTestUser(t *testing.T, store *SQLiteStorage, username string) *models.User {
	t.Helper()

	user := models.NewUser(username, "")
	user.ID = uuid.New().String()
	user.PasswordHash = "x"
	if err := store.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func createTestProject(t *testing.T, store *SQLiteStorage, owner, name string) *models.Project {
	t.Helper()

	project := models.NewProject(name, "", owner)
	project.ID = uuid.New().String()
	if err := store.Projects().Create(context.Background(), project); err != nil {
		t.Fatalf("create project %s: %v", name, err)
	}
	return project
}

func TestUserCreateAndGet(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	createTestUser(t, store, "alice")

	user, err := store.Users().GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user == nil || user.Username != "alice" {
		t.Fatalf("got %+v, want alice", user)
	}
	if user.DisplayName != "alice" {
		t.Errorf("display name defaulted to %q, want username", user.DisplayName)
	}

	missing, err := store.Users().GetByUsername(ctx, "nobody")
	if err != nil {
		t.Fatalf("get missing user: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing user, got %+v", missing)
	}

	count, err := store.Users().Count(ctx)
	if err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestProjectSharing(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	createTestUser(t, store, "alice")
	createTestUser(t, store, "bob")
	project := createTestProject(t, store, "alice", "Demo")

	if err := store.Projects().Share(ctx, project.ID, "bob"); err != nil {
		t.Fatalf("share: %v", err)
	}
	// Sharing twice is idempotent.
	if err := store.Projects().Share(ctx, project.ID, "bob"); err != nil {
		t.Fatalf("re-share: %v", err)
	}

	got, err := store.Projects().GetByID(ctx, project.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if len(got.SharedWith) != 1 || got.SharedWith[0] != "bob" {
		t.Errorf("shared_with = %v, want [bob]", got.SharedWith)
	}

	// Bob sees the project in his listing, as non-owner.
	list, err := store.Projects().ListForUser(ctx, "bob")
	if err != nil {
		t.Fatalf("list for bob: %v", err)
	}
	if len(list) != 1 || list[0].ID != project.ID || list[0].IsOwner {
		t.Errorf("bob's listing = %+v", list)
	}

	if err := store.Projects().Unshare(ctx, project.ID, "bob"); err != nil {
		t.Fatalf("unshare: %v", err)
	}
	list, err = store.Projects().ListForUser(ctx, "bob")
	if err != nil {
		t.Fatalf("list for bob after unshare: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("bob still sees %d projects after unshare", len(list))
	}
}

func TestProjectDeleteCascades(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	createTestUser(t, store, "alice")
	project := createTestProject(t, store, "alice", "Demo")

	file := models.NewFile("index.html", "<h1>hi</h1>", "alice")
	if err := store.Files().Put(ctx, project.ID, file); err != nil {
		t.Fatalf("put file: %v", err)
	}
	p := &models.Presence{SessionID: "s1", Username: "alice", LastSeen: models.NowMillis()}
	if err := store.Presence().Upsert(ctx, project.ID, p); err != nil {
		t.Fatalf("upsert presence: %v", err)
	}

	if err := store.Projects().Delete(ctx, project.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}

	snapshot, err := store.Files().ListAll(ctx, project.ID)
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(snapshot) != 0 {
		t.Errorf("file table not cascaded: %d rows left", len(snapshot))
	}

	if err := store.Projects().Delete(ctx, project.ID); err != ErrNotFound {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestFilePutOverwrites(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	createTestUser(t, store, "alice")
	project := createTestProject(t, store, "alice", "Demo")

	first := &models.File{Name: "index.html", Content: "v1", Type: "html", LastModified: 100, ModifiedBy: "alice"}
	if err := store.Files().Put(ctx, project.ID, first); err != nil {
		t.Fatalf("put v1: %v", err)
	}

	// Overwrite is unconditional, even with an older timestamp.
	second := &models.File{Name: "index.html", Content: "v2", Type: "html", LastModified: 50, ModifiedBy: "bob"}
	if err := store.Files().Put(ctx, project.ID, second); err != nil {
		t.Fatalf("put v2: %v", err)
	}

	got, err := store.Files().Get(ctx, project.ID, "index.html")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "v2" || got.LastModified != 50 || got.ModifiedBy != "bob" {
		t.Errorf("got %+v, want v2 record", got)
	}
}

func TestFileDeleteIdempotent(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	createTestUser(t, store, "alice")
	project := createTestProject(t, store, "alice", "Demo")

	if err := store.Files().Delete(ctx, project.ID, "nope.txt"); err != nil {
		t.Errorf("deleting a nonexistent file should be a no-op, got %v", err)
	}
}

func TestFileNameRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	createTestUser(t, store, "alice")
	project := createTestProject(t, store, "alice", "Demo")

	names := []string{"index.html", "lib/util.js", "weird_DOT_name", "a.b.c"}
	for _, name := range names {
		if err := store.Files().Put(ctx, project.ID, models.NewFile(name, "x", "alice")); err != nil {
			t.Fatalf("put %q: %v", name, err)
		}
	}

	snapshot, err := store.Files().ListAll(ctx, project.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snapshot) != len(names) {
		t.Fatalf("snapshot has %d files, want %d", len(snapshot), len(names))
	}
	for _, name := range names {
		if _, ok := snapshot[name]; !ok {
			t.Errorf("file %q missing from snapshot", name)
		}
	}
}

func TestPresenceLiveness(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	createTestUser(t, store, "alice")
	project := createTestProject(t, store, "alice", "Demo")

	now := time.Now()
	window := models.DefaultLivenessWindow

	fresh := &models.Presence{SessionID: "fresh", Username: "alice", ViewingFile: "index.html",
		LastSeen: now.Add(-window + time.Millisecond).UnixMilli()}
	stale := &models.Presence{SessionID: "stale", Username: "bob",
		LastSeen: now.Add(-window - time.Millisecond).UnixMilli()}

	for _, p := range []*models.Presence{fresh, stale} {
		if err := store.Presence().Upsert(ctx, project.ID, p); err != nil {
			t.Fatalf("upsert %s: %v", p.SessionID, err)
		}
	}

	active, err := store.Presence().ListActive(ctx, project.ID, now, window)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].SessionID != "fresh" {
		t.Fatalf("active = %+v, want only fresh", active)
	}
	if active[0].ViewingFile != "index.html" {
		t.Errorf("viewing_file = %q", active[0].ViewingFile)
	}

	removed, err := store.Presence().DeleteStale(ctx, now, window)
	if err != nil {
		t.Fatalf("delete stale: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed %d stale entries, want 1", removed)
	}

	if err := store.Presence().Delete(ctx, project.ID, "fresh"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Presence().Delete(ctx, project.ID, "fresh"); err != nil {
		t.Errorf("second delete should be a no-op, got %v", err)
	}
}
