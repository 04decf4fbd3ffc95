package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pairpad/pairpad/internal/keycodec"
	"github.com/pairpad/pairpad/internal/models"
	"github.com/pairpad/pairpad/internal/storage"
)

// testServer creates a test server backed by a temp SQLite file
func testServer(t *testing.T) (*Server, storage.Storage, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "pairpad-test-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	tmpFile.Close()

	store := storage.NewSQLiteStorage(tmpFile.Name())
	if err := store.Open(); err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("open storage: %v", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		os.Remove(tmpFile.Name())
		t.Fatalf("migrate storage: %v", err)
	}

	cfg := &Config{
		Address:         ":0",
		JWTSecret:       []byte("test-jwt-secret-32-bytes-long!!"),
		AccessTokenTTL:  15 * time.Minute,
		LoginRatePerMin: 100,
		LivenessWindow:  10 * time.Second,
	}

	srv, err := New(cfg, store)
	if err != nil {
		store.Close()
		os.Remove(tmpFile.Name())
		t.Fatalf("create server: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.Remove(tmpFile.Name())
	}

	return srv, store, cleanup
}

// createTestUser creates a user in the database for testing
func createTestUser(t *testing.T, store storage.Storage, username, password string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	user := models.NewUser(username, username)
	user.ID = "test-" + username
	user.PasswordHash = string(hash)

	if err := store.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	return user
}

// login returns an access token for the given credentials
func login(t *testing.T, srv *Server, username, password string) string {
	t.Helper()

	body := `{"username":"` + username + `","password":"` + password + `"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login: status = %d; body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Data.AccessToken
}

// doJSON performs an authenticated JSON request against the server
func doJSON(t *testing.T, srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// createProject creates a project over the API and returns its ID
func createProject(t *testing.T, srv *Server, token, name string) string {
	t.Helper()

	rec := doJSON(t, srv, "POST", "/api/v1/projects", token, `{"name":"`+name+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create project: status = %d; body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data models.Project `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	return resp.Data.ID
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	rec := doJSON(t, srv, "GET", "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	body := `{"username":"alice","password":"hunter2hunter2","display_name":"Alice"}`
	rec := doJSON(t, srv, "POST", "/api/v1/auth/register", "", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status = %d; body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			AccessToken string       `json:"access_token"`
			TokenType   string       `json:"token_type"`
			User        *models.User `json:"user"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.AccessToken == "" {
		t.Error("expected non-empty access_token")
	}
	if resp.Data.TokenType != "Bearer" {
		t.Errorf("token_type = %q, want Bearer", resp.Data.TokenType)
	}
	if resp.Data.User == nil || resp.Data.User.DisplayName != "Alice" {
		t.Errorf("user = %+v, want display name Alice", resp.Data.User)
	}

	// Duplicate username
	rec = doJSON(t, srv, "POST", "/api/v1/auth/register", "", body)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register: status = %d, want %d", rec.Code, http.StatusConflict)
	}

	// Login with the registered credentials
	token := login(t, srv, "alice", "hunter2hunter2")
	if token == "" {
		t.Error("expected non-empty token from login")
	}
}

func TestRegister_WeakPassword(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	rec := doJSON(t, srv, "POST", "/api/v1/auth/register", "", `{"username":"bob","password":"short1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestUser(t, store, "alice", "hunter2hunter2")

	rec := doJSON(t, srv, "POST", "/api/v1/auth/login", "", `{"username":"alice","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestProjects_RequireAuth(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	rec := doJSON(t, srv, "GET", "/api/v1/projects", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestProjectCreate_SeedsDefaultFiles(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestUser(t, store, "alice", "hunter2hunter2")
	token := login(t, srv, "alice", "hunter2hunter2")

	projectID := createProject(t, srv, token, "Demo")

	rec := doJSON(t, srv, "GET", "/api/v1/projects/"+projectID+"/files", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot: status = %d; body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data map[string]*models.File `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}

	for _, name := range []string{"index.html", "styles.css", "script.js"} {
		if _, ok := resp.Data[name]; !ok {
			t.Errorf("seeded snapshot missing %s", name)
		}
	}
	if !strings.Contains(resp.Data["index.html"].Content, "Demo") {
		t.Error("index.html should reference the project name")
	}
	if !strings.Contains(resp.Data["index.html"].Content, "styles.css") {
		t.Error("index.html should link styles.css")
	}
}

func TestProjectAccess_DeniedForStranger(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestUser(t, store, "alice", "hunter2hunter2")
	createTestUser(t, store, "mallory", "hunter2hunter2")
	aliceToken := login(t, srv, "alice", "hunter2hunter2")
	malloryToken := login(t, srv, "mallory", "hunter2hunter2")

	projectID := createProject(t, srv, aliceToken, "Private")

	rec := doJSON(t, srv, "GET", "/api/v1/projects/"+projectID, malloryToken, "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestProjectShare_GrantsAccess(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestUser(t, store, "alice", "hunter2hunter2")
	createTestUser(t, store, "bob", "hunter2hunter2")
	aliceToken := login(t, srv, "alice", "hunter2hunter2")
	bobToken := login(t, srv, "bob", "hunter2hunter2")

	projectID := createProject(t, srv, aliceToken, "Shared")

	rec := doJSON(t, srv, "POST", "/api/v1/projects/"+projectID+"/share", aliceToken, `{"username":"bob"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("share: status = %d; body: %s", rec.Code, rec.Body.String())
	}

	// Bob now reads and writes the same file table
	rec = doJSON(t, srv, "GET", "/api/v1/projects/"+projectID+"/files", bobToken, "")
	if rec.Code != http.StatusOK {
		t.Errorf("shared snapshot: status = %d", rec.Code)
	}

	// Only the owner may share onward
	rec = doJSON(t, srv, "POST", "/api/v1/projects/"+projectID+"/share", bobToken, `{"username":"alice"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-owner share: status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	// Revoke
	rec = doJSON(t, srv, "DELETE", "/api/v1/projects/"+projectID+"/share/bob", aliceToken, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unshare: status = %d", rec.Code)
	}
	rec = doJSON(t, srv, "GET", "/api/v1/projects/"+projectID+"/files", bobToken, "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("after unshare: status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestProjectShare_UnknownUser(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestUser(t, store, "alice", "hunter2hunter2")
	token := login(t, srv, "alice", "hunter2hunter2")
	projectID := createProject(t, srv, token, "Demo")

	rec := doJSON(t, srv, "POST", "/api/v1/projects/"+projectID+"/share", token, `{"username":"ghost"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestProjectDelete_OwnerOnly(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestUser(t, store, "alice", "hunter2hunter2")
	createTestUser(t, store, "bob", "hunter2hunter2")
	aliceToken := login(t, srv, "alice", "hunter2hunter2")
	bobToken := login(t, srv, "bob", "hunter2hunter2")

	projectID := createProject(t, srv, aliceToken, "Doomed")
	doJSON(t, srv, "POST", "/api/v1/projects/"+projectID+"/share", aliceToken, `{"username":"bob"}`)

	rec := doJSON(t, srv, "DELETE", "/api/v1/projects/"+projectID, bobToken, "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-owner delete: status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	rec = doJSON(t, srv, "DELETE", "/api/v1/projects/"+projectID, aliceToken, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("owner delete: status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	rec = doJSON(t, srv, "GET", "/api/v1/projects/"+projectID, aliceToken, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("after delete: status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestFiles_PutGetDelete(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestUser(t, store, "alice", "hunter2hunter2")
	token := login(t, srv, "alice", "hunter2hunter2")
	projectID := createProject(t, srv, token, "Demo")

	// Dots in file names must ride through the key codec
	key := keycodec.Encode("notes.md")
	base := "/api/v1/projects/" + projectID + "/files/" + key

	rec := doJSON(t, srv, "PUT", base, token, `{"content":"# hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: status = %d; body: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, "GET", base, token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d", rec.Code)
	}
	var resp struct {
		Data models.File `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode file: %v", err)
	}
	if resp.Data.Name != "notes.md" {
		t.Errorf("name = %q, want notes.md", resp.Data.Name)
	}
	if resp.Data.Type != "markdown" {
		t.Errorf("type = %q, want markdown", resp.Data.Type)
	}
	if resp.Data.LastModified == 0 {
		t.Error("expected server to stamp lastModified")
	}
	if resp.Data.ModifiedBy != "alice" {
		t.Errorf("modifiedBy = %q, want alice", resp.Data.ModifiedBy)
	}

	rec = doJSON(t, srv, "DELETE", base, token, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: status = %d", rec.Code)
	}

	rec = doJSON(t, srv, "GET", base, token, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	// Deleting again is a no-op
	rec = doJSON(t, srv, "DELETE", base, token, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("second delete: status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestFiles_PutKeepsClientTimestamp(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestUser(t, store, "alice", "hunter2hunter2")
	token := login(t, srv, "alice", "hunter2hunter2")
	projectID := createProject(t, srv, token, "Demo")

	base := "/api/v1/projects/" + projectID + "/files/" + keycodec.Encode("a.txt")
	rec := doJSON(t, srv, "PUT", base, token, `{"content":"x","lastModified":1234567890123}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: status = %d", rec.Code)
	}

	var resp struct {
		Data models.File `json:"data"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Data.LastModified != 1234567890123 {
		t.Errorf("lastModified = %d, want client stamp preserved", resp.Data.LastModified)
	}
}

func TestFiles_MalformedKey(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestUser(t, store, "alice", "hunter2hunter2")
	token := login(t, srv, "alice", "hunter2hunter2")
	projectID := createProject(t, srv, token, "Demo")

	rec := doJSON(t, srv, "GET", "/api/v1/projects/"+projectID+"/files/bad_BOGUS_key", token, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestReservedWatchSegment(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestUser(t, store, "alice", "hunter2hunter2")
	token := login(t, srv, "alice", "hunter2hunter2")
	projectID := createProject(t, srv, token, "Demo")

	// A file stored under the stream route's segment could never be
	// fetched back, so the write is rejected outright.
	rec := doJSON(t, srv, "PUT", "/api/v1/projects/"+projectID+"/files/watch", token, `{"content":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("put file named watch: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = doJSON(t, srv, "PUT", "/api/v1/projects/"+projectID+"/presence/watch", token, `{"viewingFile":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("heartbeat session watch: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestPresence_HeartbeatActiveRelease(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestUser(t, store, "alice", "hunter2hunter2")
	token := login(t, srv, "alice", "hunter2hunter2")
	projectID := createProject(t, srv, token, "Demo")

	base := "/api/v1/projects/" + projectID + "/presence"

	rec := doJSON(t, srv, "PUT", base+"/sess-1", token, `{"viewingFile":"index.html"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("heartbeat: status = %d; body: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, "GET", base, token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("active: status = %d", rec.Code)
	}
	var resp struct {
		Data []*models.Presence `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode presence: %v", err)
	}
	if len(resp.Data) != 1 {
		t.Fatalf("active sessions = %d, want 1", len(resp.Data))
	}
	if resp.Data[0].SessionID != "sess-1" || resp.Data[0].ViewingFile != "index.html" {
		t.Errorf("unexpected presence entry: %+v", resp.Data[0])
	}
	if resp.Data[0].LastSeen == 0 {
		t.Error("expected server-stamped lastSeen")
	}

	rec = doJSON(t, srv, "DELETE", base+"/sess-1", token, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("release: status = %d", rec.Code)
	}

	rec = doJSON(t, srv, "GET", base, token, "")
	resp.Data = nil
	json.NewDecoder(rec.Body).Decode(&resp)
	if len(resp.Data) != 0 {
		t.Errorf("active after release = %d, want 0", len(resp.Data))
	}
}

func TestWatch_SendsInitialSnapshot(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestUser(t, store, "alice", "hunter2hunter2")
	token := login(t, srv, "alice", "hunter2hunter2")
	projectID := createProject(t, srv, token, "Demo")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req := httptest.NewRequest("GET", "/api/v1/projects/"+projectID+"/files/watch", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.Handler().ServeHTTP(rec, req)
		close(done)
	}()

	// Wait for the initial event, then cancel the stream
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(rec.Body.String(), "event: snapshot") {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	body := rec.Body.String()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(body, "event: snapshot") {
		t.Errorf("missing initial snapshot event; body: %s", body)
	}
	if !strings.Contains(body, "index.html") {
		t.Errorf("initial snapshot should include seeded files; body: %s", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
}

func TestViewGateway(t *testing.T) {
	srv, store, cleanup := testServer(t)
	defer cleanup()

	createTestUser(t, store, "alice", "hunter2hunter2")
	token := login(t, srv, "alice", "hunter2hunter2")
	projectID := createProject(t, srv, token, "Demo")

	// A record that exists but has no content yet
	rec := doJSON(t, srv, "PUT",
		"/api/v1/projects/"+projectID+"/files/"+keycodec.Encode("empty.html"), token, `{"content":""}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("seed empty file: status = %d", rec.Code)
	}

	tests := []struct {
		name        string
		path        string
		wantStatus  int
		wantType    string
		wantContain string
	}{
		{"default index", "/view/" + projectID, http.StatusOK, "text/html; charset=utf-8", "<!DOCTYPE html>"},
		{"explicit html", "/view/" + projectID + "/index.html", http.StatusOK, "text/html; charset=utf-8", "Demo"},
		{"stylesheet", "/view/" + projectID + "/styles.css", http.StatusOK, "text/css; charset=utf-8", "box-sizing"},
		{"script", "/view/" + projectID + "/script.js", http.StatusOK, "application/javascript; charset=utf-8", "handleClick"},
		{"missing file", "/view/" + projectID + "/nope.txt", http.StatusNotFound, "", ""},
		{"empty file", "/view/" + projectID + "/empty.html", http.StatusNotFound, "", ""},
		{"missing project", "/view/no-such-project", http.StatusNotFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// No auth header: the gateway is public
			rec := doJSON(t, srv, "GET", tt.path, "", "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if ct := rec.Header().Get("Content-Type"); ct != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", ct, tt.wantType)
			}
			if acao := rec.Header().Get("Access-Control-Allow-Origin"); acao != "*" {
				t.Errorf("ACAO = %q, want *", acao)
			}
			if !strings.Contains(rec.Body.String(), tt.wantContain) {
				t.Errorf("body missing %q", tt.wantContain)
			}
		})
	}
}
