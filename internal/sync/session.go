package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/pairpad/pairpad/internal/models"
)

// State is the session lifecycle phase.
type State int

const (
	// StateNoProject means no project is open.
	StateNoProject State = iota
	// StateLoading means the initial snapshot is being fetched.
	StateLoading
	// StateActive means the session is converging against the feed.
	StateActive
)

func (s State) String() string {
	switch s {
	case StateNoProject:
		return "no-project"
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// DefaultDebounce is how long after the last keystroke an edit is flushed.
const DefaultDebounce = 500 * time.Millisecond

// defaultWriteAttempts bounds flush retries before a file is marked
// not-synced.
const defaultWriteAttempts = 3

// Editor is what the embedding editor implements. The controller wraps it
// into the engine's EditorSurface, supplying open-file and edit-in-flight
// bookkeeping itself.
type Editor interface {
	// Refresh replaces the open file's buffer with remote content,
	// preserving the caret as well as the drift allows.
	Refresh(file *models.File)
	// Remove tells the editor a file vanished from the table.
	Remove(name string)
}

// ControllerConfig tunes the session controller. Zero values get defaults.
type ControllerConfig struct {
	Debounce          time.Duration
	HeartbeatInterval time.Duration
	WriteAttempts     int
	// UsePolling selects the polling feed over the push stream.
	UsePolling   bool
	PollInterval time.Duration
}

func (c *ControllerConfig) setDefaults() {
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = models.DefaultHeartbeatInterval
	}
	if c.WriteAttempts <= 0 {
		c.WriteAttempts = defaultWriteAttempts
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
}

// pendingEdit is the buffered content waiting for the debounce to fire.
type pendingEdit struct {
	name    string
	content string
}

// Controller drives one editing session: it opens a project, selects a
// default file, debounces edits into store writes, and feeds remote
// snapshots through the convergence engine.
type Controller struct {
	client    *Client
	editor    Editor
	engine    *Engine
	config    ControllerConfig
	sessionID string

	mu        stdsync.Mutex
	state     State
	projectID string
	openFile  string
	pending   *pendingEdit
	notSynced map[string]bool
	debounce  *time.Timer
	cancel    context.CancelFunc
	tracker   *PresenceTracker

	wg stdsync.WaitGroup
}

// NewController creates a session controller. The controller is idle until
// OpenProject is called.
func NewController(client *Client, editor Editor, config ControllerConfig) *Controller {
	config.setDefaults()
	c := &Controller{
		client:    client,
		editor:    editor,
		config:    config,
		sessionID: uuid.New().String(),
		state:     StateNoProject,
		notSynced: map[string]bool{},
	}
	c.engine = NewEngine((*controllerSurface)(c))
	return c
}

// controllerSurface adapts the controller to the engine's EditorSurface.
type controllerSurface Controller

func (s *controllerSurface) OpenFile() string {
	c := (*Controller)(s)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openFile
}

func (s *controllerSurface) EditInFlight() bool {
	c := (*Controller)(s)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

func (s *controllerSurface) Refresh(file *models.File) {
	(*Controller)(s).editor.Refresh(file)
}

func (s *controllerSurface) Remove(name string) {
	c := (*Controller)(s)
	c.mu.Lock()
	if c.openFile == name {
		c.openFile = ""
	}
	c.mu.Unlock()
	c.editor.Remove(name)
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns this session's presence id.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// OpenFile returns the name of the file open in the editor.
func (c *Controller) OpenFile() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openFile
}

// Files returns a copy of the converged file table.
func (c *Controller) Files() Snapshot {
	return c.engine.Files()
}

// Synced reports whether the last flush of a file reached the store.
func (c *Controller) Synced(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.notSynced[name]
}

// OpenProject switches the session to a project: tears down the previous
// feed and presence, loads the snapshot, selects the default file and
// starts converging. The default file is index.html when present, else the
// lexicographically first name.
func (c *Controller) OpenProject(ctx context.Context, projectID string) error {
	c.teardown(ctx)

	c.mu.Lock()
	c.state = StateLoading
	c.projectID = projectID
	c.notSynced = map[string]bool{}
	c.mu.Unlock()

	snapshot, err := c.client.ListFiles(ctx, projectID)
	if err != nil {
		c.mu.Lock()
		c.state = StateNoProject
		c.projectID = ""
		c.mu.Unlock()
		return fmt.Errorf("load project: %w", err)
	}

	c.engine.Reset(snapshot)
	defaultFile := DefaultFileName(snapshot)

	c.mu.Lock()
	c.openFile = defaultFile
	c.state = StateActive
	c.mu.Unlock()

	if defaultFile != "" {
		if file := c.engine.Get(defaultFile); file != nil {
			c.editor.Refresh(file)
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	tracker := NewPresenceTracker(c.client, projectID, c.sessionID, c.config.HeartbeatInterval)
	tracker.SetViewing(defaultFile)

	c.mu.Lock()
	c.cancel = cancel
	c.tracker = tracker
	c.mu.Unlock()

	var feed ChangeFeed
	if c.config.UsePolling {
		feed = NewPollingFeed(c.client, projectID, c.config.PollInterval)
	} else {
		feed = NewSSEFeed(c.client, projectID)
	}

	snapshots := make(chan Snapshot, 1)
	c.wg.Add(3)
	go func() {
		defer c.wg.Done()
		if err := feed.Run(runCtx, snapshots); err != nil {
			log.Printf("change feed stopped: %v", err)
		}
	}()
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-runCtx.Done():
				return
			case snapshot := <-snapshots:
				c.engine.Apply(snapshot)
			}
		}
	}()
	go func() {
		defer c.wg.Done()
		tracker.Run(runCtx)
	}()

	return nil
}

// DefaultFileName picks the file a fresh session opens.
func DefaultFileName(snapshot Snapshot) string {
	if _, ok := snapshot["index.html"]; ok {
		return "index.html"
	}
	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return names[0]
}

// SelectFile switches the open file. Any pending edit on the previous file
// is flushed first so nothing is lost on the way out.
func (c *Controller) SelectFile(ctx context.Context, name string) error {
	c.FlushPending(ctx)

	file := c.engine.Get(name)
	if file == nil {
		return fmt.Errorf("no such file: %s", name)
	}

	c.mu.Lock()
	c.openFile = name
	tracker := c.tracker
	c.mu.Unlock()

	c.editor.Refresh(file)
	if tracker != nil {
		tracker.SetViewing(name)
	}
	return nil
}

// Edit records a keystroke-level change to the open file and (re)arms the
// debounce timer. Edits observed while the engine is applying a remote
// snapshot are the engine's own refreshes echoing back and are dropped.
func (c *Controller) Edit(content string) {
	if c.engine.Converging() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive || c.openFile == "" {
		return
	}

	c.pending = &pendingEdit{name: c.openFile, content: content}

	if c.debounce != nil {
		c.debounce.Reset(c.config.Debounce)
		return
	}
	c.debounce = time.AfterFunc(c.config.Debounce, func() {
		c.FlushPending(context.Background())
	})
}

// FlushPending writes the buffered edit now, if there is one.
func (c *Controller) FlushPending(ctx context.Context) {
	c.mu.Lock()
	edit := c.pending
	c.pending = nil
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
	c.mu.Unlock()

	if edit == nil {
		return
	}
	c.write(ctx, edit)
}

// write pushes one edit to the store with bounded retries. On exhaustion
// the file is marked not-synced and the content is re-queued so the next
// debounce fire tries again.
func (c *Controller) write(ctx context.Context, edit *pendingEdit) {
	file := &models.File{
		Name:         edit.name,
		Content:      edit.content,
		Type:         models.FileTypeFor(edit.name),
		LastModified: models.NowMillis(),
	}

	backoff := NewBackoff()
	var lastErr error
	for attempt := 0; attempt < c.config.WriteAttempts; attempt++ {
		stored, err := c.client.PutFile(ctx, c.projectIDLocked(), file)
		if err == nil {
			c.engine.Commit(stored)
			c.mu.Lock()
			delete(c.notSynced, edit.name)
			c.mu.Unlock()
			return
		}
		lastErr = err
		if !errors.Is(err, ErrStoreUnavailable) {
			break
		}
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			attempt = c.config.WriteAttempts
		case <-time.After(backoff.Next()):
		}
	}

	log.Printf("write %s failed: %v", edit.name, lastErr)
	c.mu.Lock()
	c.notSynced[edit.name] = true
	// Keep the content so a later edit or flush can carry it out
	if c.pending == nil && c.openFile == edit.name {
		c.pending = edit
	}
	c.mu.Unlock()
}

func (c *Controller) projectIDLocked() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectID
}

// CreateFile writes a new empty record and opens it.
func (c *Controller) CreateFile(ctx context.Context, name string) error {
	file := models.NewFile(name, "", "")
	stored, err := c.client.PutFile(ctx, c.projectIDLocked(), file)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	c.engine.Commit(stored)
	return c.SelectFile(ctx, name)
}

// DeleteFile removes a record from the store and the local table.
func (c *Controller) DeleteFile(ctx context.Context, name string) error {
	if err := c.client.DeleteFile(ctx, c.projectIDLocked(), name); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	c.engine.Drop(name)

	c.mu.Lock()
	if c.openFile == name {
		c.openFile = ""
		c.pending = nil
	}
	c.mu.Unlock()
	c.editor.Remove(name)
	return nil
}

// Close flushes pending work, releases presence and stops the feed.
func (c *Controller) Close(ctx context.Context) {
	c.FlushPending(ctx)
	c.teardown(ctx)

	c.mu.Lock()
	c.state = StateNoProject
	c.projectID = ""
	c.openFile = ""
	c.mu.Unlock()
}

// teardown stops the running feed and presence tracker, if any.
func (c *Controller) teardown(ctx context.Context) {
	c.mu.Lock()
	cancel := c.cancel
	tracker := c.tracker
	c.cancel = nil
	c.tracker = nil
	c.mu.Unlock()

	if tracker != nil {
		tracker.Release(ctx)
	}
	if cancel != nil {
		cancel()
		c.wg.Wait()
	}
}
