package sync

import (
	stdsync "sync"
	"sync/atomic"

	"github.com/pairpad/pairpad/internal/models"
)

// EditorSurface is the engine's view of the editor. Implementations own
// caret preservation: Refresh replaces the buffer for the open file and
// must restore the caret as close as content drift allows.
type EditorSurface interface {
	// OpenFile returns the name of the file open in the editor, or "".
	OpenFile() string
	// EditInFlight reports whether an unsaved local edit exists (dirty
	// buffer or a pending debounced write).
	EditInFlight() bool
	// Refresh replaces the open file's buffer with adopted remote content.
	Refresh(file *models.File)
	// Remove tells the surface a file vanished from the table.
	Remove(name string)
}

// Engine converges a local file table with remote snapshots by
// last-write-wins merge. It owns the local table; the session reads it
// through Files and records its own writes through Commit.
type Engine struct {
	mu      stdsync.Mutex
	surface EditorSurface
	files   Snapshot

	converging atomic.Bool
}

// NewEngine creates an engine bound to an editor surface.
func NewEngine(surface EditorSurface) *Engine {
	return &Engine{
		surface: surface,
		files:   Snapshot{},
	}
}

// Converging reports whether an Apply is in progress. Edit handlers check
// this so that a feed-driven refresh never schedules a write of its own.
func (e *Engine) Converging() bool {
	return e.converging.Load()
}

// Files returns a copy of the local file table.
func (e *Engine) Files() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(Snapshot, len(e.files))
	for name, file := range e.files {
		out[name] = file
	}
	return out
}

// Get returns the local record for a name, or nil.
func (e *Engine) Get(name string) *models.File {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.files[name]
}

// Commit records a local write in the table without touching the editor.
// Called after the store accepted the write so a later echo of it merges
// as a no-op.
func (e *Engine) Commit(file *models.File) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.files[file.Name] = file
}

// Drop records a local delete in the table.
func (e *Engine) Drop(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.files, name)
}

// Reset replaces the whole table, for session start.
func (e *Engine) Reset(snapshot Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.files = make(Snapshot, len(snapshot))
	for name, file := range snapshot {
		e.files[name] = file
	}
}

// Apply merges one remote snapshot into the local table. Per record:
// remote wins on a strictly newer timestamp and on ties; local wins on a
// strictly older one. The open file is never clobbered while an edit is in
// flight - the pending write carries a newer stamp and wins the next
// round. Names absent from the remote snapshot are deleted locally. All
// surface calls happen inside the converging scope.
func (e *Engine) Apply(remote Snapshot) (adopted, removed []string) {
	e.converging.Store(true)
	defer e.converging.Store(false)

	openFile := e.surface.OpenFile()
	editing := e.surface.EditInFlight()

	e.mu.Lock()

	var refresh []*models.File
	for name, remoteFile := range remote {
		local, ok := e.files[name]
		if ok {
			if local.NewerThan(remoteFile) {
				continue
			}
			if local.LastModified == remoteFile.LastModified && local.Content == remoteFile.Content {
				// Echo of a write already in the table
				continue
			}
		}
		if name == openFile && editing {
			continue
		}
		e.files[name] = remoteFile
		adopted = append(adopted, name)
		if name == openFile {
			refresh = append(refresh, remoteFile)
		}
	}

	for name := range e.files {
		if _, ok := remote[name]; ok {
			continue
		}
		if name == openFile && editing {
			continue
		}
		delete(e.files, name)
		removed = append(removed, name)
	}

	e.mu.Unlock()

	for _, file := range refresh {
		e.surface.Refresh(file)
	}
	for _, name := range removed {
		e.surface.Remove(name)
	}

	return adopted, removed
}
