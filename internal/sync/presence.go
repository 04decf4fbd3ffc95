package sync

import (
	"context"
	"errors"
	"log"
	stdsync "sync"
	"time"

	"github.com/pairpad/pairpad/internal/models"
)

// PresenceTracker keeps one session's presence record alive with periodic
// heartbeats. The liveness window on the read side is the only guaranteed
// offline mechanism; Release just shortens the goodbye.
type PresenceTracker struct {
	client    *Client
	projectID string
	sessionID string
	interval  time.Duration

	mu          stdsync.Mutex
	viewingFile string

	kick chan struct{}
}

// NewPresenceTracker creates a tracker for one (project, session) pair.
func NewPresenceTracker(client *Client, projectID, sessionID string, interval time.Duration) *PresenceTracker {
	if interval <= 0 {
		interval = models.DefaultHeartbeatInterval
	}
	return &PresenceTracker{
		client:    client,
		projectID: projectID,
		sessionID: sessionID,
		interval:  interval,
		kick:      make(chan struct{}, 1),
	}
}

// SetViewing updates the viewed file and triggers an immediate heartbeat so
// collaborators see the move without waiting out the interval.
func (t *PresenceTracker) SetViewing(name string) {
	t.mu.Lock()
	t.viewingFile = name
	t.mu.Unlock()

	select {
	case t.kick <- struct{}{}:
	default:
	}
}

// Run sends heartbeats until the context is canceled. Failed heartbeats are
// logged and retried on the next tick; a dead tracker simply ages out of
// the liveness window.
func (t *PresenceTracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.beat(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.kick:
			t.beat(ctx)
		case <-ticker.C:
			t.beat(ctx)
		}
	}
}

func (t *PresenceTracker) beat(ctx context.Context) {
	t.mu.Lock()
	viewing := t.viewingFile
	t.mu.Unlock()

	if err := t.client.Heartbeat(ctx, t.projectID, t.sessionID, viewing); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Printf("heartbeat: %v", err)
		}
	}
}

// Release deletes the presence record. Best-effort: errors are logged, not
// returned, because window expiry cleans up regardless.
func (t *PresenceTracker) Release(ctx context.Context) {
	if err := t.client.ReleasePresence(ctx, t.projectID, t.sessionID); err != nil {
		log.Printf("presence release: %v", err)
	}
}
