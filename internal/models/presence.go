package models

import (
	"time"
)

// DefaultLivenessWindow is how long a presence entry stays active after its
// last heartbeat. Roughly 1-2 missed heartbeats are tolerated.
const DefaultLivenessWindow = 10 * time.Second

// DefaultHeartbeatInterval is the presence refresh cadence.
const DefaultHeartbeatInterval = 5 * time.Second

// Presence is one ephemeral per-session liveness record. Presence is
// advisory only; it carries no correctness obligation for file state.
type Presence struct {
	SessionID   string `json:"sessionId"`
	Username    string `json:"username"`
	ViewingFile string `json:"viewingFile,omitempty"`
	LastSeen    int64  `json:"lastSeen"`
}

// Active reports whether the entry is fresh at the given instant.
func (p *Presence) Active(now time.Time, window time.Duration) bool {
	return now.UnixMilli()-p.LastSeen < window.Milliseconds()
}
