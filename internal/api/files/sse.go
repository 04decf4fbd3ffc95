package files

import (
	"fmt"
	"net/http"
)

// SSEWriter frames Server-Sent Events for the watch endpoints. Payloads
// arrive as the hub's marshaled JSON; framing only adds the event name.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer. The caller must have confirmed
// that w implements http.Flusher.
func NewSSEWriter(w http.ResponseWriter, flusher http.Flusher) *SSEWriter {
	return &SSEWriter{
		w:       w,
		flusher: flusher,
	}
}

// Start writes the event-stream headers and commits the response.
// X-Accel-Buffering disables proxy buffering that would hold events back.
func (s *SSEWriter) Start() {
	s.w.Header().Set("Content-Type", "text/event-stream")
	s.w.Header().Set("Cache-Control", "no-cache")
	s.w.Header().Set("Connection", "keep-alive")
	s.w.Header().Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.flusher.Flush()
}

// SendEvent sends one named event carrying the payload.
func (s *SSEWriter) SendEvent(event string, payload []byte) error {
	_, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload)
	if err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// SendComment sends a comment (ignored by clients, useful for keepalive).
func (s *SSEWriter) SendComment(comment string) error {
	_, err := fmt.Fprintf(s.w, ": %s\n\n", comment)
	if err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
