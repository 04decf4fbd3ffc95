package sync

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SSEFeed implements ChangeFeed over the server's push stream. Lost
// connections are re-established with exponential backoff; every successful
// connection starts with a fresh full snapshot, so nothing is missed across
// a gap.
type SSEFeed struct {
	client    *Client
	projectID string
	backoff   *Backoff
}

// NewSSEFeed creates a push feed for one project.
func NewSSEFeed(client *Client, projectID string) *SSEFeed {
	return &SSEFeed{
		client:    client,
		projectID: projectID,
		backoff:   NewBackoff(),
	}
}

// Run streams until the context is canceled, reconnecting on failure.
func (f *SSEFeed) Run(ctx context.Context, out chan<- Snapshot) error {
	for {
		err := f.stream(ctx, out)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("push feed: %v", err)
		}

		delay := f.backoff.Next()
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// stream holds one SSE connection open and forwards snapshot events.
func (f *SSEFeed) stream(ctx context.Context, out chan<- Snapshot) error {
	endpoint := f.client.BaseURL() + "/api/v1/projects/" + url.PathEscape(f.projectID) + "/files/watch"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+f.client.Token())

	// A plain transport without the client timeout: the stream is long-lived.
	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: "watch stream rejected"}
	}

	f.backoff.Reset()

	var event, data string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			// Dispatch on blank line per the SSE framing
			if event == "snapshot" && data != "" {
				var snapshot Snapshot
				if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
					log.Printf("push feed: bad snapshot payload: %v", err)
				} else {
					if snapshot == nil {
						snapshot = Snapshot{}
					}
					select {
					case out <- snapshot:
					case <-ctx.Done():
						return nil
					}
				}
			}
			event, data = "", ""
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case strings.HasPrefix(line, ":"):
			// keepalive comment
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
