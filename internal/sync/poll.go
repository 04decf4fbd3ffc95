package sync

import (
	"context"
	"errors"
	"log"
	"time"
)

// DefaultPollInterval is how often the polling feed re-reads the file table.
const DefaultPollInterval = 5 * time.Second

// PollingFeed implements ChangeFeed by re-reading the full snapshot on a
// fixed interval. It is the fallback when the push stream is unavailable.
type PollingFeed struct {
	client    *Client
	projectID string
	interval  time.Duration
}

// NewPollingFeed creates a polling feed for one project.
func NewPollingFeed(client *Client, projectID string, interval time.Duration) *PollingFeed {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PollingFeed{
		client:    client,
		projectID: projectID,
		interval:  interval,
	}
}

// Run polls until the context is canceled. Transient store errors are
// logged and skipped; the next tick tries again.
func (f *PollingFeed) Run(ctx context.Context, out chan<- Snapshot) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	f.poll(ctx, out)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			f.poll(ctx, out)
		}
	}
}

func (f *PollingFeed) poll(ctx context.Context, out chan<- Snapshot) {
	snapshot, err := f.client.ListFiles(ctx, f.projectID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Printf("polling feed: %v", err)
		}
		return
	}
	select {
	case out <- snapshot:
	case <-ctx.Done():
	}
}
