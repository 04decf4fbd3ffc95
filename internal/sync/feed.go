package sync

import (
	"context"

	"github.com/pairpad/pairpad/internal/models"
)

// Snapshot is the full file table of a project keyed by file name.
type Snapshot = map[string]*models.File

// ChangeFeed delivers file table snapshots for one project. Consumers see
// the same contract whether snapshots arrive by polling or by push: a
// snapshot soon after Run starts, then one per observed change. Feeds
// deliver the writer's own writes back too; suppressing self-echoes is the
// convergence engine's job.
type ChangeFeed interface {
	// Run blocks, delivering snapshots to out until ctx is canceled. It
	// never closes out. A nil return means the context ended the feed.
	Run(ctx context.Context, out chan<- Snapshot) error
}
