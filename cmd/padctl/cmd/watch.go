package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pairpad/pairpad/internal/sync"
)

var (
	watchProject  string
	watchPoll     bool
	watchPresence bool
)

// watchCmd streams a project's change feed and prints snapshot diffs.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a project's change feed live",
	Long: `Subscribe to a project's change feed and print what changed with
each snapshot. Uses the push stream by default; --poll switches to the
5-second polling feed.

Example:
  padctl watch --project <id>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, state, err := newClient()
		if err != nil {
			return err
		}
		if err := requireToken(client); err != nil {
			return err
		}
		projectID, err := resolveProject(watchProject, state)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var feed sync.ChangeFeed
		if watchPoll {
			feed = sync.NewPollingFeed(client, projectID, 0)
		} else {
			feed = sync.NewSSEFeed(client, projectID)
		}

		snapshots := make(chan sync.Snapshot, 1)
		g, gCtx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return feed.Run(gCtx, snapshots)
		})
		g.Go(func() error {
			printDiffs(gCtx, snapshots)
			return nil
		})
		if watchPresence {
			g.Go(func() error {
				printPresence(gCtx, client, projectID)
				return nil
			})
		}

		fmt.Printf("Watching project %s (ctrl-c to stop)...\n", projectID)
		return g.Wait()
	},
}

// printDiffs prints what changed between consecutive snapshots.
func printDiffs(ctx context.Context, snapshots <-chan sync.Snapshot) {
	var previous sync.Snapshot
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot := <-snapshots:
			now := time.Now().Format("15:04:05")
			if previous == nil {
				names := make([]string, 0, len(snapshot))
				for name := range snapshot {
					names = append(names, name)
				}
				sort.Strings(names)
				fmt.Printf("[%s] snapshot: %d file(s)\n", now, len(names))
				for _, name := range names {
					fmt.Printf("  %s (%d bytes)\n", name, len(snapshot[name].Content))
				}
				previous = snapshot
				continue
			}

			for name, file := range snapshot {
				old, ok := previous[name]
				switch {
				case !ok:
					fmt.Printf("[%s] + %s (%d bytes, by %s)\n", now, name, len(file.Content), file.ModifiedBy)
				case old.LastModified != file.LastModified || old.Content != file.Content:
					fmt.Printf("[%s] ~ %s (%d bytes, by %s)\n", now, name, len(file.Content), file.ModifiedBy)
				}
			}
			for name := range previous {
				if _, ok := snapshot[name]; !ok {
					fmt.Printf("[%s] - %s\n", now, name)
				}
			}
			previous = snapshot
		}
	}
}

// printPresence polls the active set and prints joins and leaves.
func printPresence(ctx context.Context, client *sync.Client, projectID string) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	seen := map[string]string{}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			entries, err := client.ActivePresence(ctx, projectID)
			if err != nil {
				printVerbose("presence: %v", err)
				continue
			}
			now := time.Now().Format("15:04:05")
			current := map[string]string{}
			for _, entry := range entries {
				current[entry.SessionID] = entry.Username
				if _, ok := seen[entry.SessionID]; !ok {
					fmt.Printf("[%s] * %s joined (viewing %s)\n", now, entry.Username, entry.ViewingFile)
				}
			}
			for sessionID, username := range seen {
				if _, ok := current[sessionID]; !ok {
					fmt.Printf("[%s] * %s left\n", now, username)
				}
			}
			seen = current
		}
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchProject, "project", "p", "", "project id (default: last used)")
	watchCmd.Flags().BoolVar(&watchPoll, "poll", false, "use the polling feed instead of the push stream")
	watchCmd.Flags().BoolVar(&watchPresence, "presence", false, "also print presence joins and leaves")
}
