// Package cmd contains the CLI commands for padctl.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pairpad/pairpad/internal/sync"
)

var (
	serverURL string
	verbose   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "padctl",
	Short: "padctl - PairPad command-line client",
	Long: `padctl talks to a PairPad server: manage projects, read and write
files, and watch a project's change feed live.

Examples:
  # Log in and remember the session
  padctl login alice

  # Create a project (seeded with index.html, styles.css, script.js)
  padctl project create "My Site"

  # Watch the change feed
  padctl watch --project <id>`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "server base URL (default from saved session, else http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// newClient builds a client from the saved session and flags. Commands that
// need authentication call requireToken afterwards.
func newClient() (*sync.Client, *sessionState, error) {
	state, err := loadSession()
	if err != nil {
		return nil, nil, err
	}

	base := serverURL
	if base == "" {
		base = state.Server
	}
	if base == "" {
		base = "http://127.0.0.1:8080"
	}

	client := sync.NewClient(base, nil)
	client.SetToken(state.Token)
	return client, state, nil
}

func requireToken(client *sync.Client) error {
	if client.Token() == "" {
		return fmt.Errorf("not logged in; run 'padctl login <username>' first")
	}
	return nil
}

// resolveProject picks the project id from the flag or the saved session.
func resolveProject(flagValue string, state *sessionState) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if state.LastProject != "" {
		return state.LastProject, nil
	}
	return "", fmt.Errorf("no project selected; pass --project or run 'padctl project use <id>'")
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}
