package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var projectDescription string

// projectCmd represents the project command group
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project management commands",
	Long: `Commands for managing PairPad projects.

Examples:
  # Create a project
  padctl project create "My Site"

  # List your projects
  padctl project list

  # Share with a collaborator
  padctl project share <id> bob`,
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a project seeded with starter files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, state, err := newClient()
		if err != nil {
			return err
		}
		if err := requireToken(client); err != nil {
			return err
		}

		project, err := client.CreateProject(context.Background(), args[0], projectDescription)
		if err != nil {
			return fmt.Errorf("create project: %w", err)
		}

		state.LastProject = project.ID
		if err := saveSession(state); err != nil {
			return err
		}

		fmt.Printf("Created project %q.\n", project.Name)
		fmt.Printf("  ID:      %s\n", project.ID)
		fmt.Printf("  Preview: %s/view/%s\n", client.BaseURL(), project.ID)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List owned and shared projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}
		if err := requireToken(client); err != nil {
			return err
		}

		summaries, err := client.ListProjects(context.Background())
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}

		if len(summaries) == 0 {
			fmt.Println("No projects found.")
			return nil
		}

		fmt.Printf("\n%-36s  %-24s  %-16s  %s\n", "ID", "NAME", "OWNER", "ACCESS")
		fmt.Println(strings.Repeat("-", 90))
		for _, summary := range summaries {
			access := "shared"
			if summary.IsOwner {
				access = "owner"
			}
			fmt.Printf("%-36s  %-24s  %-16s  %s\n", summary.ID, summary.Name, summary.Owner, access)
		}
		fmt.Printf("\nTotal: %d project(s)\n", len(summaries))
		return nil
	},
}

var projectUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Set the default project for file and watch commands",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, state, err := newClient()
		if err != nil {
			return err
		}
		if err := requireToken(client); err != nil {
			return err
		}

		project, err := client.GetProject(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("get project: %w", err)
		}

		state.LastProject = project.ID
		if err := saveSession(state); err != nil {
			return err
		}
		fmt.Printf("Using project %q (%s).\n", project.Name, project.ID)
		return nil
	},
}

var projectShareCmd = &cobra.Command{
	Use:   "share <id> <username>",
	Short: "Grant a user access to a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}
		if err := requireToken(client); err != nil {
			return err
		}

		if err := client.ShareProject(context.Background(), args[0], args[1]); err != nil {
			return fmt.Errorf("share project: %w", err)
		}
		fmt.Printf("Shared with %s.\n", args[1])
		return nil
	},
}

var projectUnshareCmd = &cobra.Command{
	Use:   "unshare <id> <username>",
	Short: "Revoke a user's access to a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}
		if err := requireToken(client); err != nil {
			return err
		}

		if err := client.UnshareProject(context.Background(), args[0], args[1]); err != nil {
			return fmt.Errorf("unshare project: %w", err)
		}
		fmt.Printf("Revoked access for %s.\n", args[1])
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a project and all its files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, state, err := newClient()
		if err != nil {
			return err
		}
		if err := requireToken(client); err != nil {
			return err
		}

		if err := client.DeleteProject(context.Background(), args[0]); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		if state.LastProject == args[0] {
			state.LastProject = ""
			if err := saveSession(state); err != nil {
				return err
			}
		}
		fmt.Println("Project deleted.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectUseCmd)
	projectCmd.AddCommand(projectShareCmd)
	projectCmd.AddCommand(projectUnshareCmd)
	projectCmd.AddCommand(projectDeleteCmd)

	projectCreateCmd.Flags().StringVar(&projectDescription, "description", "", "project description")
}
