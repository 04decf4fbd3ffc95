package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pairpad/pairpad/internal/models"
)

var (
	fileProject string
	filePutFrom string
)

// fileCmd represents the file command group
var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "File commands",
	Long: `Commands for reading and writing project files.

Examples:
  # List files in the current project
  padctl file list

  # Print a file
  padctl file get index.html

  # Write a file from a local path (or stdin with -)
  padctl file put index.html --from ./index.html`,
}

var fileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List files in a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, state, err := newClient()
		if err != nil {
			return err
		}
		if err := requireToken(client); err != nil {
			return err
		}
		projectID, err := resolveProject(fileProject, state)
		if err != nil {
			return err
		}

		snapshot, err := client.ListFiles(context.Background(), projectID)
		if err != nil {
			return fmt.Errorf("list files: %w", err)
		}

		if len(snapshot) == 0 {
			fmt.Println("No files found.")
			return nil
		}

		names := make([]string, 0, len(snapshot))
		for name := range snapshot {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Printf("\n%-28s  %-12s  %-8s  %-20s  %s\n", "NAME", "TYPE", "SIZE", "MODIFIED", "BY")
		fmt.Println(strings.Repeat("-", 90))
		for _, name := range names {
			file := snapshot[name]
			modified := time.UnixMilli(file.LastModified).Format("2006-01-02 15:04:05")
			fmt.Printf("%-28s  %-12s  %-8d  %-20s  %s\n",
				file.Name, file.Type, len(file.Content), modified, file.ModifiedBy)
		}
		fmt.Printf("\nTotal: %d file(s)\n", len(names))
		return nil
	},
}

var fileGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print a file's content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, state, err := newClient()
		if err != nil {
			return err
		}
		if err := requireToken(client); err != nil {
			return err
		}
		projectID, err := resolveProject(fileProject, state)
		if err != nil {
			return err
		}

		file, err := client.GetFile(context.Background(), projectID, args[0])
		if err != nil {
			return fmt.Errorf("get file: %w", err)
		}

		fmt.Print(file.Content)
		if !strings.HasSuffix(file.Content, "\n") {
			fmt.Println()
		}
		return nil
	},
}

var filePutCmd = &cobra.Command{
	Use:   "put <name>",
	Short: "Write a file from a local path or stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, state, err := newClient()
		if err != nil {
			return err
		}
		if err := requireToken(client); err != nil {
			return err
		}
		projectID, err := resolveProject(fileProject, state)
		if err != nil {
			return err
		}

		var content []byte
		if filePutFrom == "" || filePutFrom == "-" {
			content, err = io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
		} else {
			content, err = os.ReadFile(filePutFrom)
			if err != nil {
				return fmt.Errorf("read %s: %w", filePutFrom, err)
			}
		}

		name := args[0]
		stored, err := client.PutFile(context.Background(), projectID, &models.File{
			Name:         name,
			Content:      string(content),
			Type:         models.FileTypeFor(name),
			LastModified: models.NowMillis(),
		})
		if err != nil {
			return fmt.Errorf("put file: %w", err)
		}

		printVerbose("stored %s (%d bytes, stamp %d)", stored.Name, len(stored.Content), stored.LastModified)
		fmt.Printf("Wrote %s.\n", stored.Name)
		return nil
	},
}

var fileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, state, err := newClient()
		if err != nil {
			return err
		}
		if err := requireToken(client); err != nil {
			return err
		}
		projectID, err := resolveProject(fileProject, state)
		if err != nil {
			return err
		}

		if err := client.DeleteFile(context.Background(), projectID, args[0]); err != nil {
			return fmt.Errorf("delete file: %w", err)
		}
		fmt.Printf("Deleted %s.\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fileCmd)
	fileCmd.AddCommand(fileListCmd)
	fileCmd.AddCommand(fileGetCmd)
	fileCmd.AddCommand(filePutCmd)
	fileCmd.AddCommand(fileDeleteCmd)

	fileCmd.PersistentFlags().StringVarP(&fileProject, "project", "p", "", "project id (default: last used)")
	filePutCmd.Flags().StringVar(&filePutFrom, "from", "", "local file to upload (default: stdin)")
}
