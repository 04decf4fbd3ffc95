package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var registerDisplayName string

// loginCmd authenticates against the server and saves the session.
var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in to a PairPad server",
	Long: `Log in and save the session token for later commands.

The password is prompted interactively so it never lands in shell history.

Example:
  padctl login alice --server http://pad.example.com:8080`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, state, err := newClient()
		if err != nil {
			return err
		}

		password, err := promptPassword("Password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		session, err := client.Login(context.Background(), args[0], password)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}

		state.Server = client.BaseURL()
		state.Username = session.User.Username
		state.Token = session.AccessToken
		if err := saveSession(state); err != nil {
			return err
		}

		fmt.Printf("Logged in as %s.\n", session.User.Username)
		return nil
	},
}

// registerCmd creates an account and saves the session.
var registerCmd = &cobra.Command{
	Use:   "register <username>",
	Short: "Create an account on a PairPad server",
	Long: `Create an account and log in.

Passwords need at least 8 characters with a letter and a digit.

Example:
  padctl register alice --display-name "Alice"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, state, err := newClient()
		if err != nil {
			return err
		}

		password, err := promptPassword("Password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("read password confirmation: %w", err)
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}

		session, err := client.Register(context.Background(), args[0], password, registerDisplayName)
		if err != nil {
			return fmt.Errorf("register: %w", err)
		}

		state.Server = client.BaseURL()
		state.Username = session.User.Username
		state.Token = session.AccessToken
		if err := saveSession(state); err != nil {
			return err
		}

		fmt.Printf("Registered and logged in as %s.\n", session.User.Username)
		return nil
	},
}

// logoutCmd forgets the saved session.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := loadSession()
		if err != nil {
			return err
		}
		state.Token = ""
		state.Username = ""
		if err := saveSession(state); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)

	registerCmd.Flags().StringVar(&registerDisplayName, "display-name", "", "display name shown to collaborators")
}

// promptPassword prompts for a password without echoing to the terminal.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)

	fd := syscall.Stdin
	if term.IsTerminal(fd) {
		passwordBytes, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(passwordBytes), nil
	}

	// Fallback for non-terminal input (e.g., piped input)
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(password), nil
}
