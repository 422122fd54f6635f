package cmd

import (
	"github.com/spf13/cobra"
)

// Version is set from main via ldflags at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "notely",
	Short: "Notely - Multi-tenant note-taking backend",
	Long: `Notely is a multi-tenant note-taking backend with per-user
note ownership and an admin namespace spanning all users.

Examples:
  # Start the API server
  notely serve

  # Start on a specific port
  notely serve --port 9000

  # Create an admin account interactively
  notely create-admin admin@example.com

  # Print the version
  notely version`,
}

func Execute() error {
	return rootCmd.Execute()
}
