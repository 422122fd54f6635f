package cmd

import (
	"fmt"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/notely-dev/notely/internal/config"
	"github.com/notely-dev/notely/internal/db"
	"github.com/notely-dev/notely/internal/logger"
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin <email>",
	Short: "Create an admin account",
	Long: `Create an admin account in the configured database.

The password is read interactively from the terminal so it never
appears in shell history.

Examples:
  notely create-admin admin@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runCreateAdmin,
}

func init() {
	rootCmd.AddCommand(createAdminCmd)
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	email := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Init(cfg.Log.Format, cfg.Log.Level)

	database, err := db.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run migrations to ensure tables exist
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	password, err := readPassword()
	if err != nil {
		return err
	}

	user, err := db.CreateAdmin(database, email, password)
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	fmt.Printf("Admin user created successfully\n")
	fmt.Printf("ID: %s\n", user.ID)
	fmt.Printf("Email: %s\n", user.Email)
	return nil
}

func readPassword() (string, error) {
	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	pw := strings.TrimSpace(string(password))
	if pw == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	if pw != strings.TrimSpace(string(confirm)) {
		return "", fmt.Errorf("passwords do not match")
	}
	return pw, nil
}
