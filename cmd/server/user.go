package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/careerbridge/careerbridge-api/internal/security"
	"github.com/careerbridge/careerbridge-api/internal/store"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage API users",
}

var (
	userEmail string
	userName  string
)

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user and print its API token",
	Long:  "Create a user and print a new API token. The token is shown once; only its hash is stored.",
	RunE:  runUserCreate,
}

func init() {
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "user email (required)")
	userCreateCmd.Flags().StringVar(&userName, "name", "", "display name (required)")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("name")

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	quiet()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	return createUser(cmd.Context(), db, userEmail, userName, cmd.OutOrStdout())
}

// createUser registers a user and writes the plaintext token to w.
func createUser(ctx context.Context, db *store.SQLiteStore, email, name string, w io.Writer) error {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || name == "" {
		return fmt.Errorf("--email and --name must not be empty")
	}

	token, err := security.GenerateToken()
	if err != nil {
		return err
	}
	user, err := db.CreateUser(ctx, email, name, security.HashToken(token))
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Created user %d (%s)\n", user.ID, user.Email)
	fmt.Fprintf(w, "API token: %s\n", token)
	fmt.Fprintln(w, "Store it now; it cannot be shown again.")
	return nil
}
