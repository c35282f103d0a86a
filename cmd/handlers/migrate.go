package handlers

import (
	"fmt"

	"github.com/spf13/cobra"

	"ownnews/internal/config"
)

// NewMigrateCmd creates the schema migration command
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long: `Create the pgvector extension and all tables if they do not exist.
Statements are idempotent, so re-running is safe.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd)
		},
	}
	return cmd
}

func runMigrate(cmd *cobra.Command) error {
	cfg := config.Get()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Println("Schema is up to date.")
	return nil
}
