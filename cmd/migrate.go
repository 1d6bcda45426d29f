package cmd

import (
	"fmt"

	"mailwatch/core/config"
	"mailwatch/core/database"
	"mailwatch/core/logger"
	"mailwatch/feature/registry"

	"github.com/spf13/cobra"
)

// migrateCmd creates or updates the mirror schema.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the mirror database schema",
	RunE:  runMigrate,
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := registry.NewStore(db).AutoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	l.Info("mirror schema is up to date")
	return nil
}
