package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PurificacionDomenech/Tranding-Control-Automatizado/pkg/database"
)

// migrateCmd applies the embedded schema migrations
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Apply the embedded PostgreSQL migrations.

The sqlite backend creates its schema when the file is opened, and the
memory backend needs none.

Example:
  go run ./cmd/journal migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Storage.Backend != "postgres" {
		PrintInfo(fmt.Sprintf("Storage backend %q needs no migrations", cfg.Storage.Backend))
		return nil
	}

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	applied, err := db.Migrate(context.Background())
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	log.WithField("migrations", applied).Info("Migrations applied")
	PrintSuccess(fmt.Sprintf("%d migration(s) applied", len(applied)))
	PrintList(applied)
	return nil
}
