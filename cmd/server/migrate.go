package main

import (
	"github.com/spf13/cobra"

	"rentiful/server/internal/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			db, err := database.NewDatabase(cfg.Database.URL, logger, cfg.Database.SlowQueryThreshold)
			if err != nil {
				fail("database: %v", err)
				return err
			}
			defer db.Close()

			if err := db.RunMigrations(); err != nil {
				fail("migrations: %v", err)
				return err
			}
			success("schema is up to date")
			return nil
		},
	}
}
