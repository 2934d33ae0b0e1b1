package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/emilythestrangee/subreddit/backend/internal/database"
)

func runMigrate(cmd *cobra.Command, _ []string) error {
	if cfg.Database.Driver == "memory" {
		return fmt.Errorf("nothing to migrate for the memory store")
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	slog.Info("schema up to date", "driver", cfg.Database.Driver)
	return nil
}
