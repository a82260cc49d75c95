package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/playperu/vrquest/internal/config"
	"github.com/playperu/vrquest/internal/database"
	"github.com/playperu/vrquest/internal/migrations"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQLite schema migrations",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadStorage()
	if err != nil {
		return err
	}
	db, err := database.Open(ctx, cfg.DBDriver, cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := migrations.Run(ctx, db)
	if err != nil {
		return err
	}
	v, err := migrations.Version(ctx, db)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s), schema at version %d\n", len(applied), v)
	return nil
}
