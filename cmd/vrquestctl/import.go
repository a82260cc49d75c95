package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/playperu/vrquest/internal/catalog"
)

func importCatalogCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import-catalog <file.yaml>",
		Short: "Validate a YAML tour catalog and load it into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportCatalog(cmd, args[0], dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only validate the file")
	return cmd
}

func runImportCatalog(cmd *cobra.Command, path string, dryRun bool) error {
	ctx := context.Background()

	src, err := catalog.LoadFile(path)
	if err != nil {
		return err
	}
	if dryRun {
		tours, _ := src.ListTours(ctx)
		fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d tour(s)\n", path, len(tours))
		return nil
	}

	s, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := catalog.Import(ctx, src, s.sqlStore)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d tour(s), %d scene(s), %d poi(s)\n", stats.Tours, stats.Scenes, stats.POIs)
	return nil
}
