package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "vrquestctl",
		Short:        "Operate the VRQuest progression engine",
		SilenceUsage: true,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.AddCommand(migrateCmd())
	root.AddCommand(importCatalogCmd())
	root.AddCommand(leaderboardCmd())
	root.AddCommand(summaryCmd())
	root.AddCommand(tokenCmd())
	root.AddCommand(mcpCmd())
	root.AddCommand(versionCmd())
	return root
}
