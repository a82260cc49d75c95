package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func leaderboardCmd() *cobra.Command {
	var tourID string
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the leaderboard for a tour or across all tours",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLeaderboard(cmd, tourID, limit)
		},
	}
	cmd.Flags().StringVar(&tourID, "tour", "", "Tour id (default: all tours)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows to print, 0 for all")
	return cmd
}

func runLeaderboard(cmd *cobra.Command, tourID string, limit int) error {
	ctx := context.Background()

	s, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	board, err := s.engine(cmd.ErrOrStderr()).Leaderboard(ctx, tourID)
	if err != nil {
		return err
	}
	if len(board.Entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No scores yet.")
		return nil
	}

	entries := board.Entries
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tUSER\tPOINTS\tREACHED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", e.Rank, e.UserID, e.TotalPoints, e.ReachedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}
