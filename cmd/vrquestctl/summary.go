package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/playperu/vrquest/internal/quest"
)

func summaryCmd() *cobra.Command {
	var userID, tourID string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print one user's progress on a tour",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("user", userID); err != nil {
				return err
			}
			if err := requireFlag("tour", tourID); err != nil {
				return err
			}
			return runSummary(cmd, userID, tourID)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id")
	cmd.Flags().StringVar(&tourID, "tour", "", "Tour id")
	return cmd
}

func runSummary(cmd *cobra.Command, userID, tourID string) error {
	ctx := context.Background()

	s, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	sum, err := s.engine(cmd.ErrOrStderr()).ProgressSummary(ctx, quest.Actor{UserID: userID}, tourID)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "user:       %s\n", sum.UserID)
	fmt.Fprintf(cmd.OutOrStdout(), "tour:       %s\n", sum.TourID)
	fmt.Fprintf(cmd.OutOrStdout(), "completion: %.2f%%\n", sum.Completion)
	fmt.Fprintf(cmd.OutOrStdout(), "points:     %d on this tour, %d overall\n", sum.TourPoints, sum.TotalPoints)
	fmt.Fprintf(cmd.OutOrStdout(), "visited:    %s\n", strings.Join(sum.VisitedScenes, ", "))
	fmt.Fprintf(cmd.OutOrStdout(), "resolved:   %s\n", strings.Join(sum.ResolvedPOIs, ", "))

	kinds := make([]string, 0, len(sum.ByKind))
	for k := range sum.ByKind {
		kinds = append(kinds, string(k))
	}
	slices.Sort(kinds)
	for _, k := range kinds {
		kp := sum.ByKind[quest.Kind(k)]
		fmt.Fprintf(cmd.OutOrStdout(), "  %-11s %d/%d\n", k, kp.Resolved, kp.Total)
	}
	return nil
}
