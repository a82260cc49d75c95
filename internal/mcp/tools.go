package mcp

import (
	"context"
	"fmt"
	"slices"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/playperu/vrquest/internal/quest"
)

type ListToursInput struct{}

type TourOutput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	City string `json:"city,omitempty"`
}

type ListToursOutput struct {
	Tours []TourOutput `json:"tours"`
}

type GetProgressSummaryInput struct {
	UserID string `json:"user_id" jsonschema:"user whose progress to read"`
	TourID string `json:"tour_id" jsonschema:"tour id"`
}

type KindOutput struct {
	Kind     string `json:"kind"`
	Resolved int    `json:"resolved"`
	Total    int    `json:"total"`
}

type ProgressSummaryOutput struct {
	UserID        string       `json:"user_id"`
	TourID        string       `json:"tour_id"`
	CurrentScene  string       `json:"current_scene"`
	VisitedScenes []string     `json:"visited_scenes"`
	ResolvedPOIs  []string     `json:"resolved_pois"`
	Completion    float64      `json:"completion"`
	TourPoints    int          `json:"tour_points"`
	TotalPoints   int          `json:"total_points"`
	ByKind        []KindOutput `json:"by_kind"`
}

type GetLeaderboardInput struct {
	TourID string `json:"tour_id,omitempty" jsonschema:"tour id; empty for the global board"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum entries to return"`
}

type StandingOutput struct {
	Rank        int       `json:"rank"`
	UserID      string    `json:"user_id"`
	TotalPoints int       `json:"total_points"`
	ReachedAt   string `json:"reached_at" jsonschema:"RFC 3339 time the total was reached"`
}

type LeaderboardOutput struct {
	TourID      string           `json:"tour_id,omitempty"`
	GeneratedAt string           `json:"generated_at" jsonschema:"RFC 3339 time the board was computed"`
	Entries     []StandingOutput `json:"entries"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_tours",
		Description: "List the active virtual tours",
	}, s.handleListTours)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_progress_summary",
		Description: "Read a user's progress on a tour: scenes visited, POIs resolved, completion and points",
	}, s.handleGetProgressSummary)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_leaderboard",
		Description: "Rank users by points, for one tour or across all tours",
	}, s.handleGetLeaderboard)
}

func (s *Server) handleListTours(ctx context.Context, req *sdk.CallToolRequest, input ListToursInput) (*sdk.CallToolResult, ListToursOutput, error) {
	tours, err := s.reader.ListTours(ctx)
	if err != nil {
		return nil, ListToursOutput{}, err
	}
	out := ListToursOutput{Tours: make([]TourOutput, 0, len(tours))}
	for _, t := range tours {
		out.Tours = append(out.Tours, TourOutput{ID: t.ID, Name: t.Name, City: t.City})
	}
	return nil, out, nil
}

func (s *Server) handleGetProgressSummary(ctx context.Context, req *sdk.CallToolRequest, input GetProgressSummaryInput) (*sdk.CallToolResult, ProgressSummaryOutput, error) {
	if input.UserID == "" {
		return nil, ProgressSummaryOutput{}, fmt.Errorf("user_id is required")
	}
	if input.TourID == "" {
		return nil, ProgressSummaryOutput{}, fmt.Errorf("tour_id is required")
	}

	sum, err := s.reader.ProgressSummary(ctx, quest.Actor{UserID: input.UserID}, input.TourID)
	if err != nil {
		return nil, ProgressSummaryOutput{}, err
	}

	out := ProgressSummaryOutput{
		UserID:        sum.UserID,
		TourID:        sum.TourID,
		CurrentScene:  sum.CurrentScene,
		VisitedScenes: nonNil(sum.VisitedScenes),
		ResolvedPOIs:  nonNil(sum.ResolvedPOIs),
		Completion:    sum.Completion,
		TourPoints:    sum.TourPoints,
		TotalPoints:   sum.TotalPoints,
		ByKind:        make([]KindOutput, 0, len(sum.ByKind)),
	}
	for k, kp := range sum.ByKind {
		out.ByKind = append(out.ByKind, KindOutput{Kind: string(k), Resolved: kp.Resolved, Total: kp.Total})
	}
	slices.SortFunc(out.ByKind, func(a, b KindOutput) int {
		switch {
		case a.Kind < b.Kind:
			return -1
		case a.Kind > b.Kind:
			return 1
		}
		return 0
	})
	return nil, out, nil
}

func (s *Server) handleGetLeaderboard(ctx context.Context, req *sdk.CallToolRequest, input GetLeaderboardInput) (*sdk.CallToolResult, LeaderboardOutput, error) {
	if input.Limit < 0 {
		return nil, LeaderboardOutput{}, fmt.Errorf("limit must not be negative")
	}
	board, err := s.reader.Leaderboard(ctx, input.TourID)
	if err != nil {
		return nil, LeaderboardOutput{}, err
	}

	entries := board.Entries
	if input.Limit > 0 && len(entries) > input.Limit {
		entries = entries[:input.Limit]
	}
	out := LeaderboardOutput{
		TourID:      board.TourID,
		GeneratedAt: board.GeneratedAt.UTC().Format(time.RFC3339),
		Entries:     make([]StandingOutput, 0, len(entries)),
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, StandingOutput{
			Rank:        e.Rank,
			UserID:      e.UserID,
			TotalPoints: e.TotalPoints,
			ReachedAt:   e.ReachedAt.UTC().Format(time.RFC3339),
		})
	}
	return nil, out, nil
}

// nonNil keeps empty lists as [] so they satisfy the tool's output schema.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
