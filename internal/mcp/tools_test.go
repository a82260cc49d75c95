package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/playperu/vrquest/internal/engine"
	"github.com/playperu/vrquest/internal/quest"
	"github.com/playperu/vrquest/internal/ranking"
)

type mockReader struct {
	tours   []quest.Tour
	summary engine.Summary
	board   ranking.Board
	err     error

	lastActor quest.Actor
	lastTour  string
}

func (m *mockReader) ListTours(ctx context.Context) ([]quest.Tour, error) {
	return m.tours, m.err
}

func (m *mockReader) ProgressSummary(ctx context.Context, actor quest.Actor, tourID string) (engine.Summary, error) {
	m.lastActor = actor
	m.lastTour = tourID
	return m.summary, m.err
}

func (m *mockReader) Leaderboard(ctx context.Context, tourID string) (ranking.Board, error) {
	m.lastTour = tourID
	return m.board, m.err
}

func TestGetProgressSummary(t *testing.T) {
	reader := &mockReader{summary: engine.Summary{
		UserID:       "u1",
		TourID:       "t1",
		CurrentScene: "s2",
		Completion:   41.67,
		TourPoints:   10,
		TotalPoints:  25,
		ByKind: map[quest.Kind]quest.KindProgress{
			quest.KindQuestion:   {Resolved: 1, Total: 2},
			quest.KindMultimedia: {Resolved: 0, Total: 1},
		},
	}}
	server := NewServer(reader, "test")

	_, out, err := server.handleGetProgressSummary(context.Background(), nil, GetProgressSummaryInput{UserID: "u1", TourID: "t1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reader.lastActor.UserID != "u1" || reader.lastTour != "t1" {
		t.Errorf("called with %+v, %q", reader.lastActor, reader.lastTour)
	}
	if out.TourPoints != 10 || out.TotalPoints != 25 || out.CurrentScene != "s2" {
		t.Errorf("output = %+v", out)
	}
	if len(out.ByKind) != 2 || out.ByKind[0].Kind != "multimedia" || out.ByKind[1].Resolved != 1 {
		t.Errorf("by kind = %+v", out.ByKind)
	}
}

func TestGetProgressSummaryValidation(t *testing.T) {
	server := NewServer(&mockReader{}, "test")
	for _, in := range []GetProgressSummaryInput{{TourID: "t1"}, {UserID: "u1"}} {
		if _, _, err := server.handleGetProgressSummary(context.Background(), nil, in); err == nil {
			t.Errorf("input %+v: expected error", in)
		}
	}
}

func TestGetLeaderboard(t *testing.T) {
	at := time.Date(2025, 3, 16, 12, 0, 0, 0, time.UTC)
	reader := &mockReader{board: ranking.Board{
		TourID:      "t1",
		GeneratedAt: at,
		Entries: []ranking.Entry{
			{Rank: 1, UserID: "a", TotalPoints: 30, ReachedAt: at},
			{Rank: 2, UserID: "b", TotalPoints: 20, ReachedAt: at},
			{Rank: 3, UserID: "c", TotalPoints: 10, ReachedAt: at},
		},
	}}
	server := NewServer(reader, "test")

	_, out, err := server.handleGetLeaderboard(context.Background(), nil, GetLeaderboardInput{TourID: "t1", Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Entries) != 2 || out.Entries[0].UserID != "a" || out.GeneratedAt != "2025-03-16T12:00:00Z" {
		t.Errorf("output = %+v", out)
	}

	if _, _, err := server.handleGetLeaderboard(context.Background(), nil, GetLeaderboardInput{Limit: -1}); err == nil {
		t.Error("negative limit: expected error")
	}
}

func TestHandlerErrorsPropagate(t *testing.T) {
	server := NewServer(&mockReader{err: quest.ErrNotFound}, "test")

	if _, _, err := server.handleGetLeaderboard(context.Background(), nil, GetLeaderboardInput{TourID: "x"}); !errors.Is(err, quest.ErrNotFound) {
		t.Errorf("leaderboard err = %v", err)
	}
	if _, _, err := server.handleListTours(context.Background(), nil, ListToursInput{}); !errors.Is(err, quest.ErrNotFound) {
		t.Errorf("list tours err = %v", err)
	}
}

func TestToolsOverTransport(t *testing.T) {
	reader := &mockReader{tours: []quest.Tour{{ID: "t1", Name: "Demo", Active: true}}}
	server := NewServer(reader, "test")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverTransport, clientTransport := sdk.NewInMemoryTransports()
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Run(ctx, serverTransport) }()

	client := sdk.NewClient(&sdk.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("connect client: %v", err)
	}
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"list_tours", "get_progress_summary", "get_leaderboard"} {
		if !names[want] {
			t.Errorf("tool %s not registered", want)
		}
	}

	res, err := session.CallTool(ctx, &sdk.CallToolParams{Name: "list_tours", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("call list_tours: %v", err)
	}
	if res.IsError {
		t.Fatalf("list_tours reported an error: %+v", res.Content)
	}
}
