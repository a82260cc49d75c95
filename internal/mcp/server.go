// Package mcp exposes read-only progress and leaderboard tools to agents over
// the Model Context Protocol.
package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/playperu/vrquest/internal/engine"
	"github.com/playperu/vrquest/internal/quest"
	"github.com/playperu/vrquest/internal/ranking"
)

// Reader is the slice of the engine the tools need.
type Reader interface {
	ListTours(ctx context.Context) ([]quest.Tour, error)
	ProgressSummary(ctx context.Context, actor quest.Actor, tourID string) (engine.Summary, error)
	Leaderboard(ctx context.Context, tourID string) (ranking.Board, error)
}

type Server struct {
	reader Reader
	mcp    *sdk.Server
}

func NewServer(reader Reader, version string) *Server {
	s := &Server{
		reader: reader,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "vrquest",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
