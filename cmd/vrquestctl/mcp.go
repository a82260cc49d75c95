package main

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/playperu/vrquest/internal/mcp"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve read-only progress tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE:  runMCP,
	}
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	s, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	// stdout carries the protocol; logs go to stderr.
	server := mcp.NewServer(s.engine(cmd.ErrOrStderr()), version)
	return server.Run(ctx, &sdk.StdioTransport{})
}
