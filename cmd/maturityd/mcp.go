package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/maturity-tools/maturityd/internal/config"
	"github.com/maturity-tools/maturityd/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server",
		Long:  "Start the Model Context Protocol server for maturityd",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			server, err := mcp.NewServer(cfg.DatabaseURL)
			if err != nil {
				log.Fatalf("Failed to create MCP server: %v", err)
			}

			ctx := context.Background()
			return server.Run(ctx)
		},
	}

	return cmd
}
