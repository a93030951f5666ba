package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	mcpadapter "github.com/kirillkom/poa-analyzer/internal/adapters/mcp"
	"github.com/kirillkom/poa-analyzer/internal/bootstrap"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve classify_poa and analyze_poa as MCP tools over stdio",
	Long: `Start a Model Context Protocol server on stdin/stdout.

Logs go to stderr so they never mix with protocol frames.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, err := bootstrap.NewPipeline(cfg, nil)
		if err != nil {
			return err
		}
		srv := mcpadapter.NewServer(pipeline, cfg.MaxUploadBytes).MCPServer(version)
		return server.ServeStdio(srv)
	},
}
