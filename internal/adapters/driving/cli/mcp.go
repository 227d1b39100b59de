package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/rfpkb/internal/adapters/driving/mcp"
	"github.com/custodia-labs/rfpkb/internal/logger"
)

// overrideSweepInterval is how often expired session overrides are dropped
// while the server runs.
const overrideSweepInterval = time.Minute

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can retrieve
answers, record new ones and sanitise the knowledge base.

By default, the server communicates over stdio using JSON-RPC.
Use --port to start an HTTP server instead.

Examples:
  # Stdio mode (default, for desktop assistants)
  rfpkb mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  rfpkb mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "rfpkb": {
        "command": "/path/to/rfpkb",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	Annotations: map[string]string{
		annotationLongRunning: "true",
	},
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Retrieval:   retrievalService,
		Maintenance: maintenanceService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()
	if overrideSweeper != nil {
		go sweepOverrides(ctx, overrideSweeper, overrideSweepInterval)
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}

// sweepOverrides drops expired overrides until ctx is done.
func sweepOverrides(ctx context.Context, sweeper OverrideSweeper, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sweeper.Sweep(); n > 0 {
				logger.Debug("Swept %d expired session overrides", n)
			}
		}
	}
}
