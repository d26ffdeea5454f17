package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/questlog/internal/infrastructure/mcp"
	"github.com/felixgeelhaar/questlog/internal/infrastructure/wiring"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the quest log as MCP tools",
	Long: `Serve the quest log over the Model Context Protocol.

Stdio is used by default; pass --http to listen on an address instead.
Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withWorkspace(cmd, func(ws *wiring.Workspace) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := mcp.NewServer(ws)
			var err error
			if mcpHTTPAddr != "" {
				ws.Logger.Info("serving MCP over HTTP", "addr", mcpHTTPAddr)
				err = server.ServeHTTP(ctx, mcpHTTPAddr)
			} else {
				err = server.ServeStdio(ctx)
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "Listen address for HTTP transport, e.g. :8090")
	RootCmd.AddCommand(mcpCmd)
}
