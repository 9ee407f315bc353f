package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/missive/internal/cli"
	"github.com/aretw0/missive/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the assistant as MCP tools (chat, draft_email, get_graph), so
other agents can delegate email and calendar work to it.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		opts := cliOptions(cmd)
		// Stdout carries JSON-RPC; keep logs quiet on stderr.
		opts.Quiet = transport == "stdio" && !opts.Debug
		app, err := cli.Build(cmd.Context(), opts)
		if err != nil {
			return err
		}
		defer app.Close()

		serverOpts := []mcp.Option{
			mcp.WithLogger(app.Logger.With("component", "mcp")),
			mcp.WithTopology(app.Engine.Inspect),
		}
		if c := app.Engine.Completer(); c != nil {
			serverOpts = append(serverOpts, mcp.WithDrafter(c))
		}
		srv := mcp.NewServer(app.Sessions, serverOpts...)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		switch transport {
		case "stdio":
			app.Logger.Info("starting MCP server (stdio)")
			return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
		case "sse":
			addr := fmt.Sprintf(":%d", port)
			err := srv.ServeSSE(ctx, addr, fmt.Sprintf("http://localhost:%d", port))
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			app.Logger.Info("MCP server stopped gracefully")
			return nil
		}
		return fmt.Errorf("unknown transport %q (supported: stdio, sse)", transport)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
}
