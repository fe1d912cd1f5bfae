package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/aretw0/sluice/internal/cli"
	"github.com/aretw0/sluice/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the pipeline order and parked runs to MCP clients.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		rt, err := buildRuntime(sc, cmd)
		if err != nil {
			return err
		}
		defer rt.Engine.Close()

		srv := mcp.NewServer(rt.Engine, rt.Manager, mcp.WithLogger(rt.Logger))

		switch transport {
		case "stdio":
			// Stdout carries JSON-RPC.
			log.SetOutput(cmd.ErrOrStderr())
			rt.Logger.Info("starting MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			err := srv.ServeSSE(sc, addr, "http://"+addr)
			if err == nil {
				rt.Logger.Info("MCP server stopped gracefully")
			}
			return err
		default:
			return fmt.Errorf("unknown transport %q: use stdio or sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", "localhost:8081", "Address to listen on (only for SSE)")
}
