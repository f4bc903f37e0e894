package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/stanza/internal/cli"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long:  `Exposes the agent host as a Model Context Protocol server, over stdio by default or SSE with --sse-port.`,
	Run: func(cmd *cobra.Command, args []string) {
		ssePort, _ := cmd.Flags().GetInt("sse-port")

		if err := cli.RunMCP(optionsFromFlags(cmd), ssePort); err != nil {
			fmt.Printf("MCP server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().Int("sse-port", 0, "Serve over SSE on this port instead of stdio")
}
