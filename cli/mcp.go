package cli

import (
	"github.com/spf13/cobra"

	"article_canvas/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server over stdio",
	Long: `Start the Model Context Protocol server for AI assistant integration.

Tools:
  parse_reply     - split a tagged planning reply into its parts
  planning_phase  - phase and rounds left for a list of turn roles
  list_articles   - stored articles

Resources:
  canvas://articles/{id} - an article as Markdown`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	return mcpserver.NewServer(a.store).Run(cmd.Context())
}
