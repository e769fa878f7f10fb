package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"article_canvas/planning"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a tagged model reply",
	Long: `Run the reply parser on a file, or on stdin when no file is given, and
print the body, thinking steps, title, choices and outline as JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	var (
		raw []byte
		err error
	)
	if len(args) == 1 {
		raw, err = os.ReadFile(args[0])
	} else {
		raw, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("reading reply: %w", err)
	}

	data, err := json.MarshalIndent(planning.Parse(string(raw)), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
