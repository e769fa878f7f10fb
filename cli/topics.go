package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var topicsJSON bool

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Suggest article topics",
	Long: `Suggest up to ten topics: trending headlines from the configured RSS
feeds, rewritten into article ideas, mixed with broader brainstormed themes.`,
	Args: cobra.NoArgs,
	RunE: runTopics,
}

func init() {
	topicsCmd.Flags().BoolVar(&topicsJSON, "json", false, "output topics as JSON")
	rootCmd.AddCommand(topicsCmd)
}

func runTopics(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := newTopicService(a.cfg, a)
	if err != nil {
		return err
	}
	list := svc.Mixed(cmd.Context())

	if topicsJSON {
		data, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal topics: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	for i, t := range list {
		cmd.Printf("[%d] %s (%s)\n", i+1, t.Title, t.Source)
		if t.Summary != "" {
			cmd.Printf("    %s\n", t.Summary)
		}
	}
	return nil
}
