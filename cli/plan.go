package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"article_canvas/generator"
	"article_canvas/tui"
)

var planTitle string

var planCmd = &cobra.Command{
	Use:   "plan [article-id]",
	Short: "Plan an article in the terminal",
	Long: `Open the planning chat for an article. Without an id a new article is
created.

Controls:
  enter       - Send
  alt+1..9    - Pick a suggested direction
  ctrl+w      - Start writing from the outline
  ctrl+l      - Restart planning
  esc         - Quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planTitle, "title", "", "title for a new article")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) || !term.IsTerminal(int(os.Stdin.Fd())) {
		return errNeedsTerminal
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	var art generator.Article
	if len(args) == 1 {
		art, err = a.store.GetArticle(ctx, args[0])
	} else {
		art, err = a.store.CreateArticle(ctx, generator.Article{Title: strings.TrimSpace(planTitle)})
	}
	if err != nil {
		return err
	}
	a.infof("[cli] planning article %s", art.ID)

	sess, err := a.session(art.ID)
	if err != nil {
		return err
	}
	if err := tui.Run(ctx, sess, art.Title); err != nil {
		return err
	}
	cmd.Printf("Article %s saved.\n", art.ID)
	return nil
}
