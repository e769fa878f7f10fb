package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"article_canvas/generator"
)

var articlesStatus string

var articlesCmd = &cobra.Command{
	Use:   "articles",
	Short: "Manage stored articles",
}

var articlesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List articles, most recently updated first",
	Args:  cobra.NoArgs,
	RunE:  runArticlesList,
}

var articlesDeleteCmd = &cobra.Command{
	Use:   "delete <article-id>",
	Short: "Delete an article with its outline and conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runArticlesDelete,
}

func init() {
	articlesListCmd.Flags().StringVar(&articlesStatus, "status", "", "only list draft or published articles")
	articlesCmd.AddCommand(articlesListCmd, articlesDeleteCmd)
	rootCmd.AddCommand(articlesCmd)
}

func runArticlesList(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	arts, err := a.store.ListArticles(cmd.Context(), generator.Status(articlesStatus))
	if err != nil {
		return err
	}
	if len(arts) == 0 {
		cmd.Println("No articles yet.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tUPDATED\tTITLE")
	for _, art := range arts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", art.ID, art.Status, humanize.Time(art.UpdatedAt), art.Title)
	}
	return w.Flush()
}

func runArticlesDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.DeleteArticle(cmd.Context(), args[0]); err != nil {
		return err
	}
	cmd.Printf("Deleted %s\n", args[0])
	return nil
}
