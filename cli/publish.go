package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"article_canvas/generator"
	"article_canvas/publisher"
)

var (
	publishMessage string
	publishDryRun  bool
)

var publishCmd = &cobra.Command{
	Use:   "publish <article-id>",
	Short: "Publish an article to GitHub as a Markdown post",
	Long: `Convert the article to Markdown with Jekyll front matter and commit it
to _posts/ in the configured GitHub repository. An existing post for the same
day and title is updated.`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVarP(&publishMessage, "message", "m", "", "commit message")
	publishCmd.Flags().BoolVar(&publishDryRun, "dry-run", false, "print the Markdown instead of committing it")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	art, err := a.store.GetArticle(ctx, args[0])
	if err != nil {
		return err
	}
	if !art.HasContent() {
		return fmt.Errorf("article %s has no content to publish", art.ID)
	}

	now := time.Now()
	if publishDryRun {
		md, err := publisher.PostMarkdown(art.Title, art.Content, art.Tags, now)
		if err != nil {
			return err
		}
		cmd.Println(publisher.PostPath(art.Title, now))
		cmd.Println()
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	}

	p, err := publisher.New(ctx, publisher.Config{
		Token:   a.cfg.GitHub.Token,
		Repo:    a.cfg.GitHub.Repo,
		Branch:  a.cfg.GitHub.Branch,
		BaseURL: a.cfg.GitHub.BaseURL,
	}, a.cfg.Verbose, a.logger)
	if err != nil {
		return err
	}

	a.logger.Printf("[cli] publishing title=%q repo=%s", art.Title, a.cfg.GitHub.Repo)
	res, err := p.Publish(ctx, publisher.PublishParams{
		Title:   art.Title,
		Content: art.Content,
		Tags:    art.Tags,
		Date:    now,
		Message: publishMessage,
	})
	if err != nil {
		return err
	}

	art.Status = generator.StatusPublished
	art.PublishedURL = res.URL
	if err := a.store.UpdateArticle(ctx, art); err != nil {
		return fmt.Errorf("published to %s but could not save status: %w", res.URL, err)
	}
	a.logger.Printf("[cli] publish done path=%s created=%t", res.Path, res.Created)
	cmd.Println(res.URL)
	return nil
}
