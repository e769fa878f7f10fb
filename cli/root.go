// Package cli holds the article-canvas commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"article_canvas/config"
	"article_canvas/generator"
	"article_canvas/store"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "article-canvas",
	Short: "Plan, write and publish articles with an AI assistant",
	Long: `article-canvas runs a planning conversation that settles an article's
angle, thesis and outline in three rounds, then seeds the draft and publishes
it as a Markdown post to a GitHub repository.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.config/article-canvas/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable info logs")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// app is the loaded config with the store and model opened from it.
type app struct {
	cfg    config.Config
	store  *store.Store
	llm    *generator.ClientHolder
	logger *log.Logger
}

func openApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Verbose = true
	}

	holder := generator.NewClientHolder(nil)
	if err := config.ApplyLLM(cfg, holder); err != nil {
		return nil, err
	}

	st, err := store.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	a := &app{cfg: cfg, store: st, llm: holder, logger: log.Default()}
	a.infof("[cli] config=%q data=%s llm=%s configured=%t", cfg.Path, st.Path(), cfg.LLM.Provider, holder.Configured())
	return a, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func (a *app) infof(format string, args ...interface{}) {
	if !a.cfg.Verbose {
		return
	}
	a.logger.Printf("[INFO] "+format, args...)
}

// session opens the planning conversation for an article.
func (a *app) session(articleID string) (*generator.Session, error) {
	agent, err := generator.NewAgent(a.llm)
	if err != nil {
		return nil, err
	}
	return generator.NewSession(articleID, agent, a.store, a.logger), nil
}

var errNeedsTerminal = errors.New("plan needs an interactive terminal")
