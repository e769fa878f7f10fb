package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"article_canvas/config"
	"article_canvas/server"
	"article_canvas/topics"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the JSON HTTP API used by the editor front end.

When the server was started from a config file, edits to that file are picked
up without a restart: the model client, the GitHub destination, the feeds and
the topic model are swapped in place.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server_addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	topicSvc, err := newTopicService(a.cfg, a)
	if err != nil {
		return err
	}
	srv, err := server.New(server.Deps{
		Store:   a.store,
		LLM:     a.llm,
		Topics:  topicSvc,
		GitHub:  a.cfg.GitHub,
		Logger:  a.logger,
		Verbose: a.cfg.Verbose,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if a.cfg.Path != "" {
		go func() {
			err := config.Watch(ctx, a.cfg.Path, a.logger, func(cfg config.Config) {
				if err := config.ApplyLLM(cfg, a.llm); err != nil {
					a.logger.Printf("[config] keeping previous model: %v", err)
				}
				srv.SetGitHub(cfg.GitHub)
				topicSvc, err := newTopicService(cfg, a)
				if err != nil {
					a.logger.Printf("[config] keeping previous topic service: %v", err)
					return
				}
				srv.SetTopics(topicSvc)
			})
			if err != nil {
				a.logger.Printf("[config] watch stopped: %v", err)
			}
		}()
	}

	listen := a.cfg.ServerAddr
	if serveAddr != "" {
		listen = serveAddr
	}
	if listen == "" {
		listen = ":8080"
	}
	httpServer := &http.Server{
		Addr:              listen,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	a.logger.Printf("Starting web server on %s", listen)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func newTopicService(cfg config.Config, a *app) (*topics.Service, error) {
	models, err := config.TopicModels(cfg, a.llm)
	if err != nil {
		return nil, err
	}
	return topics.New(
		topics.WithFeeds(cfg.Feeds),
		topics.WithModels(models...),
		topics.WithLogger(a.logger, a.cfg.Verbose),
	), nil
}
