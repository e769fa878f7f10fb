package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"article_canvas/publisher"
	"article_canvas/store"
)

const uriScheme = "canvas://"

// registerResources exposes each article as a Markdown document.
func (s *Server) registerResources() {
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "articles/{articleId}",
		Name:        "article",
		Description: "An article rendered as Markdown with front matter",
		MIMEType:    "text/markdown",
	}, s.handleArticleResource)
}

func (s *Server) handleArticleResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	id := extractArticleID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	a, err := s.articles.GetArticle(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("reading article %s: %w", id, err)
	}
	md, err := publisher.PostMarkdown(a.Title, a.Content, a.Tags, a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     md,
		}},
	}, nil
}

func extractArticleID(uri string) string {
	id, ok := strings.CutPrefix(uri, uriScheme+"articles/")
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
