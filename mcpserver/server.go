// Package mcpserver exposes the reply parser, the phase tracker and the
// stored articles to MCP clients.
package mcpserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"article_canvas/generator"
)

// Version is the MCP server version.
const Version = "0.1.0"

// ArticleReader is the read-only store view the server needs.
type ArticleReader interface {
	ListArticles(ctx context.Context, status generator.Status) ([]generator.Article, error)
	GetArticle(ctx context.Context, id string) (generator.Article, error)
}

// Server is the article canvas MCP server.
type Server struct {
	articles ArticleReader
	server   *mcp.Server
}

// NewServer builds the server. articles may be nil, in which case only the
// stateless tools are registered.
func NewServer(articles ArticleReader) *Server {
	s := &Server{
		articles: articles,
		server:   mcp.NewServer(&mcp.Implementation{Name: "article-canvas", Version: Version}, nil),
	}
	s.registerTools()
	if articles != nil {
		s.registerResources()
	}
	return s
}

// Run serves over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	err := s.server.Run(ctx, &mcp.StdioTransport{})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
