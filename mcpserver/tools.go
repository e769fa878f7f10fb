package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"article_canvas/generator"
	"article_canvas/planning"
)

// ParseInput is the input schema for parse_reply.
type ParseInput struct {
	Text string `json:"text" jsonschema:"raw model reply with [THINKING], [TITLE], [CHOICES] and [OUTLINE] blocks"`
}

// ParseOutput is the parsed reply. Slices are always present.
type ParseOutput struct {
	Body           string                 `json:"body"`
	ThinkingSteps  []string               `json:"thinking_steps"`
	SuggestedTitle string                 `json:"suggested_title,omitempty"`
	HasTitle       bool                   `json:"has_title"`
	Choices        []planning.Choice      `json:"choices"`
	OutlineItems   []planning.OutlineItem `json:"outline_items"`
}

// PhaseInput is the input schema for planning_phase.
type PhaseInput struct {
	Roles      []string `json:"roles" jsonschema:"author of each turn so far, user or assistant, oldest first"`
	HasContent bool     `json:"has_content,omitempty" jsonschema:"whether the article already carries written content"`
}

// PhaseOutput describes where the conversation stands.
type PhaseOutput struct {
	Phase          string          `json:"phase"`
	Label          string          `json:"label"`
	RoundsLeft     int             `json:"rounds_left"`
	AssistantTurns int             `json:"assistant_turns"`
	Steps          []planning.Step `json:"steps"`
}

// ListInput is the input schema for list_articles.
type ListInput struct {
	Status string `json:"status,omitempty" jsonschema:"draft or published; empty lists all"`
}

// ListOutput is the article summary list.
type ListOutput struct {
	Articles []ArticleSummary `json:"articles"`
	Count    int              `json:"count"`
}

type ArticleSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	Excerpt      string `json:"excerpt"`
	OutlineItems int    `json:"outline_items"`
	UpdatedAt    string `json:"updated_at"`
}

var errUnknownRole = errors.New("role must be user or assistant")

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "parse_reply",
		Description: "Split a tagged planning reply into body, thinking steps, title, choices and outline",
	}, s.handleParse)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "planning_phase",
		Description: "Report the planning phase and rounds left for a conversation",
	}, s.handlePhase)

	if s.articles != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_articles",
			Description: "List stored articles, most recently updated first",
		}, s.handleList)
	}
}

func (s *Server) handleParse(_ context.Context, _ *mcp.CallToolRequest, input ParseInput) (*mcp.CallToolResult, ParseOutput, error) {
	res := planning.Parse(input.Text)
	out := ParseOutput{
		Body:          res.Body,
		ThinkingSteps: nonNil(res.ThinkingSteps),
		Choices:       nonNil(res.Choices),
		OutlineItems:  nonNil(res.OutlineItems),
	}
	if title, ok := res.Title(); ok {
		out.SuggestedTitle = title
		out.HasTitle = true
	}
	return nil, out, nil
}

func (s *Server) handlePhase(_ context.Context, _ *mcp.CallToolRequest, input PhaseInput) (*mcp.CallToolResult, PhaseOutput, error) {
	tr := make(planning.Transcript, 0, len(input.Roles))
	for i, r := range input.Roles {
		role := planning.Role(r)
		if role != planning.RoleUser && role != planning.RoleAssistant {
			return nil, PhaseOutput{}, fmt.Errorf("roles[%d] %q: %w", i, r, errUnknownRole)
		}
		tr = tr.Append(planning.Turn{Role: role})
	}
	phase := planning.SessionPhase(tr, input.HasContent)
	return nil, PhaseOutput{
		Phase:          string(phase),
		Label:          phase.Label(),
		RoundsLeft:     planning.RoundsRemaining(tr),
		AssistantTurns: planning.AssistantTurns(tr),
		// Outline progress is unknown without an article.
		Steps: planning.Progress(tr, 0),
	}, nil
}

func (s *Server) handleList(ctx context.Context, _ *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, ListOutput, error) {
	arts, err := s.articles.ListArticles(ctx, generator.Status(input.Status))
	if err != nil {
		return nil, ListOutput{}, fmt.Errorf("listing articles: %w", err)
	}
	out := ListOutput{Articles: make([]ArticleSummary, len(arts)), Count: len(arts)}
	for i, a := range arts {
		out.Articles[i] = ArticleSummary{
			ID:           a.ID,
			Title:        a.Title,
			Status:       string(a.Status),
			Excerpt:      a.Excerpt,
			OutlineItems: len(a.Outline),
			UpdatedAt:    a.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	return nil, out, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
