package generator

import (
	"context"
	"errors"
	"strings"

	"article_canvas/planning"
)

// Agent sends prompts to the model and decodes what comes back.
type Agent struct {
	llm LLMClient
}

func NewAgent(llm LLMClient) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	return &Agent{llm: llm}, nil
}

// RespondInput is one conversational turn to answer.
type RespondInput struct {
	Input   string
	Article *Article
	// History is the transcript before the user's new turn.
	History planning.Transcript
}

// Respond picks the instructions for the current phase, asks the model, and
// parses the tagged reply.
func (a *Agent) Respond(ctx context.Context, in RespondInput) (planning.ParsedResponse, error) {
	hasContent := in.Article != nil && in.Article.HasContent()
	isNew := in.Article == nil || in.Article.Title == DefaultTitle || HTMLToText(in.Article.Content) == ""

	prompt := BuildChatPrompt(ChatInput{
		Phase:        planning.SessionPhase(in.History, hasContent),
		RoundsLeft:   planning.RoundsRemaining(in.History),
		IsNewArticle: isNew,
		Input:        in.Input,
		Context:      ArticleContext(in.Article),
		History:      in.History,
	})

	raw, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		return planning.ParsedResponse{}, err
	}
	return planning.Parse(raw), nil
}

// Brainstorm returns free-text angles for topic.
func (a *Agent) Brainstorm(ctx context.Context, topic string) (string, error) {
	out, err := a.llm.Complete(ctx, BuildBrainstormPrompt(topic))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "No ideas generated", nil
	}
	return out, nil
}

// Improve returns an edited version of text, or text itself when the model
// sends nothing back.
func (a *Agent) Improve(ctx context.Context, text string) (string, error) {
	out, err := a.llm.Complete(ctx, BuildImprovePrompt(text))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return text, nil
	}
	return out, nil
}

// Outline returns the model's free-text outline for topic.
func (a *Agent) Outline(ctx context.Context, topic string) (string, error) {
	out, err := a.llm.Complete(ctx, BuildOutlinePrompt(topic))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "No outline generated", nil
	}
	return out, nil
}

// GenerateOutline asks for an outline and keeps up to ten item lines.
func (a *Agent) GenerateOutline(ctx context.Context, topic string) ([]planning.OutlineItem, error) {
	out, err := a.Outline(ctx, topic)
	if err != nil {
		return nil, err
	}
	return ParseFreeformOutline(out), nil
}
