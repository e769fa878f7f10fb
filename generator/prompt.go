package generator

import (
	"fmt"
	"strings"

	"article_canvas/planning"
)

// Prompt is one request to the model.
type Prompt struct {
	System string
	// Context is sent as a second system message describing the article.
	Context   string
	User      string
	History   []Message
	MaxTokens int
	Schema    *ResponseSchema
}

// Message is one prior turn replayed to the model.
type Message struct {
	Role    string
	Content string
}

// ResponseSchema asks the model for JSON matching Schema.
type ResponseSchema struct {
	Name   string
	Schema map[string]any
}

const assistantSystem = `You are a helpful research and writing assistant.
Help the user with their questions about articles, research, and writing.
Be concise but thorough. If you're helping with writing, suggest improvements and alternatives.
When providing data or statistics, cite sources when possible.`

const writingFramework = `=== INTERNAL WRITING FRAMEWORK ===
Structure: Point → Evidence → Explain → Link (PEEL)
- Thesis must be arguable, specific, and provable
- Each section needs: claim + evidence + analysis
- Max 3 planning rounds, then produce outline
===`

var planningKeywords = []string{"plan", "outline", "structure", "write about", "article about"}

// IsPlanningRequest decides whether a turn gets planning instructions.
// Outside the writing phase, a new article or any planning keyword does.
func IsPlanningRequest(phase planning.Phase, input string, isNewArticle bool) bool {
	if phase == planning.PhaseWriting {
		return false
	}
	if isNewArticle {
		return true
	}
	lower := strings.ToLower(input)
	for _, kw := range planningKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// PlanningInstructions returns the tagged-block instructions for one planning
// round. The TITLE section is only requested for new articles and the
// OUTLINE section only in the outline phase.
func PlanningInstructions(phase planning.Phase, roundsLeft int, isNewArticle bool) string {
	var sb strings.Builder
	sb.WriteString(writingFramework)
	sb.WriteString("\n\nYou recommend article directions like a thoughtful editor. Be concise and specific.\n\n")
	sb.WriteString(fmt.Sprintf("PHASE: %s (%d rounds left)\n\n", phase.Upper(), roundsLeft))
	sb.WriteString("[THINKING]\n- Brief analysis of the topic\n- What angles are most compelling\n[/THINKING]\n\n")
	if isNewArticle {
		sb.WriteString("[TITLE]\nShort punchy title (3-6 words)\n[/TITLE]\n\n")
	}
	sb.WriteString("One sentence of context, then present your recommendations.\n\n")
	sb.WriteString(`[CHOICES]
For each option use this EXACT format (topic on first line, description on second):
**Topic or Direction Title**
One sentence explaining what this explores and why it's worth pursuing.

Example format:
**The Fed's Credibility Problem**
Argues that recent policy reversals have eroded market trust, using bond yield data as evidence.

**Rate Cuts Won't Save Housing**
Makes the case that structural supply issues matter more than mortgage rates for affordability.

Provide 3-4 options like this, each with a bold title and one-line description.
[/CHOICES]

`)
	if phase == planning.PhaseOutline {
		sb.WriteString(`[OUTLINE]
**Thesis:** [One arguable sentence]

1. **[Argument 1 title]** - [What you'll prove and key evidence]
2. **[Argument 2 title]** - [What you'll prove and key evidence]
3. **[Argument 3 title]** - [What you'll prove and key evidence]
4. **Conclusion** - [The "so what" takeaway for readers]
[/OUTLINE]

`)
	}
	sb.WriteString("RULES:\n")
	sb.WriteString("- Options must be SPECIFIC angles, not generic categories\n")
	sb.WriteString("- Each option = bold title + one descriptive sentence\n")
	sb.WriteString("- Be opinionated about which direction is strongest\n")
	if phase == planning.PhaseOutline {
		sb.WriteString("- MUST include [OUTLINE] now")
	} else {
		sb.WriteString("- Keep momentum, guide toward thesis")
	}
	return sb.String()
}

const writingInstructions = `You are a focused writing assistant helping execute an article plan.

[THINKING]
- What the user needs
- Best way to help
[/THINKING]

Your helpful, direct response.

[CHOICES] (if there are clear next actions)
✏️ Next logical step | Action prompt
📝 Alternative approach | Action prompt
[/CHOICES]`

// ChatInput is what a conversational prompt is built from.
type ChatInput struct {
	Phase        planning.Phase
	RoundsLeft   int
	IsNewArticle bool
	Input        string
	Context      string
	History      planning.Transcript
}

// BuildChatPrompt wraps the user's input in the planning or writing
// instructions for the current phase.
func BuildChatPrompt(in ChatInput) Prompt {
	instructions := writingInstructions
	if IsPlanningRequest(in.Phase, in.Input, in.IsNewArticle) {
		instructions = PlanningInstructions(in.Phase, in.RoundsLeft, in.IsNewArticle)
	}

	var history []Message
	for _, t := range in.History {
		if t.Content == "" {
			continue
		}
		history = append(history, Message{Role: string(t.Role), Content: t.Content})
	}

	return Prompt{
		System:    assistantSystem,
		Context:   in.Context,
		User:      fmt.Sprintf("%s\n\nUser request: %s", instructions, in.Input),
		History:   history,
		MaxTokens: 2000,
	}
}

// ArticleContext describes the article for the model: title, plain text and
// any annotations.
func ArticleContext(a *Article) string {
	if a == nil {
		return "No article selected yet."
	}
	text := HTMLToText(a.Content)
	if text == "" {
		text = "(empty)"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Article Title: %s\n\nCurrent Content:\n%s", a.Title, text))
	if len(a.Annotations) > 0 {
		sb.WriteString("\n\nAnnotations:\n")
		for i, an := range a.Annotations {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(fmt.Sprintf("- [%s] \"%s\"", strings.ToUpper(string(an.Type)), an.Text))
			if an.Summary != "" {
				sb.WriteString(fmt.Sprintf(" (Summary: %s)", an.Summary))
			}
		}
	}
	return sb.String()
}

// BuildBrainstormPrompt asks for five angles on a topic.
func BuildBrainstormPrompt(topic string) Prompt {
	return Prompt{
		System: `You are a creative writing assistant helping brainstorm article ideas.
Generate 5 unique angles or perspectives for the given topic.
Format each idea with a brief title and 1-2 sentence description.
Be creative and suggest diverse approaches.`,
		User:      "Help me brainstorm article ideas about: " + topic,
		MaxTokens: 1000,
	}
}

// BuildImprovePrompt asks for an edited version of text only.
func BuildImprovePrompt(text string) Prompt {
	return Prompt{
		System: `You are an expert editor. Improve the given text for clarity, flow, and engagement.
Maintain the author's voice while enhancing readability.
Return only the improved text without explanations.`,
		User:      text,
		MaxTokens: 2000,
	}
}

// BuildOutlinePrompt asks for a free-form outline.
func BuildOutlinePrompt(topic string) Prompt {
	return Prompt{
		System: `You are a content strategist. Create a detailed article outline for the given topic.
Include: introduction hook, main sections with key points, and conclusion.
Format with clear headings and bullet points.`,
		User:      "Create an article outline for: " + topic,
		MaxTokens: 1500,
	}
}
