package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"article_canvas/planning"
)

// MockLLM answers offline with fixed text in the tagged reply format, so the
// whole planning flow can run without a model.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	switch {
	case prompt.Schema != nil:
		return mockTopics(prompt.User)
	case strings.Contains(prompt.User, "PHASE: "):
		return mockPlanningReply(prompt.User), nil
	case strings.HasPrefix(prompt.User, "Create an article outline for:"):
		return "1. Introduction\n2. The core argument\n3. Evidence\n4. Conclusion", nil
	case strings.HasPrefix(prompt.User, "Help me brainstorm article ideas about:"):
		return "**Angle one**\nA first take.\n\n**Angle two**\nA second take.", nil
	case strings.Contains(prompt.User, "User request: "):
		return "[THINKING]\n- What the user needs\n[/THINKING]\nKeep going with the next section.", nil
	default:
		return prompt.User, nil
	}
}

func mockPlanningReply(user string) string {
	var sb strings.Builder
	sb.WriteString("[THINKING]\n- Reading the request\n- Picking the strongest angles\n[/THINKING]\n\n")
	if strings.Contains(user, "[TITLE]") {
		sb.WriteString("[TITLE]\nDraft Title\n[/TITLE]\n\n")
	}
	sb.WriteString("Here are a few directions worth taking.\n\n")
	sb.WriteString("[CHOICES]\n**First Direction**\nExplores the obvious angle.\n\n**Second Direction**\nExplores the contrarian angle.\n[/CHOICES]\n")
	if strings.Contains(user, "PHASE: "+planning.PhaseOutline.Upper()) {
		sb.WriteString("\n[OUTLINE]\n1. Introduction\n2. Main argument\n3. Conclusion\n[/OUTLINE]\n")
	}
	return sb.String()
}

// mockTopics echoes numbered lines back as a topics object; with none it
// invents a few.
func mockTopics(user string) (string, error) {
	type topic struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}
	var topics []topic
	for _, line := range strings.Split(user, "\n") {
		var n int
		var rest string
		if i := strings.Index(line, ". "); i > 0 {
			if _, err := fmt.Sscanf(line[:i], "%d", &n); err == nil {
				rest = strings.TrimSpace(line[i+2:])
			}
		}
		if rest != "" {
			topics = append(topics, topic{Title: rest, Summary: "Explore this topic in depth"})
		}
	}
	if len(topics) == 0 {
		for i := 1; i <= 6; i++ {
			topics = append(topics, topic{Title: fmt.Sprintf("Mock topic %d", i), Summary: "A mock angle"})
		}
	}
	b, err := json.Marshal(map[string]any{"topics": topics})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
