// Package planning holds the planning-conversation core: the round tracker
// that decides which stage the dialogue is in, and the parser that splits a
// model reply into its tagged blocks.
package planning

import "time"

// Role identifies who authored a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Choice is a selectable follow-up attached to one assistant Turn.
// Value, not Label, is what gets replayed as the next user Turn.
type Choice struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// Turn is one message in the planning conversation.
type Turn struct {
	ID            string    `json:"id"`
	Role          Role      `json:"role"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
	Animating     bool      `json:"is_animating,omitempty"`
	Choices       []Choice  `json:"choices,omitempty"`
	ThinkingSteps []string  `json:"thinking_steps,omitempty"`
}

// FindChoice returns the choice with the given id.
func (t Turn) FindChoice(id string) (Choice, bool) {
	for _, c := range t.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}

// Transcript is the ordered, append-only list of turns for one conversation.
type Transcript []Turn

// Append returns the transcript with turn added at the end.
func (t Transcript) Append(turn Turn) Transcript {
	return append(t, turn)
}

// Clear empties the transcript. It is the only way the phase can regress.
func (t Transcript) Clear() Transcript {
	return Transcript{}
}

// Find returns the turn with the given id.
func (t Transcript) Find(id string) (Turn, bool) {
	for _, turn := range t {
		if turn.ID == id {
			return turn, true
		}
	}
	return Turn{}, false
}

// OutlineSubItem is a nested entry under an OutlineItem.
type OutlineSubItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// OutlineItem is a section heading of an article with a completion flag.
type OutlineItem struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Completed   bool             `json:"completed"`
	SubItems    []OutlineSubItem `json:"sub_items,omitempty"`
}

// ParsedResponse is one model reply split into its parts.
// A nil SuggestedTitle, Choices or OutlineItems means the block was absent.
type ParsedResponse struct {
	Body           string        `json:"body"`
	ThinkingSteps  []string      `json:"thinking_steps"`
	SuggestedTitle *string       `json:"suggested_title,omitempty"`
	Choices        []Choice      `json:"choices,omitempty"`
	OutlineItems   []OutlineItem `json:"outline_items,omitempty"`
}

// Title returns the suggested title and whether one was present.
func (p ParsedResponse) Title() (string, bool) {
	if p.SuggestedTitle == nil {
		return "", false
	}
	return *p.SuggestedTitle, true
}
