package planning

import "strings"

// Phase is the stage of the planning conversation.
type Phase string

const (
	PhaseAngle   Phase = "angle"
	PhaseThesis  Phase = "thesis"
	PhaseOutline Phase = "outline"
	PhaseWriting Phase = "writing"
)

// PlanningRounds is how many assistant replies the planning dialogue takes
// before it is expected to have produced an outline.
const PlanningRounds = 3

// Upper is the phase name as it appears in instruction text.
func (p Phase) Upper() string {
	return strings.ToUpper(string(p))
}

// Label is a short human-readable name for progress displays.
func (p Phase) Label() string {
	switch p {
	case PhaseAngle:
		return "Topic & Angle"
	case PhaseThesis:
		return "Thesis Statement"
	case PhaseOutline:
		return "Outline Structure"
	case PhaseWriting:
		return "Writing"
	default:
		return string(p)
	}
}

// AssistantTurns counts the assistant-authored turns in t.
func AssistantTurns(t Transcript) int {
	n := 0
	for _, turn := range t {
		if turn.Role == RoleAssistant {
			n++
		}
	}
	return n
}

// CurrentPhase derives the planning round from the number of assistant turns.
// It never returns PhaseWriting; see SessionPhase.
func CurrentPhase(t Transcript) Phase {
	switch n := AssistantTurns(t); {
	case n == 0:
		return PhaseAngle
	case n == 1:
		return PhaseThesis
	default:
		return PhaseOutline
	}
}

// RoundsRemaining is the number of planning rounds left, floored at zero.
func RoundsRemaining(t Transcript) int {
	return max(0, PlanningRounds-AssistantTurns(t))
}

// SessionPhase promotes the conversation to PhaseWriting once the article
// carries real content. Otherwise it is CurrentPhase.
func SessionPhase(t Transcript, articleHasContent bool) Phase {
	if articleHasContent {
		return PhaseWriting
	}
	return CurrentPhase(t)
}

// Step is one entry of the planning progress display.
type Step struct {
	Number int    `json:"step"`
	Label  string `json:"label"`
	Done   bool   `json:"done"`
}

// Progress reports the three planning steps. The outline step is done once
// the article has at least one outline item.
func Progress(t Transcript, outlineItems int) []Step {
	return []Step{
		{Number: 1, Label: PhaseAngle.Label(), Done: len(t) >= 1},
		{Number: 2, Label: PhaseThesis.Label(), Done: AssistantTurns(t) >= 2},
		{Number: 3, Label: PhaseOutline.Label(), Done: outlineItems > 0},
	}
}
