package tui

import (
	"context"
	"errors"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"article_canvas/generator"
	"article_canvas/planning"
)

type fakePlanner struct {
	transcript planning.Transcript
	phase      planning.Phase
	sent       []string
	chosen     [][2]string
	cleared    bool
	sendErr    error
}

func (f *fakePlanner) reply() planning.Turn {
	turn := planning.Turn{
		ID:            "t" + string(rune('0'+len(f.transcript))),
		Role:          planning.RoleAssistant,
		Content:       "Here are some directions.",
		ThinkingSteps: []string{"Reading the request"},
		Choices: []planning.Choice{
			{ID: "choice-0", Label: "First", Value: "I choose: First. a"},
			{ID: "choice-1", Label: "Second", Value: "I choose: Second. b"},
		},
	}
	f.transcript = append(f.transcript, turn)
	f.phase = planning.CurrentPhase(f.transcript)
	return turn
}

func (f *fakePlanner) Send(_ context.Context, input string) (planning.Turn, error) {
	if f.sendErr != nil {
		return planning.Turn{}, f.sendErr
	}
	f.sent = append(f.sent, input)
	f.transcript = append(f.transcript, planning.Turn{Role: planning.RoleUser, Content: input})
	return f.reply(), nil
}

func (f *fakePlanner) SelectChoice(ctx context.Context, turnID, choiceID string) (planning.Turn, error) {
	f.chosen = append(f.chosen, [2]string{turnID, choiceID})
	turn, _ := f.transcript.Find(turnID)
	c, _ := turn.FindChoice(choiceID)
	return f.Send(ctx, c.Value)
}

func (f *fakePlanner) Phase(context.Context) (planning.Phase, planning.Transcript, error) {
	if f.phase == "" {
		return planning.PhaseAngle, f.transcript, nil
	}
	return f.phase, f.transcript, nil
}

func (f *fakePlanner) StartWriting(context.Context) (generator.Article, error) {
	f.phase = planning.PhaseWriting
	return generator.Article{Outline: []planning.OutlineItem{{ID: "o1", Title: "Intro"}}}, nil
}

func (f *fakePlanner) Clear(context.Context) error {
	f.cleared = true
	f.transcript = nil
	f.phase = ""
	return nil
}

// drive feeds msg to m and keeps running the resulting commands until none
// are left, skipping spinner ticks.
func drive(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	queue := []tea.Msg{msg}
	for i := 0; len(queue) > 0; i++ {
		require.Less(t, i, 50, "update loop did not settle")
		next := queue[0]
		queue = queue[1:]
		updated, cmd := m.Update(next)
		m = updated.(Model)
		queue = append(queue, run(cmd)...)
	}
	return m
}

func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, run(c)...)
		}
		return out
	case nil, spinner.TickMsg:
		return nil
	default:
		return []tea.Msg{msg}
	}
}

func typeText(m Model, s string) Model {
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return updated.(Model)
}

func TestNew(t *testing.T) {
	m := New(context.Background(), &fakePlanner{}, "Draft")

	assert.Equal(t, planning.PhaseAngle, m.Phase())
	assert.False(t, m.Pending())
	assert.NotNil(t, m.Init())
	assert.Contains(t, m.View(), "Draft")
	assert.Contains(t, m.View(), "3 rounds left")
}

func TestEnter_SendsAndBlocksInput(t *testing.T) {
	fp := &fakePlanner{}
	m := typeText(New(context.Background(), fp, "Draft"), "housing costs")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.Pending())
	assert.Empty(t, m.input.Value())
	assert.Contains(t, m.View(), thinkingMessage)

	// Further input is ignored while the request is in flight.
	m = typeText(m, "more")
	_, again := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, again)
	assert.Empty(t, m.input.Value())

	for _, msg := range run(cmd) {
		m = drive(t, m, msg)
	}
	assert.False(t, m.Pending())
	assert.Equal(t, []string{"housing costs"}, fp.sent)
	assert.Equal(t, planning.PhaseThesis, m.Phase())

	view := m.View()
	assert.Contains(t, view, "alt+1 First")
	assert.Contains(t, view, "Second")
	assert.Contains(t, view, "2 rounds left")
}

func TestEnter_IgnoresBlankInput(t *testing.T) {
	m := typeText(New(context.Background(), &fakePlanner{}, "Draft"), "   ")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, updated.(Model).Pending())
}

func TestAltDigit_SelectsChoice(t *testing.T) {
	fp := &fakePlanner{}
	m := drive(t, typeText(New(context.Background(), fp, "Draft"), "rent"), tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, fp.transcript, 2)
	turnID := fp.transcript[1].ID

	m = drive(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}, Alt: true})
	require.Len(t, fp.chosen, 1)
	assert.Equal(t, [2]string{turnID, "choice-1"}, fp.chosen[0])
	assert.Equal(t, planning.PhaseOutline, m.Phase())

	// No ninth choice exists.
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'9'}, Alt: true})
	assert.Nil(t, cmd)
}

func TestSendError_IsShown(t *testing.T) {
	fp := &fakePlanner{sendErr: errors.New("model unavailable")}
	m := drive(t, typeText(New(context.Background(), fp, "Draft"), "hi"), tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, m.Pending())
	assert.Contains(t, m.View(), "model unavailable")
}

func TestStartWritingAndClear(t *testing.T) {
	fp := &fakePlanner{}
	m := drive(t, New(context.Background(), fp, "Draft"), tea.KeyMsg{Type: tea.KeyCtrlW})
	assert.Equal(t, planning.PhaseWriting, m.Phase())
	assert.Contains(t, m.View(), "Content seeded from 1 outline items")
	assert.NotContains(t, m.View(), "rounds left")

	m = drive(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.True(t, fp.cleared)
	assert.Equal(t, planning.PhaseAngle, m.Phase())
}

func TestQuitKeys(t *testing.T) {
	m := New(context.Background(), &fakePlanner{}, "Draft")
	for _, key := range []tea.KeyMsg{{Type: tea.KeyCtrlC}, {Type: tea.KeyEsc}} {
		_, cmd := m.Update(key)
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestWindowSize(t *testing.T) {
	m := New(context.Background(), &fakePlanner{}, "Draft")
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = updated.(Model)
	assert.Equal(t, 118, m.viewport.Width)
	assert.Equal(t, 40-chromeHeight-inputHeight, m.viewport.Height)
}
