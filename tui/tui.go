// Package tui is a terminal front end for the planning conversation.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"article_canvas/generator"
	"article_canvas/planning"
)

const (
	defaultWidth    = 80
	defaultHeight   = 15
	minViewport     = 5
	inputHeight     = 3
	chromeHeight    = 10 // header, choices, input and help
	maxChoices      = 9
	requestTimeout  = 90 * time.Second
	thinkingMessage = "Thinking..."
)

// Planner is the conversation the model drives. *generator.Session
// satisfies it.
type Planner interface {
	Send(ctx context.Context, input string) (planning.Turn, error)
	SelectChoice(ctx context.Context, turnID, choiceID string) (planning.Turn, error)
	Phase(ctx context.Context) (planning.Phase, planning.Transcript, error)
	StartWriting(ctx context.Context) (generator.Article, error)
	Clear(ctx context.Context) error
}

var _ Planner = (*generator.Session)(nil)

type replyMsg struct {
	turn planning.Turn
	err  error
}

type stateMsg struct {
	phase      planning.Phase
	transcript planning.Transcript
	err        error
}

type writingMsg struct {
	article generator.Article
	err     error
}

// Model is the bubbletea model for one article's planning chat.
type Model struct {
	ctx     context.Context
	planner Planner
	title   string

	phase      planning.Phase
	transcript planning.Transcript
	pending    bool
	status     string
	err        error

	spinner  spinner.Model
	input    textarea.Model
	viewport viewport.Model
	width    int
}

func New(ctx context.Context, planner Planner, title string) Model {
	ti := textarea.New()
	ti.Placeholder = "Describe your article, or pick a choice with alt+1..9"
	ti.Focus()
	ti.CharLimit = 0
	ti.ShowLineNumbers = false
	ti.SetWidth(defaultWidth)
	ti.SetHeight(inputHeight)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleAssistant

	return Model{
		ctx:      ctx,
		planner:  planner,
		title:    title,
		phase:    planning.PhaseAngle,
		spinner:  sp,
		input:    ti,
		viewport: viewport.New(defaultWidth, defaultHeight),
		width:    defaultWidth,
	}
}

// Run starts the chat full screen and blocks until the user quits.
func Run(ctx context.Context, planner Planner, title string) error {
	p := tea.NewProgram(New(ctx, planner, title), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.loadState)
}

// Pending reports whether a request is in flight.
func (m Model) Pending() bool { return m.pending }

// Phase is the phase last loaded from the planner.
func (m Model) Phase() planning.Phase { return m.phase }

func (m Model) loadState() tea.Msg {
	phase, tr, err := m.planner.Phase(m.ctx)
	return stateMsg{phase: phase, transcript: tr, err: err}
}

func (m Model) send(text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, requestTimeout)
		defer cancel()
		turn, err := m.planner.Send(ctx, text)
		return replyMsg{turn: turn, err: err}
	}
}

func (m Model) choose(turnID, choiceID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, requestTimeout)
		defer cancel()
		turn, err := m.planner.SelectChoice(ctx, turnID, choiceID)
		return replyMsg{turn: turn, err: err}
	}
}

func (m Model) startWriting() tea.Msg {
	art, err := m.planner.StartWriting(m.ctx)
	return writingMsg{article: art, err: err}
}

func (m Model) clear() tea.Msg {
	if err := m.planner.Clear(m.ctx); err != nil {
		return stateMsg{err: err}
	}
	return m.loadState()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width - 2
		m.viewport.Height = max(minViewport, msg.Height-chromeHeight-inputHeight)
		m.input.SetWidth(msg.Width - 2)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case replyMsg:
		m.err = msg.err
		m.status = ""
		return m, m.loadState

	case stateMsg:
		m.pending = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.phase = msg.phase
		m.transcript = msg.transcript
		m.refresh()
		return m, nil

	case writingMsg:
		if msg.err != nil {
			m.pending = false
			m.err = msg.err
			return m, nil
		}
		m.status = fmt.Sprintf("Content seeded from %d outline items", len(msg.article.Outline))
		return m, m.loadState

	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	if m.pending {
		return m, nil
	}

	switch key := msg.String(); {
	case key == "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		m.err = nil
		m.pending = true
		m.transcript = m.transcript.Append(planning.Turn{Role: planning.RoleUser, Content: text})
		m.refresh()
		return m, tea.Batch(m.spinner.Tick, m.send(text))

	case strings.HasPrefix(key, "alt+") && len(key) == 5 && key[4] >= '1' && key[4] <= '9':
		turn, ok := m.lastAssistant()
		idx := int(key[4] - '1')
		if !ok || idx >= len(turn.Choices) {
			return m, nil
		}
		c := turn.Choices[idx]
		m.err = nil
		m.pending = true
		m.transcript = m.transcript.Append(planning.Turn{Role: planning.RoleUser, Content: c.Value})
		m.refresh()
		return m, tea.Batch(m.spinner.Tick, m.choose(turn.ID, c.ID))

	case key == "ctrl+w":
		m.err = nil
		m.pending = true
		return m, tea.Batch(m.spinner.Tick, m.startWriting)

	case key == "ctrl+l":
		m.err = nil
		m.pending = true
		return m, m.clear
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// lastAssistant is the newest assistant turn, whose choices are live.
func (m Model) lastAssistant() (planning.Turn, bool) {
	for i := len(m.transcript) - 1; i >= 0; i-- {
		if m.transcript[i].Role == planning.RoleAssistant {
			return m.transcript[i], true
		}
	}
	return planning.Turn{}, false
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return styleSubtle.Render("Tell me what you want to write about.")
	}
	wrap := lipgloss.NewStyle().Width(max(20, m.viewport.Width-2))
	var sb strings.Builder
	for i, t := range m.transcript {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if t.Role == planning.RoleUser {
			sb.WriteString(styleUser.Render("You") + "\n")
			sb.WriteString(wrap.Render(t.Content))
			continue
		}
		sb.WriteString(styleAssistant.Render("Assistant") + "\n")
		for _, step := range t.ThinkingSteps {
			sb.WriteString(styleThinking.Render("  ◆ "+step) + "\n")
		}
		sb.WriteString(wrap.Render(t.Content))
	}
	return sb.String()
}

func (m Model) View() string {
	var sb strings.Builder

	header := styleTitle.Render(m.title) + "  " + stylePhase.Render(m.phase.Label())
	if m.phase != planning.PhaseWriting {
		header += "  " + styleSubtle.Render(fmt.Sprintf("%d rounds left", planning.RoundsRemaining(m.transcript)))
	}
	sb.WriteString(header + "\n")
	sb.WriteString(styleBorder.Render(m.viewport.View()) + "\n")

	if turn, ok := m.lastAssistant(); ok && !m.pending {
		for i, c := range turn.Choices {
			if i == maxChoices {
				break
			}
			sb.WriteString(styleChoiceKey.Render(fmt.Sprintf("alt+%d", i+1)) + " " + c.Label + "\n")
		}
	}

	switch {
	case m.pending:
		sb.WriteString(m.spinner.View() + " " + styleSubtle.Render(thinkingMessage) + "\n")
	case m.err != nil:
		sb.WriteString(styleError.Render("Error: "+m.err.Error()) + "\n")
	case m.status != "":
		sb.WriteString(styleSubtle.Render(m.status) + "\n")
	}

	sb.WriteString(m.input.View() + "\n")
	sb.WriteString(styleSubtle.Render("enter send • alt+1..9 choose • ctrl+w start writing • ctrl+l restart • esc quit"))
	return sb.String()
}
