package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#0EA5E9")
	colorAccent  = lipgloss.Color("#A855F7")
	colorMuted   = lipgloss.Color("#64748B")
	colorError   = lipgloss.Color("#EF4444")
	colorSuccess = lipgloss.Color("#22C55E")

	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	stylePhase = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(colorAccent).
			Padding(0, 1)
	styleSubtle    = lipgloss.NewStyle().Foreground(colorMuted)
	styleUser      = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	styleAssistant = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleThinking  = lipgloss.NewStyle().Italic(true).Foreground(colorMuted)
	styleChoiceKey = lipgloss.NewStyle().Bold(true).Foreground(colorSuccess)
	styleError     = lipgloss.NewStyle().Foreground(colorError)
	styleBorder    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted)
)
