package tui

import "github.com/charmbracelet/lipgloss"

var (
	Primary  = lipgloss.Color("#3B82F6") // blue-500
	Accent   = lipgloss.Color("#22C55E") // green-500
	ErrorCol = lipgloss.Color("#EF4444")
	Text     = lipgloss.Color("#F9FAFB")
	Muted    = lipgloss.Color("#9CA3AF")

	HeaderStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			Padding(1, 1, 0, 1)

	TabStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Padding(0, 2)

	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(Text).
			Background(Primary).
			Bold(true).
			Padding(0, 2)

	CardStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Muted).
			MarginLeft(1)

	SectionTitleStyle = lipgloss.NewStyle().
				Foreground(Text).
				Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	BadgeStyle = lipgloss.NewStyle().
			Foreground(Text).
			Background(Primary).
			Bold(true).
			Padding(0, 1)

	LiveStyle = lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true)

	SelectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1E3A8A")).
			Padding(0, 1)

	UnselectedStyle = lipgloss.NewStyle().
			Padding(0, 1)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ErrorCol).
			PaddingLeft(2)

	FooterStyle = lipgloss.NewStyle().
			Foreground(Muted).
			MarginTop(1).
			PaddingLeft(2).
			Faint(true)
)
