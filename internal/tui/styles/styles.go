// Package styles provides shared lipgloss styles for TUI components.
package styles

import "github.com/charmbracelet/lipgloss"

// Color palette using ANSI colors for broad terminal compatibility.
var (
	Primary   = lipgloss.Color("4")   // Blue
	Secondary = lipgloss.Color("245") // Light gray (visible on dark backgrounds)
	Success   = lipgloss.Color("2")   // Green
	Warning   = lipgloss.Color("3")   // Yellow
	Error     = lipgloss.Color("1")   // Red
	Highlight = lipgloss.Color("12")  // Bright blue
	Muted     = lipgloss.Color("245") // Light gray (visible on dark backgrounds)
)

// Text styles.
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(Secondary).
			Italic(true)

	ErrorText = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	SuccessText = lipgloss.NewStyle().
			Foreground(Success)

	MutedText = lipgloss.NewStyle().
			Foreground(Muted)

	HelpText = lipgloss.NewStyle().
			Foreground(Secondary).
			Italic(true)
)

// Chat styles.
var (
	UserLabel = lipgloss.NewStyle().
			Bold(true).
			Foreground(Highlight)

	AssistantLabel = lipgloss.NewStyle().
			Bold(true).
			Foreground(Success)

	DegradedBadge = lipgloss.NewStyle().
			Foreground(Warning).
			Italic(true)

	SourceLine = lipgloss.NewStyle().
			Foreground(Muted)

	InputBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Secondary).
			Padding(0, 1)
)

// Layout styles.
var Container = lipgloss.NewStyle().
	PaddingTop(1).
	PaddingLeft(2).
	PaddingRight(2)
