package ui

import "github.com/charmbracelet/lipgloss"

// Theme defines the colors used by interactive output.
// Use DarkTheme() or LightTheme() to get a pre-built theme.
type Theme struct {
	Primary   lipgloss.Color // spinner, titles
	Secondary lipgloss.Color // pane and command ids
	Error     lipgloss.Color // failed commands, non-zero exit codes
	Warning   lipgloss.Color // timeouts, assumed exit codes
	Success   lipgloss.Color // completed commands
	Text      lipgloss.Color // pane content
	TextMuted lipgloss.Color // hints, elapsed time
	Border    lipgloss.Color // separators
}

// DarkTheme returns the default theme for dark terminal backgrounds.
func DarkTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("#fab283"),
		Secondary: lipgloss.Color("#5c9cf5"),
		Error:     lipgloss.Color("#e06c75"),
		Warning:   lipgloss.Color("#f5a742"),
		Success:   lipgloss.Color("#7fd88f"),
		Text:      lipgloss.Color("#eeeeee"),
		TextMuted: lipgloss.Color("#808080"),
		Border:    lipgloss.Color("#484848"),
	}
}

// LightTheme returns a theme for bright terminal backgrounds.
func LightTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("#b35c00"),
		Secondary: lipgloss.Color("#0550ae"),
		Error:     lipgloss.Color("#cf222e"),
		Warning:   lipgloss.Color("#bf8700"),
		Success:   lipgloss.Color("#116329"),
		Text:      lipgloss.Color("#1f2328"),
		TextMuted: lipgloss.Color("#656d76"),
		Border:    lipgloss.Color("#d0d7de"),
	}
}

// ThemeByName returns a theme by name. Defaults to dark.
func ThemeByName(name string) Theme {
	switch name {
	case "light":
		return LightTheme()
	default:
		return DarkTheme()
	}
}

// styles holds all lipgloss styles derived from a Theme.
type styles struct {
	title   lipgloss.Style
	id      lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
	text    lipgloss.Style
	dim     lipgloss.Style
	rule    lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		id:      lipgloss.NewStyle().Foreground(t.Secondary),
		success: lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		warn:    lipgloss.NewStyle().Foreground(t.Warning),
		err:     lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		text:    lipgloss.NewStyle().Foreground(t.Text),
		dim:     lipgloss.NewStyle().Foreground(t.TextMuted),
		rule:    lipgloss.NewStyle().Foreground(t.Border),
	}
}
