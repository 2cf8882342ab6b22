package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	Title    lipgloss.Style
	Item     lipgloss.Style
	Selected lipgloss.Style
	Body     lipgloss.Style
	Error    lipgloss.Style
	Muted    lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#bd93f9")).MarginBottom(1),
		Item:     lipgloss.NewStyle().PaddingLeft(2),
		Selected: lipgloss.NewStyle().PaddingLeft(1).Foreground(lipgloss.Color("#50fa7b")).Bold(true),
		Body:     lipgloss.NewStyle().Width(72),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555")),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6272a4")).Italic(true),
	}
}
