package tui

import "github.com/charmbracelet/lipgloss"

// Styles groups the lipgloss styles used by the view.
type Styles struct {
	Header      lipgloss.Style
	HeaderPath  lipgloss.Style
	Directory   lipgloss.Style
	File        lipgloss.Style
	Cursor      lipgloss.Style
	Empty       lipgloss.Style
	Information lipgloss.Style
	Error       lipgloss.Style
}

// DefaultStyles returns the default styles.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
			Background(lipgloss.AdaptiveColor{Light: "#5277C3", Dark: "#7EBAE4"}).
			Padding(0, 1),
		HeaderPath: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#AAAAAA"}).
			PaddingLeft(1),
		Directory: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5277C3", Dark: "#7EBAE4"}),
		File: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#E8E8E8"}),
		Cursor: lipgloss.NewStyle().
			Reverse(true),
		Empty: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#888888", Dark: "#777777"}),
		Information: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#50FA7B"}),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF5555"}),
	}
}
