package tui

import "github.com/charmbracelet/lipgloss"

var (
	cursorStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	markerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("44"))
	panelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).PaddingLeft(2)
	clipStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("108")).PaddingLeft(2)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	promptStyle = lipgloss.NewStyle().Bold(true)
)
