package board

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/signalboard/internal/signal"
)

var (
	successColor = lipgloss.Color("42")
	warningColor = lipgloss.Color("226")
	errorColor   = lipgloss.Color("196")
	mutedColor   = lipgloss.Color("245")
	primaryColor = lipgloss.Color("99")
	accentColor  = lipgloss.Color("212")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	okStyle      = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(warningColor).Bold(true)
	badStyle     = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	unknownStyle = lipgloss.NewStyle().Foreground(mutedColor)

	selectedStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	ageStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorBarStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)

func statusIcon(s signal.Status) string {
	switch s {
	case signal.StatusOK:
		return "●"
	case signal.StatusWarn:
		return "◐"
	case signal.StatusBad:
		return "✗"
	default:
		return "?"
	}
}

func statusStyle(s signal.Status) lipgloss.Style {
	switch s {
	case signal.StatusOK:
		return okStyle
	case signal.StatusWarn:
		return warnStyle
	case signal.StatusBad:
		return badStyle
	default:
		return unknownStyle
	}
}
