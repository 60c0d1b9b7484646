package board

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/signalboard/internal/engine"
)

// refreshCmd runs a forced refresh batch off the UI goroutine.
func refreshCmd(eng *engine.Engine) tea.Cmd {
	return func() tea.Msg {
		summary, err := eng.RefreshAll(context.Background(), true)
		if err != nil {
			return RefreshErrorMsg{Err: err}
		}
		return RefreshCompleteMsg{Summary: summary}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
