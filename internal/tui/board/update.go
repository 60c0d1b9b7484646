package board

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/charmbracelet/bubbles/spinner"
)

// Update handles messages and keybindings.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		// Ages drift every second even when nothing refreshes.
		m.reloadViews()
		return m, tickCmd()

	case RefreshCompleteMsg:
		m.refreshing = false
		m.errMsg = ""
		if msg.Summary != nil && msg.Summary.FlushError != "" {
			m.errMsg = "cache flush failed: " + msg.Summary.FlushError
		}
		m.reloadViews()
		return m, nil

	case RefreshErrorMsg:
		m.refreshing = false
		m.errMsg = msg.Err.Error()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.views)-1 {
			m.cursor++
		}
		return m, nil

	case "r":
		if m.refreshing {
			return m, nil
		}
		m.refreshing = true
		m.errMsg = ""
		return m, refreshCmd(m.engine)
	}

	return m, nil
}
