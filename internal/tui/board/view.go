package board

import (
	"fmt"
	"strings"
)

// View renders the board: one line per signal, cursor on the selected row.
func (m Model) View() string {
	var b strings.Builder

	title := "SignalBoard"
	if m.refreshing {
		title += "  " + m.spinner.View() + "refreshing..."
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	if len(m.views) == 0 {
		b.WriteString(unknownStyle.Render("no signals registered"))
		b.WriteString("\n")
	}

	for i, v := range m.views {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		line := fmt.Sprintf("%s%s %-7s %-28.28s %-30.30s %s",
			cursor,
			statusStyle(v.Status).Render(statusIcon(v.Status)),
			v.Status,
			v.Title,
			v.Value,
			ageStyle.Render(v.Age),
		)
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")

		if i == m.cursor && v.Details != "" {
			b.WriteString(ageStyle.Render("      " + v.Details))
			b.WriteString("\n")
		}
	}

	if m.errMsg != "" {
		b.WriteString(errorBarStyle.Render("error: " + m.errMsg))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("r refresh · ↑/↓ move · q quit"))
	b.WriteString("\n")

	return b.String()
}
