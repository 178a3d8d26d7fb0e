package tui

import (
	"strings"
)

// View renders the visible window of the tree plus the footer.
func (m Model) View() string {
	labeled := make(map[string]bool)
	var names []string
	for _, l := range m.ctrl.Labels() {
		labeled[l.BigID] = true
		names = append(names, l.Name)
	}

	var lines []string
	for i, rw := range m.rows {
		n := rw.node
		marker := " "
		switch {
		case n.IsLeaf():
		case m.revealed[n.BigID]:
			marker = "▾"
		default:
			marker = "▸"
		}
		line := strings.Repeat("  ", rw.level) + markerStyle.Render(marker) + " " + n.Name
		if labeled[n.BigID] {
			line += " " + labelStyle.Render("●")
		}
		if i == m.cursor {
			line = cursorStyle.Render(line)
		}
		lines = append(lines, line)

		indent := strings.Repeat("  ", rw.level+1)
		for _, p := range m.panels[n.BigID] {
			lines = append(lines, panelStyle.Render(indent+p))
		}
		for _, c := range m.clips[n.BigID] {
			lines = append(lines, clipStyle.Render(indent+clipLine(c)))
		}
		if msg, ok := m.failed[n.BigID]; ok {
			lines = append(lines, errorStyle.Render(indent+"info unavailable: "+msg))
		}
	}

	if vh := m.viewport(); vh > 0 {
		start := min(m.offset, max(len(lines)-1, 0))
		end := min(start+vh, len(lines))
		lines = lines[start:end]
	}

	var b strings.Builder
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")
	if len(names) > 0 {
		b.WriteString(labelStyle.Render("labels: " + strings.Join(names, ", ")))
	}
	b.WriteString("\n")
	switch {
	case m.locating:
		b.WriteString(promptStyle.Render("locate: ") + m.input.View())
	case m.status != "":
		b.WriteString(statusStyle.Render(m.status))
	default:
		b.WriteString(statusStyle.Render("↑/↓ move • enter toggle • i info • p/s/r/v sound • l/L label • c collapse • / locate • q quit"))
	}
	return b.String()
}
