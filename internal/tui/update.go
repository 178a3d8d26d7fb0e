package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/taxonomy-explorer/internal/taxonomy"
)

// Update handles renderer messages, operation results and keys.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.relayout()
		m.follow()
		return m, nil

	case revealMsg:
		m.revealed[msg.bigID] = true
		m.relayout()
		return m, m.r.finish(msg.done)

	case hideMsg:
		delete(m.revealed, msg.bigID)
		m.relayout()
		return m, m.r.finish(msg.done)

	case showInfoMsg:
		m.panels[msg.bigID] = plainText(msg.content)
		m.loadClips(msg.bigID, msg.content)
		delete(m.failed, msg.bigID)
		m.relayout()
		return m, m.r.finish(msg.done)

	case hideInfoMsg:
		delete(m.panels, msg.bigID)
		m.dropClips(msg.bigID)
		m.relayout()
		return m, m.r.finish(msg.done)

	case infoFailedMsg:
		m.failed[msg.bigID] = msg.err.Error()
		m.relayout()
		return m, nil

	case scrollMsg:
		m.offset = msg.offset
		return m, m.r.finish(msg.done)

	case playTickMsg:
		return m.advance()

	case transitionDoneMsg:
		close(msg.done)
		return m, nil

	case opDoneMsg:
		if msg.err != nil {
			if !errors.Is(msg.err, context.Canceled) {
				m.logger.Warn("tui: operation failed",
					slog.String("op", msg.op),
					slog.String("error", msg.err.Error()))
			}
			m.status = fmt.Sprintf("%s: %v", msg.op, msg.err)
			return m, nil
		}
		if msg.focus != "" {
			if i := m.rowOf(msg.focus); i >= 0 {
				m.cursor = i
			}
		}
		m.status = ""
		return m, nil

	case tea.KeyMsg:
		if m.locating {
			return m.updateInput(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		bigID := strings.TrimSpace(m.input.Value())
		m.locating = false
		m.input.Blur()
		if bigID == "" {
			return m, nil
		}
		m.status = "locating " + bigID
		return m, m.run("locate", bigID, func(ctx context.Context) error {
			return m.ctrl.Locate(ctx, bigID)
		})
	case tea.KeyEsc:
		m.locating = false
		m.input.Blur()
		m.input.SetValue("")
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.follow()
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
			m.follow()
		}
	case "enter", " ", "space":
		if n := m.Selected(); n != nil {
			return m, m.run("toggle", n.BigID, func(ctx context.Context) error {
				return m.ctrl.Toggle(ctx, n.BigID)
			})
		}
	case "i":
		if n := m.Selected(); n != nil {
			return m, m.run("info", n.BigID, func(ctx context.Context) error {
				return m.ctrl.ToggleInfo(ctx, n.BigID)
			})
		}
	case "l":
		if n := m.Selected(); n != nil {
			m.status = labelStatus(m.ctrl.AddLabel(n.BigID))
		}
	case "L":
		if n := m.Selected(); n != nil {
			if err := m.ctrl.RemoveLabel(n.BigID); err != nil {
				m.status = "unlabel: " + err.Error()
			} else {
				m.status = "removed label " + n.Name
			}
		}
	case "p", "s", "r", "v":
		return m.updatePlayer(msg.String())
	case "c":
		return m, m.run("collapse", "", m.ctrl.CollapseAll)
	case "/":
		m.locating = true
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func labelStatus(l taxonomy.Label, err error) string {
	if err != nil {
		return "label: " + err.Error()
	}
	if len(l.Propagate) == 0 {
		return "labeled " + l.Name
	}
	return fmt.Sprintf("labeled %s (%s)", l.Name, strings.Join(l.Propagate, " > "))
}
