// Package tui is the terminal front end of the taxonomy explorer.
package tui

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/taxonomy-explorer/internal/explorer"
	"github.com/starford/taxonomy-explorer/internal/player"
	"github.com/starford/taxonomy-explorer/internal/taxonomy"
)

// footerLines is the space reserved below the tree for labels and status.
const footerLines = 2

type row struct {
	node   *taxonomy.Node
	level  int
	top    int
	height int
}

// opDoneMsg reports the end of a tree operation started from a key press.
type opDoneMsg struct {
	op    string
	focus string
	err   error
}

// Model is the bubbletea model. Its visual state (revealed nodes, open panels,
// scroll offset) follows the tree through the messages the Renderer posts.
type Model struct {
	ctrl   *explorer.Controller
	tree   *taxonomy.Tree
	r      *Renderer
	logger *slog.Logger
	ctx    context.Context

	revealed map[string]bool
	panels   map[string][]string
	failed   map[string]string
	clips    map[string][]clip

	players *player.Registry
	ticking bool

	rows   []row
	cursor int
	offset int
	width  int
	height int

	input    textinput.Model
	locating bool
	status   string
}

// New returns a model over the controller's loaded tree. The controller must have
// been built with r as its renderer.
func New(ctx context.Context, ctrl *explorer.Controller, r *Renderer, logger *slog.Logger) (Model, error) {
	tree := ctrl.Tree()
	if tree == nil {
		return Model{}, explorer.ErrNotLoaded
	}
	if logger == nil {
		logger = slog.Default()
	}
	ti := textinput.New()
	ti.Placeholder = "bigId, e.g. 0,2,1"
	ti.CharLimit = 128
	ti.Width = 32

	m := Model{
		ctrl:     ctrl,
		tree:     tree,
		r:        r,
		logger:   logger,
		ctx:      ctx,
		revealed: make(map[string]bool),
		panels:   make(map[string][]string),
		failed:   make(map[string]string),
		clips:    make(map[string][]clip),
		players:  player.NewRegistry(),
		input:    ti,
	}
	m.relayout()
	return m, nil
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Selected returns the node under the cursor, or nil for an empty tree.
func (m Model) Selected() *taxonomy.Node {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor].node
}

func (m Model) viewport() int {
	if m.height <= footerLines {
		return 0
	}
	return m.height - footerLines
}

// relayout recomputes the rows from the visual state, keeps the cursor on the
// selected node or its nearest shown ancestor, and publishes the geometry.
func (m *Model) relayout() {
	selected := m.Selected()

	m.rows = nil
	top := 0
	var walk func(entries []*taxonomy.Node, level int)
	walk = func(entries []*taxonomy.Node, level int) {
		for _, n := range entries {
			h := 1 + len(m.panels[n.BigID]) + len(m.clips[n.BigID])
			if _, ok := m.failed[n.BigID]; ok {
				h++
			}
			m.rows = append(m.rows, row{node: n, level: level, top: top, height: h})
			top += h
			if m.revealed[n.BigID] {
				walk(n.Entries, level+1)
			}
		}
	}
	walk(m.tree.Root().Entries, 0)

	m.cursor = 0
	for n := selected; n != nil; n = n.Parent {
		if i := m.rowOf(n.BigID); i >= 0 {
			m.cursor = i
			break
		}
	}

	l := layout{
		top:      make(map[string]int, len(m.rows)),
		height:   make(map[string]int, len(m.rows)),
		viewport: m.viewport(),
	}
	for _, rw := range m.rows {
		l.top[rw.node.BigID] = rw.top
		l.height[rw.node.BigID] = rw.height
	}
	m.r.setLayout(l)
}

func (m Model) rowOf(bigID string) int {
	for i, rw := range m.rows {
		if rw.node.BigID == bigID {
			return i
		}
	}
	return -1
}

// follow scrolls just enough to keep the cursor row on screen.
func (m *Model) follow() {
	vh := m.viewport()
	if vh == 0 || len(m.rows) == 0 {
		return
	}
	rw := m.rows[m.cursor]
	if rw.top < m.offset {
		m.offset = rw.top
	}
	if end := rw.top + rw.height; end > m.offset+vh {
		m.offset = end - vh
	}
}

// run executes a tree operation off the update loop.
func (m Model) run(op, focus string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, focus: focus, err: fn(ctx)}
	}
}
