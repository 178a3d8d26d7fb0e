package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/taxonomy-explorer/internal/taxonomy"
)

// Messages posted by the Renderer into the program. Each carries the channel that
// completes the corresponding taxonomy.Transition.
type (
	revealMsg struct {
		bigID string
		done  chan struct{}
	}
	hideMsg struct {
		bigID string
		done  chan struct{}
	}
	showInfoMsg struct {
		bigID   string
		content string
		done    chan struct{}
	}
	hideInfoMsg struct {
		bigID string
		done  chan struct{}
	}
	infoFailedMsg struct {
		bigID string
		err   error
	}
	scrollMsg struct {
		offset int
		done   chan struct{}
	}
	// transitionDoneMsg arrives once the animation of a transition has elapsed.
	transitionDoneMsg struct {
		done chan struct{}
	}
)

// layout is the last rendered geometry, shared with Measure.
type layout struct {
	top      map[string]int
	height   map[string]int
	viewport int
}

// Renderer implements taxonomy.Renderer on top of a bubbletea program. Tree
// operations must run outside the program's update loop (in a tea.Cmd), since
// every call posts a message and the returned Transition completes only after the
// model has handled it.
type Renderer struct {
	animation time.Duration

	mu     sync.Mutex
	send   func(tea.Msg)
	layout layout
}

var _ taxonomy.Renderer = (*Renderer)(nil)

// NewRenderer returns a renderer whose transitions last animation.
func NewRenderer(animation time.Duration) *Renderer {
	return &Renderer{animation: animation}
}

// Attach connects the renderer to a running program, typically (*tea.Program).Send.
// Until then every transition completes immediately.
func (r *Renderer) Attach(send func(tea.Msg)) {
	r.mu.Lock()
	r.send = send
	r.mu.Unlock()
}

func (r *Renderer) post(build func(done chan struct{}) tea.Msg) taxonomy.Transition {
	r.mu.Lock()
	send := r.send
	r.mu.Unlock()
	if send == nil {
		return taxonomy.Resolved()
	}
	done := make(chan struct{})
	send(build(done))
	return done
}

func (r *Renderer) RevealChildren(n *taxonomy.Node) taxonomy.Transition {
	return r.post(func(done chan struct{}) tea.Msg { return revealMsg{bigID: n.BigID, done: done} })
}

func (r *Renderer) HideChildren(n *taxonomy.Node) taxonomy.Transition {
	return r.post(func(done chan struct{}) tea.Msg { return hideMsg{bigID: n.BigID, done: done} })
}

func (r *Renderer) ShowInfo(n *taxonomy.Node, content string) taxonomy.Transition {
	return r.post(func(done chan struct{}) tea.Msg {
		return showInfoMsg{bigID: n.BigID, content: content, done: done}
	})
}

func (r *Renderer) HideInfo(n *taxonomy.Node) taxonomy.Transition {
	return r.post(func(done chan struct{}) tea.Msg { return hideInfoMsg{bigID: n.BigID, done: done} })
}

func (r *Renderer) InfoFailed(n *taxonomy.Node, err error) {
	r.mu.Lock()
	send := r.send
	r.mu.Unlock()
	if send != nil {
		send(infoFailedMsg{bigID: n.BigID, err: err})
	}
}

// Measure reports n's position in the last rendered layout.
func (r *Renderer) Measure(n *taxonomy.Node) (taxonomy.Geometry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	top, ok := r.layout.top[n.BigID]
	if !ok {
		return taxonomy.Geometry{}, false
	}
	return taxonomy.Geometry{
		Top:      top,
		Height:   r.layout.height[n.BigID],
		Viewport: r.layout.viewport,
	}, true
}

func (r *Renderer) ScrollTo(_ *taxonomy.Node, offset int) taxonomy.Transition {
	return r.post(func(done chan struct{}) tea.Msg { return scrollMsg{offset: offset, done: done} })
}

func (r *Renderer) setLayout(l layout) {
	r.mu.Lock()
	r.layout = l
	r.mu.Unlock()
}

// finish completes done after the animation, or at once when there is none.
func (r *Renderer) finish(done chan struct{}) tea.Cmd {
	if r.animation <= 0 {
		close(done)
		return nil
	}
	return tea.Tick(r.animation, func(time.Time) tea.Msg { return transitionDoneMsg{done: done} })
}
