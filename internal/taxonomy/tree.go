package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/taxonomy-explorer/internal/models"
)

var (
	// ErrMissingNodeID is returned by Build when a non-root node has no node_id.
	ErrMissingNodeID = errors.New("taxonomy: node without node_id")
	// ErrMalformedNodeID is returned by Build when a node_id contains the bigId separator.
	ErrMalformedNodeID = errors.New("taxonomy: node_id contains separator")
	// ErrDuplicateBigID is returned by Build when two siblings share a node_id.
	ErrDuplicateBigID = errors.New("taxonomy: duplicate bigId")
	// ErrInfoLoading is returned by ToggleInfo while a fetch for the same node is in flight.
	ErrInfoLoading = errors.New("taxonomy: info already loading")
	// ErrNotRendered is returned by Locate for a skipped node, which has no row of its own.
	ErrNotRendered = errors.New("taxonomy: node is not rendered")
)

// DetailProvider fetches the detail panel content of a category.
type DetailProvider interface {
	NodeInfo(ctx context.Context, name string, generationTask int) (string, error)
}

// Option configures a Tree at build time.
type Option func(*Tree)

// WithSkip marks every node whose name is listed as a pass-through node.
func WithSkip(names ...string) Option {
	return func(t *Tree) {
		for _, n := range names {
			t.skip[n] = struct{}{}
		}
	}
}

// WithRenderer sets the renderer driven by state transitions. Defaults to NopRenderer.
func WithRenderer(r Renderer) Option {
	return func(t *Tree) {
		t.renderer = r
	}
}

// WithDetails sets the detail panel provider used by ToggleInfo.
func WithDetails(p DetailProvider) Option {
	return func(t *Tree) {
		t.details = p
	}
}

// WithLabels sets the sink receiving attached labels.
func WithLabels(s LabelSink) Option {
	return func(t *Tree) {
		t.labels = s
	}
}

// WithGenerationTask sets the mode flag passed to the detail provider.
func WithGenerationTask(mode int) Option {
	return func(t *Tree) {
		t.generationTask = mode
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Tree) {
		t.logger = l
	}
}

// Tree is a built category hierarchy plus its mutable view state. All methods are safe
// for concurrent use.
type Tree struct {
	root  *Node
	index map[string]*Node
	order []*Node
	skip  map[string]struct{}

	renderer       Renderer
	details        DetailProvider
	labels         LabelSink
	generationTask int
	logger         *slog.Logger

	mu      sync.Mutex
	open    map[string]*Node
	info    map[string]*Node
	loading map[string]bool

	// locating serializes Locate calls.
	locating chan struct{}
}

// Build constructs a tree from raw in a single depth-first pass. The root is synthetic:
// it contributes neither to paths nor to bigIds.
func Build(raw *models.RawNode, opts ...Option) (*Tree, error) {
	if raw == nil {
		return nil, fmt.Errorf("taxonomy: build: nil root")
	}
	t := &Tree{
		index:    make(map[string]*Node),
		skip:     make(map[string]struct{}),
		renderer: NopRenderer{},
		logger:   slog.Default(),
		open:     make(map[string]*Node),
		info:     make(map[string]*Node),
		loading:  make(map[string]bool),
		locating: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(t)
	}

	t.root = &Node{Name: raw.Name, NodeID: raw.NodeID}
	for _, child := range raw.Children {
		if err := t.add(child, t.root); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Tree) add(raw *models.RawNode, parent *Node) error {
	if raw == nil {
		return nil
	}
	path := append(append([]string(nil), parent.Path...), raw.Name)
	if raw.NodeID == "" {
		return fmt.Errorf("%w: %s", ErrMissingNodeID, strings.Join(path, " / "))
	}
	if strings.Contains(raw.NodeID, Separator) {
		return fmt.Errorf("%w: %q at %s", ErrMalformedNodeID, raw.NodeID, strings.Join(path, " / "))
	}

	bigID := raw.NodeID
	if parent.BigID != "" {
		bigID = parent.BigID + Separator + raw.NodeID
	}
	if _, dup := t.index[bigID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateBigID, bigID)
	}

	_, skipped := t.skip[raw.Name]
	n := &Node{
		Name:    raw.Name,
		NodeID:  raw.NodeID,
		Path:    path,
		BigID:   bigID,
		Depth:   parent.Depth + 1,
		Skipped: skipped,
		Parent:  parent,
	}
	t.index[bigID] = n
	t.order = append(t.order, n)

	for _, child := range raw.Children {
		if err := t.add(child, n); err != nil {
			return err
		}
	}

	parent.Children = append(parent.Children, n)
	if n.Skipped {
		parent.Entries = append(parent.Entries, n.Entries...)
	} else {
		parent.Entries = append(parent.Entries, n)
	}
	return nil
}

// Root returns the synthetic root.
func (t *Tree) Root() *Node {
	return t.root
}

// Lookup resolves a bigId through the index.
func (t *Tree) Lookup(bigID string) (*Node, bool) {
	n, ok := t.index[bigID]
	return n, ok
}

// Len returns the number of indexed nodes.
func (t *Tree) Len() int {
	return len(t.order)
}

// Nodes returns every indexed node in build order.
func (t *Tree) Nodes() []*Node {
	return append([]*Node(nil), t.order...)
}

// Find returns every node named name, in build order.
func (t *Tree) Find(name string) []*Node {
	var out []*Node
	for _, n := range t.order {
		if n.Name == name {
			out = append(out, n)
		}
	}
	return out
}

// IsExpanded reports whether n's children are shown. The root is always expanded.
func (t *Tree) IsExpanded(n *Node) bool {
	if n.IsRoot() {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.open[n.BigID]
	return ok
}

// IsInfoVisible reports whether n's detail panel is open.
func (t *Tree) IsInfoVisible(n *Node) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.info[n.BigID]
	return ok
}

// Expanded returns the open set in build order.
func (t *Tree) Expanded() []*Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inOrder(t.open)
}

// InfoVisible returns the info-visible set in build order.
func (t *Tree) InfoVisible() []*Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inOrder(t.info)
}

// inOrder must be called with t.mu held.
func (t *Tree) inOrder(set map[string]*Node) []*Node {
	if len(set) == 0 {
		return nil
	}
	out := make([]*Node, 0, len(set))
	for _, n := range t.order {
		if _, ok := set[n.BigID]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Row is one rendered line of the tree.
type Row struct {
	Node *Node
	// Level is the rendered nesting level; it differs from Depth below skipped nodes.
	Level int
}

// Visible returns the rows currently shown, top to bottom.
func (t *Tree) Visible() []Row {
	t.mu.Lock()
	defer t.mu.Unlock()
	var rows []Row
	var walk func(entries []*Node, level int)
	walk = func(entries []*Node, level int) {
		for _, n := range entries {
			rows = append(rows, Row{Node: n, Level: level})
			if _, ok := t.open[n.BigID]; ok {
				walk(n.Entries, level+1)
			}
		}
	}
	walk(t.root.Entries, 0)
	return rows
}
