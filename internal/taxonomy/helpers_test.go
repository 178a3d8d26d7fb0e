package taxonomy

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/starford/taxonomy-explorer/internal/models"
)

// sampleRaw is the two-branch tree used throughout the tests:
//
//	root
//	├── A (0)
//	│   └── A1 (0,0)
//	└── B (1)
func sampleRaw() *models.RawNode {
	return &models.RawNode{
		Name: "root",
		Children: []*models.RawNode{
			{Name: "A", NodeID: "0", Children: []*models.RawNode{
				{Name: "A1", NodeID: "0"},
			}},
			{Name: "B", NodeID: "1"},
		},
	}
}

// deepRaw has a leaf at depth 3 plus an unrelated branch:
//
//	root
//	├── Animal (0)
//	│   ├── Dog (0,0)
//	│   │   └── Bark (0,0,0)
//	│   └── Cat (0,1)
//	│       └── Meow (0,1,0)
//	└── Music (1)
//	    └── Guitar (1,0)
func deepRaw() *models.RawNode {
	return &models.RawNode{
		Name: "root",
		Children: []*models.RawNode{
			{Name: "Animal", NodeID: "0", Children: []*models.RawNode{
				{Name: "Dog", NodeID: "0", Children: []*models.RawNode{
					{Name: "Bark", NodeID: "0"},
				}},
				{Name: "Cat", NodeID: "1", Children: []*models.RawNode{
					{Name: "Meow", NodeID: "0"},
				}},
			}},
			{Name: "Music", NodeID: "1", Children: []*models.RawNode{
				{Name: "Guitar", NodeID: "0"},
			}},
		},
	}
}

func mustBuild(t *testing.T, raw *models.RawNode, opts ...Option) *Tree {
	t.Helper()
	tree, err := Build(raw, opts...)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tree
}

func mustLookup(t *testing.T, tree *Tree, bigID string) *Node {
	t.Helper()
	n, ok := tree.Lookup(bigID)
	if !ok {
		t.Fatalf("Lookup(%q) missing", bigID)
	}
	return n
}

// recorder is a Renderer that logs every call. With gated set, transitions stay
// pending until release is called.
type recorder struct {
	mu       sync.Mutex
	calls    []string
	gated    bool
	pending  []chan struct{}
	geometry Geometry
	// unmeasured makes Measure report every node as off-layout.
	unmeasured bool
	scrolled map[string]int
	failures map[string]error
	shown    map[string]string
}

func newRecorder() *recorder {
	return &recorder{
		scrolled: make(map[string]int),
		failures: make(map[string]error),
		shown:    make(map[string]string),
	}
}

func (r *recorder) record(op string, n *Node) Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, op+" "+n.BigID)
	if !r.gated {
		return Resolved()
	}
	ch := make(chan struct{})
	r.pending = append(r.pending, ch)
	return ch
}

func (r *recorder) RevealChildren(n *Node) Transition { return r.record("reveal", n) }
func (r *recorder) HideChildren(n *Node) Transition   { return r.record("hide", n) }

func (r *recorder) ShowInfo(n *Node, content string) Transition {
	r.mu.Lock()
	r.shown[n.BigID] = content
	r.mu.Unlock()
	return r.record("show-info", n)
}

func (r *recorder) HideInfo(n *Node) Transition { return r.record("hide-info", n) }

func (r *recorder) InfoFailed(n *Node, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[n.BigID] = err
}

func (r *recorder) Measure(*Node) (Geometry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.geometry, !r.unmeasured
}

func (r *recorder) ScrollTo(n *Node, offset int) Transition {
	r.mu.Lock()
	r.scrolled[n.BigID] = offset
	r.mu.Unlock()
	return r.record("scroll", n)
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *recorder) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.pending {
		close(ch)
	}
	r.pending = nil
}

// ungate completes pending transitions and stops gating new ones.
func (r *recorder) ungate() {
	r.mu.Lock()
	r.gated = false
	r.mu.Unlock()
	r.release()
}

// detailsFunc adapts a function to DetailProvider.
type detailsFunc func(ctx context.Context, name string, generationTask int) (string, error)

func (f detailsFunc) NodeInfo(ctx context.Context, name string, generationTask int) (string, error) {
	return f(ctx, name, generationTask)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Fatal(msg)
}
