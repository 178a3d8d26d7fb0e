package taxonomy

import "context"

// Transition completes when the renderer has finished the visual change it was asked for.
// A nil Transition counts as already complete.
type Transition <-chan struct{}

var resolved = func() Transition {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Resolved returns a Transition that is already complete.
func Resolved() Transition {
	return resolved
}

// Wait blocks until tr completes or ctx is done.
func Wait(ctx context.Context, tr Transition) error {
	if tr == nil {
		return nil
	}
	select {
	case <-tr:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Geometry is the on-screen extent of a rendered node, in renderer units.
type Geometry struct {
	Top      int
	Height   int
	Viewport int
}

// TopMargin is the gap kept above a node that does not fit in the viewport.
const TopMargin = 1

// ScrollOffset returns the scroll position that brings g into view: centered when the
// node is shorter than the viewport, otherwise TopMargin below the top edge.
func ScrollOffset(g Geometry) int {
	var off int
	switch {
	case g.Viewport <= 0:
		off = g.Top
	case g.Height < g.Viewport:
		off = g.Top - (g.Viewport-g.Height)/2
	default:
		off = g.Top - TopMargin
	}
	return max(off, 0)
}

// Renderer draws a tree. Every method that returns a Transition must eventually
// complete it; the tree never holds its lock while calling the renderer.
//
// Measure reports false for a node that is not part of the current layout.
type Renderer interface {
	RevealChildren(n *Node) Transition
	HideChildren(n *Node) Transition
	ShowInfo(n *Node, content string) Transition
	HideInfo(n *Node) Transition
	InfoFailed(n *Node, err error)
	Measure(n *Node) (Geometry, bool)
	ScrollTo(n *Node, offset int) Transition
}

// NopRenderer completes every transition immediately.
type NopRenderer struct{}

func (NopRenderer) RevealChildren(*Node) Transition   { return Resolved() }
func (NopRenderer) HideChildren(*Node) Transition     { return Resolved() }
func (NopRenderer) ShowInfo(*Node, string) Transition { return Resolved() }
func (NopRenderer) HideInfo(*Node) Transition         { return Resolved() }
func (NopRenderer) InfoFailed(*Node, error)           {}
func (NopRenderer) Measure(*Node) (Geometry, bool)    { return Geometry{}, false }
func (NopRenderer) ScrollTo(*Node, int) Transition    { return Resolved() }
