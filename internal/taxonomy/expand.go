package taxonomy

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// OpenChildren marks n expanded and asks the renderer to reveal its entries. The state
// changes before the call returns; the returned Transition tracks the reveal.
// Leaves, skipped nodes, the root and already expanded nodes are no-ops.
func (t *Tree) OpenChildren(n *Node) Transition {
	if n.IsRoot() || n.Skipped || n.IsLeaf() {
		return Resolved()
	}
	t.mu.Lock()
	if _, ok := t.open[n.BigID]; ok {
		t.mu.Unlock()
		return Resolved()
	}
	t.open[n.BigID] = n
	t.mu.Unlock()
	return t.renderer.RevealChildren(n)
}

// CloseChildren is the inverse of OpenChildren. Closing a collapsed node is a no-op.
func (t *Tree) CloseChildren(n *Node) Transition {
	t.mu.Lock()
	if _, ok := t.open[n.BigID]; !ok {
		t.mu.Unlock()
		return Resolved()
	}
	delete(t.open, n.BigID)
	t.mu.Unlock()
	return t.renderer.HideChildren(n)
}

// ToggleChildren closes n if expanded and opens it otherwise.
func (t *Tree) ToggleChildren(n *Node) Transition {
	if t.IsExpanded(n) && !n.IsRoot() {
		return t.CloseChildren(n)
	}
	return t.OpenChildren(n)
}

// CollapseAll closes every expanded node and hides every open info panel. All
// transitions run concurrently; CollapseAll returns once each of them has completed.
func (t *Tree) CollapseAll(ctx context.Context) error {
	t.mu.Lock()
	open := t.inOrder(t.open)
	info := t.inOrder(t.info)
	t.mu.Unlock()

	if len(open) == 0 && len(info) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, n := range open {
		tr := t.CloseChildren(n)
		g.Go(func() error { return Wait(gctx, tr) })
	}
	for _, n := range info {
		tr := t.HideInfo(n)
		g.Go(func() error { return Wait(gctx, tr) })
	}
	return g.Wait()
}
