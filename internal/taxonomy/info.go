package taxonomy

import (
	"context"
	"fmt"
	"log/slog"
)

// ToggleInfo opens n's detail panel, fetching its content first, or closes it when
// already open. While a fetch for n is outstanding further calls return ErrInfoLoading.
//
// The fetch is not canceled with ctx: a response that arrives after the caller gave up
// still opens the panel. A failed fetch leaves the state untouched and is reported to the
// renderer for n alone.
func (t *Tree) ToggleInfo(ctx context.Context, n *Node) error {
	if n.IsRoot() {
		return nil
	}

	t.mu.Lock()
	if _, ok := t.info[n.BigID]; ok {
		delete(t.info, n.BigID)
		t.mu.Unlock()
		return Wait(ctx, t.renderer.HideInfo(n))
	}
	if t.loading[n.BigID] {
		t.mu.Unlock()
		return ErrInfoLoading
	}
	if t.details == nil {
		t.mu.Unlock()
		return fmt.Errorf("taxonomy: info %s: no detail provider", n.BigID)
	}
	t.loading[n.BigID] = true
	t.mu.Unlock()

	content, err := t.details.NodeInfo(context.WithoutCancel(ctx), n.Name, t.generationTask)

	t.mu.Lock()
	delete(t.loading, n.BigID)
	if err != nil {
		t.mu.Unlock()
		t.logger.Warn("taxonomy: info fetch failed",
			slog.String("big_id", n.BigID),
			slog.String("name", n.Name),
			slog.String("error", err.Error()))
		t.renderer.InfoFailed(n, err)
		return fmt.Errorf("taxonomy: info %s: %w", n.BigID, err)
	}
	t.info[n.BigID] = n
	t.mu.Unlock()

	return Wait(ctx, t.renderer.ShowInfo(n, content))
}

// HideInfo closes n's detail panel. Hiding a closed panel is a no-op.
func (t *Tree) HideInfo(n *Node) Transition {
	t.mu.Lock()
	if _, ok := t.info[n.BigID]; !ok {
		t.mu.Unlock()
		return Resolved()
	}
	delete(t.info, n.BigID)
	t.mu.Unlock()
	return t.renderer.HideInfo(n)
}

// IsInfoLoading reports whether a detail fetch for n is in flight.
func (t *Tree) IsInfoLoading(n *Node) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading[n.BigID]
}
