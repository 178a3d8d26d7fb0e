package taxonomy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/taxonomy-explorer/internal/apperr"
)

// Locate makes the node at bigID visible and scrolls it into view. It collapses the whole
// tree first, then opens the ancestor chain root-to-leaf, waiting for each reveal before
// opening the next level, and finally scrolls once the layout has settled.
//
// Calls are serialized per tree. If part of bigID does not resolve, Locate returns an
// error wrapping apperr.ErrNotFound; ancestors opened before the failure stay open.
// A skipped target yields ErrNotRendered after its ancestors are opened, so its spliced
// entries are on screen. When the renderer cannot measure the target, no scroll is issued.
func (t *Tree) Locate(ctx context.Context, bigID string) error {
	select {
	case t.locating <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-t.locating }()

	if bigID == "" {
		return fmt.Errorf("taxonomy: locate: empty bigId: %w", apperr.ErrNotFound)
	}

	if err := t.CollapseAll(ctx); err != nil {
		return fmt.Errorf("taxonomy: locate %s: collapse: %w", bigID, err)
	}

	target, err := t.openPath(ctx, bigID)
	if err != nil {
		return err
	}

	if target.Skipped {
		return fmt.Errorf("taxonomy: locate %s: %w", bigID, ErrNotRendered)
	}

	g, ok := t.renderer.Measure(target)
	if !ok {
		t.logger.Debug("taxonomy: located without layout", slog.String("big_id", bigID))
		return nil
	}
	off := ScrollOffset(g)
	if err := Wait(ctx, t.renderer.ScrollTo(target, off)); err != nil {
		return fmt.Errorf("taxonomy: locate %s: scroll: %w", bigID, err)
	}
	t.logger.Debug("taxonomy: located",
		slog.String("big_id", bigID),
		slog.Int("offset", off))
	return nil
}

// openPath opens every strict ancestor of bigID in root-to-leaf order and returns the
// target node.
func (t *Tree) openPath(ctx context.Context, bigID string) (*Node, error) {
	chain := prefixes(bigID)
	for i, prefix := range chain {
		n, ok := t.Lookup(prefix)
		if !ok {
			return nil, fmt.Errorf("taxonomy: locate %s: node %s: %w", bigID, prefix, apperr.ErrNotFound)
		}
		if i == len(chain)-1 {
			return n, nil
		}
		if err := Wait(ctx, t.OpenChildren(n)); err != nil {
			return nil, fmt.Errorf("taxonomy: locate %s: open %s: %w", bigID, prefix, err)
		}
	}
	return nil, fmt.Errorf("taxonomy: locate %s: %w", bigID, apperr.ErrNotFound)
}
