package taxonomy

import (
	"context"
	"strconv"
	"testing"

	"pgregory.net/rapid"

	"github.com/starford/taxonomy-explorer/internal/models"
)

var sampleNames = []string{"Animal", "Dog", "Bark", "Music", "Guitar", "Noise"}

// genRaw draws a random tree whose siblings carry distinct positional node ids.
func genRaw(t *rapid.T, depth int) []*models.RawNode {
	if depth == 0 {
		return nil
	}
	n := rapid.IntRange(0, 4).Draw(t, "children")
	out := make([]*models.RawNode, n)
	for i := range out {
		out[i] = &models.RawNode{
			Name:     rapid.SampledFrom(sampleNames).Draw(t, "name"),
			NodeID:   strconv.Itoa(i),
			Children: genRaw(t, depth-1),
		}
	}
	return out
}

func genTree(t *rapid.T) *Tree {
	raw := &models.RawNode{Name: "root", Children: genRaw(t, 4)}
	skip := rapid.SliceOfDistinct(rapid.SampledFrom(sampleNames), func(s string) string { return s }).Draw(t, "skip")
	tree, err := Build(raw, WithSkip(skip...))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return tree
}

func TestProperty_BigIDsUniqueAndConsistent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tree := genTree(t)
		seen := make(map[string]*Node)
		for _, n := range tree.Nodes() {
			if prev, ok := seen[n.BigID]; ok && prev != n {
				t.Fatalf("bigId %q shared by two nodes", n.BigID)
			}
			seen[n.BigID] = n
			if got, _ := tree.Lookup(n.BigID); got != n {
				t.Fatalf("index out of sync for %q", n.BigID)
			}
			if len(n.Path) != n.Depth || len(SplitBigID(n.BigID)) != n.Depth {
				t.Fatalf("%q: path %d ids %d depth %d", n.BigID, len(n.Path), len(SplitBigID(n.BigID)), n.Depth)
			}
		}
	})
}

func TestProperty_ToggleTwiceRestoresState(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tree := genTree(t)
		if tree.Len() == 0 {
			return
		}
		n := rapid.SampledFrom(tree.Nodes()).Draw(t, "node")
		before := tree.IsExpanded(n)
		tree.ToggleChildren(n)
		tree.ToggleChildren(n)
		if tree.IsExpanded(n) != before {
			t.Fatalf("%q: expanded %v after double toggle, want %v", n.BigID, tree.IsExpanded(n), before)
		}
		if n.IsLeaf() && tree.IsExpanded(n) {
			t.Fatalf("leaf %q expanded", n.BigID)
		}
	})
}

func TestProperty_CollapseAllEmptiesSets(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tree := genTree(t)
		if tree.Len() == 0 {
			return
		}
		for _, n := range rapid.SliceOf(rapid.SampledFrom(tree.Nodes())).Draw(t, "open") {
			tree.OpenChildren(n)
		}
		ctx := context.Background()
		if err := tree.CollapseAll(ctx); err != nil {
			t.Fatalf("CollapseAll: %v", err)
		}
		if len(tree.Expanded()) != 0 || len(tree.InfoVisible()) != 0 {
			t.Fatal("sets not empty after CollapseAll")
		}
		if err := tree.CollapseAll(ctx); err != nil {
			t.Fatalf("second CollapseAll: %v", err)
		}
	})
}

func TestProperty_LocateMakesTargetVisible(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tree := genTree(t)
		var candidates []*Node
		for _, n := range tree.Nodes() {
			if !n.Skipped {
				candidates = append(candidates, n)
			}
		}
		if len(candidates) == 0 {
			return
		}
		target := rapid.SampledFrom(candidates).Draw(t, "target")
		if err := tree.Locate(context.Background(), target.BigID); err != nil {
			t.Fatalf("Locate(%q): %v", target.BigID, err)
		}
		for _, r := range tree.Visible() {
			if r.Node == target {
				return
			}
		}
		t.Fatalf("%q not visible after Locate", target.BigID)
	})
}
