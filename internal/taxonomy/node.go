// Package taxonomy holds the structural model of a category tree: construction from the
// served tree document, the bigId index, expand/collapse and info-panel state, label
// attachment, and locate-by-path navigation against an injected renderer.
package taxonomy

import "strings"

// Separator joins ancestor node ids into a bigId.
const Separator = ","

// Node is one category occurrence in a built tree. Nodes are immutable after Build;
// open/closed and info-panel state lives on the Tree.
type Node struct {
	Name   string
	NodeID string
	// Path holds the ancestor names from the first level below the root down to this node.
	Path []string
	// BigID is the comma-joined chain of NodeIDs; unique within a tree.
	BigID string
	Depth int
	// Skipped nodes are indexed but never rendered; their Entries take their place
	// in the parent's Entries.
	Skipped  bool
	Parent   *Node
	Children []*Node
	// Entries are the rendered children of this node.
	Entries []*Node
}

// IsRoot reports whether n is the synthetic root.
func (n *Node) IsRoot() bool {
	return n.Parent == nil
}

// IsLeaf reports whether n has no rendered entries and therefore cannot be expanded.
func (n *Node) IsLeaf() bool {
	return len(n.Entries) == 0
}

// Ancestors returns the strict ancestors of n below the root, root-to-leaf.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for p := n.Parent; p != nil && !p.IsRoot(); p = p.Parent {
		out = append(out, p)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// String returns the slash-joined path, or "/" for the root.
func (n *Node) String() string {
	if n.IsRoot() {
		return "/"
	}
	return strings.Join(n.Path, " / ")
}

// SplitBigID returns the ordered node ids of bigID.
func SplitBigID(bigID string) []string {
	if bigID == "" {
		return nil
	}
	return strings.Split(bigID, Separator)
}

// JoinBigID is the inverse of SplitBigID.
func JoinBigID(ids ...string) string {
	return strings.Join(ids, Separator)
}

// prefixes returns id0, id0,id1, … for bigID.
func prefixes(bigID string) []string {
	ids := SplitBigID(bigID)
	out := make([]string, len(ids))
	for i := range ids {
		out[i] = JoinBigID(ids[:i+1]...)
	}
	return out
}
