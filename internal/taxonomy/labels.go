package taxonomy

import (
	"fmt"
	"slices"
	"sync"

	"github.com/starford/taxonomy-explorer/internal/apperr"
)

// Label is a category a user attached to the current selection.
type Label struct {
	Name   string `json:"name"`
	NodeID string `json:"node_id"`
	BigID  string `json:"big_id"`
	// Propagate lists the ancestor names the label also applies to.
	Propagate []string `json:"propagate"`
}

// LabelSink receives attached labels.
type LabelSink interface {
	// Attach records l. It returns apperr.ErrAlreadyExists if a label with the same
	// BigID is still attached.
	Attach(l Label) error
	// Detach removes the label with the given BigID.
	Detach(bigID string) error
	Labels() []Label
}

// LabelSet is an ordered in-memory LabelSink.
type LabelSet struct {
	mu     sync.Mutex
	labels []Label
}

// NewLabelSet returns an empty set.
func NewLabelSet() *LabelSet {
	return &LabelSet{}
}

func (s *LabelSet) Attach(l Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(l.BigID) >= 0 {
		return fmt.Errorf("label %s: %w", l.BigID, apperr.ErrAlreadyExists)
	}
	s.labels = append(s.labels, l)
	return nil
}

func (s *LabelSet) Detach(bigID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(bigID)
	if i < 0 {
		return fmt.Errorf("label %s: %w", bigID, apperr.ErrNotFound)
	}
	s.labels = slices.Delete(s.labels, i, i+1)
	return nil
}

func (s *LabelSet) Labels() []Label {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.labels)
}

func (s *LabelSet) indexOf(bigID string) int {
	return slices.IndexFunc(s.labels, func(l Label) bool { return l.BigID == bigID })
}

// AddLabel attaches the node at bigID to the label sink.
func (t *Tree) AddLabel(bigID string) (Label, error) {
	n, ok := t.Lookup(bigID)
	if !ok {
		return Label{}, fmt.Errorf("taxonomy: label %q: %w", bigID, apperr.ErrNotFound)
	}
	if t.labels == nil {
		return Label{}, fmt.Errorf("taxonomy: label %q: no label sink", bigID)
	}
	l := Label{Name: n.Name, NodeID: n.NodeID, BigID: n.BigID}
	for _, a := range n.Ancestors() {
		l.Propagate = append(l.Propagate, a.Name)
	}
	if err := t.labels.Attach(l); err != nil {
		return Label{}, err
	}
	return l, nil
}

// RemoveLabel detaches the label attached for bigID.
func (t *Tree) RemoveLabel(bigID string) error {
	if t.labels == nil {
		return fmt.Errorf("taxonomy: label %q: no label sink", bigID)
	}
	return t.labels.Detach(bigID)
}

// Labels returns the labels currently attached.
func (t *Tree) Labels() []Label {
	if t.labels == nil {
		return nil
	}
	return t.labels.Labels()
}
