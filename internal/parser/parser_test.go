package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/taxonomy-explorer/internal/apperr"
)

const ontologyJSON = `[
  {"id": "/m/animal", "name": "Animal", "description": "Sounds of animals.", "child_ids": ["/m/dog", "/m/cat"]},
  {"id": "/m/dog", "name": "Dog", "child_ids": ["/m/bark"]},
  {"id": "/m/bark", "name": "Bark"},
  {"id": "/m/cat", "name": "Cat", "restrictions": ["omitted"]},
  {"id": "/m/music", "name": "Music", "child_ids": ["/m/bark"]}
]`

func TestParse_AssemblesTree(t *testing.T) {
	r, err := Parse([]byte(ontologyJSON), FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Root.Name != RootName || r.Root.NodeID != "" {
		t.Errorf("root = %+v", r.Root)
	}
	if len(r.Root.Children) != 2 {
		t.Fatalf("top-level = %d, want 2", len(r.Root.Children))
	}
	animal, music := r.Root.Children[0], r.Root.Children[1]
	if animal.Name != "Animal" || animal.NodeID != "0" || music.NodeID != "1" {
		t.Errorf("top-level = %q(%s), %q(%s)", animal.Name, animal.NodeID, music.Name, music.NodeID)
	}
	if got := animal.Children[1]; got.Name != "Cat" || got.NodeID != "1" {
		t.Errorf("second child = %+v", got)
	}
	if !r.Categories[3].Omitted() {
		t.Error("Cat should be omitted")
	}
}

func TestParse_SharedChildGetsOneOccurrencePerParent(t *testing.T) {
	r, err := Parse([]byte(ontologyJSON), FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var bigIDs []string
	for _, o := range r.Occurrences {
		if o.CategoryID == "/m/bark" {
			bigIDs = append(bigIDs, o.BigID)
		}
	}
	if strings.Join(bigIDs, " ") != "0,0,0 1,0" {
		t.Errorf("bark occurrences = %v", bigIDs)
	}
	if len(r.Occurrences) != 6 {
		t.Errorf("occurrences = %d, want 6", len(r.Occurrences))
	}
}

func TestParse_YAML(t *testing.T) {
	src := "- id: a\n  name: A\n  child_ids: [b]\n- id: b\n  name: B\n" +
		"  examples:\n    - sound_url: https://cdn.example.org/b.mp3\n      duration: 1.5\n"
	r, err := Parse([]byte(src), FormatYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Root.Children) != 1 || r.Root.Children[0].Children[0].Name != "B" {
		t.Errorf("tree = %+v", r.Root.Children)
	}
	if ex := r.Categories[1].Examples; len(ex) != 1 || ex[0].SoundURL != "https://cdn.example.org/b.mp3" || ex[0].Duration != 1.5 {
		t.Errorf("examples = %+v", ex)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"syntax":         "[{",
		"missing name":   `[{"id": "a"}]`,
		"duplicate id":   `[{"id": "a", "name": "A"}, {"id": "a", "name": "B"}]`,
		"unknown child":  `[{"id": "a", "name": "A", "child_ids": ["zzz"]}]`,
		"cycle":          `[{"id": "t", "name": "T", "child_ids": ["a"]}, {"id": "a", "name": "A", "child_ids": ["b"]}, {"id": "b", "name": "B", "child_ids": ["a"]}]`,
		"detached cycle": `[{"id": "x", "name": "X"}, {"id": "a", "name": "A", "child_ids": ["b"]}, {"id": "b", "name": "B", "child_ids": ["a"]}]`,
		"bad example":    `[{"id": "a", "name": "A", "examples": [{"duration": 1}]}]`,
		"negative rms":   `[{"id": "a", "name": "A", "examples": [{"sound_url": "s.mp3", "rms": -1}]}]`,
		"no top level":   `[{"id": "a", "name": "A", "child_ids": ["b"]}, {"id": "b", "name": "B", "child_ids": ["a"]}]`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src), FormatJSON)
			if !errors.Is(err, apperr.ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestParse_DetachedCycleNamesCategories(t *testing.T) {
	src := `[{"id": "x", "name": "X"}, {"id": "a", "name": "A", "child_ids": ["b"]}, {"id": "b", "name": "B", "child_ids": ["a"]}]`
	_, err := Parse([]byte(src), FormatJSON)
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	if !strings.Contains(err.Error(), `"a", "b"`) {
		t.Errorf("err = %v, want both cycle members named", err)
	}
}

func TestFormatFor(t *testing.T) {
	if FormatFor("ontology.YML") != FormatYAML || FormatFor("x.yaml") != FormatYAML {
		t.Error("yaml extensions not detected")
	}
	if FormatFor("ontology.json") != FormatJSON || FormatFor("noext") != FormatJSON {
		t.Error("json should be the default")
	}
}
