// Package parser reads ontology source files and assembles the category tree served to clients.
package parser

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/starford/taxonomy-explorer/internal/apperr"
	"github.com/starford/taxonomy-explorer/internal/models"
)

// RootName is the name of the synthetic root placed above the top-level categories.
const RootName = "root"

// Format is the encoding of an ontology source file.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFor picks the format from a file extension. Unknown extensions are read as JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Occurrence is one placement of a category in the assembled tree. A category listed
// under several parents has one occurrence per placement.
type Occurrence struct {
	BigID       string
	ParentBigID string
	CategoryID  string
	Name        string
	Position    int
	Depth       int
}

// Result holds the output of parsing an ontology source.
type Result struct {
	Categories  []models.Category
	Root        *models.RawNode
	Occurrences []Occurrence
}

// Parse decodes data and assembles the tree. Errors wrap apperr.ErrInvalid.
func Parse(data []byte, format Format) (*Result, error) {
	cats, err := decode(data, format)
	if err != nil {
		return nil, err
	}
	root, occ, err := assemble(cats)
	if err != nil {
		return nil, err
	}
	return &Result{Categories: cats, Root: root, Occurrences: occ}, nil
}

func decode(data []byte, format Format) ([]models.Category, error) {
	var cats []models.Category
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("parser: empty source: %w", apperr.ErrInvalid)
	}
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(trimmed, &cats)
	default:
		err = json.Unmarshal(trimmed, &cats)
	}
	if err != nil {
		return nil, fmt.Errorf("parser: decode: %v: %w", err, apperr.ErrInvalid)
	}
	for i, c := range cats {
		if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("parser: entry %d: id and name are required: %w", i, apperr.ErrInvalid)
		}
		for j, ex := range c.Examples {
			if strings.TrimSpace(ex.SoundURL) == "" {
				return nil, fmt.Errorf("parser: %q example %d: sound_url is required: %w", c.ID, j, apperr.ErrInvalid)
			}
			if ex.Duration < 0 || ex.RMS < 0 || ex.Peak < 0 {
				return nil, fmt.Errorf("parser: %q example %d: negative measurement: %w", c.ID, j, apperr.ErrInvalid)
			}
		}
	}
	return cats, nil
}

// assemble links categories through child_ids. Top-level categories are the ones no
// other category lists as a child; they hang under a synthetic root in input order.
// Each child's node_id is its position among its siblings.
func assemble(cats []models.Category) (*models.RawNode, []Occurrence, error) {
	byID := make(map[string]*models.Category, len(cats))
	for i := range cats {
		c := &cats[i]
		if _, dup := byID[c.ID]; dup {
			return nil, nil, fmt.Errorf("parser: duplicate id %q: %w", c.ID, apperr.ErrInvalid)
		}
		byID[c.ID] = c
	}

	isChild := make(map[string]bool)
	for _, c := range cats {
		for _, id := range c.ChildIDs {
			if _, ok := byID[id]; !ok {
				return nil, nil, fmt.Errorf("parser: %q lists unknown child %q: %w", c.ID, id, apperr.ErrInvalid)
			}
			isChild[id] = true
		}
	}

	root := &models.RawNode{Name: RootName}
	var occ []Occurrence
	onPath := make(map[string]bool)
	placed := make(map[string]bool, len(cats))

	var place func(c *models.Category, parentBigID string, pos, depth int) (*models.RawNode, error)
	place = func(c *models.Category, parentBigID string, pos, depth int) (*models.RawNode, error) {
		if onPath[c.ID] {
			return nil, fmt.Errorf("parser: cycle through %q: %w", c.ID, apperr.ErrInvalid)
		}
		onPath[c.ID] = true
		defer delete(onPath, c.ID)
		placed[c.ID] = true

		nodeID := strconv.Itoa(pos)
		bigID := nodeID
		if parentBigID != "" {
			bigID = parentBigID + "," + nodeID
		}
		n := &models.RawNode{Name: c.Name, NodeID: nodeID}
		occ = append(occ, Occurrence{
			BigID:       bigID,
			ParentBigID: parentBigID,
			CategoryID:  c.ID,
			Name:        c.Name,
			Position:    pos,
			Depth:       depth,
		})
		for i, id := range c.ChildIDs {
			child, err := place(byID[id], bigID, i, depth+1)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
		return n, nil
	}

	pos := 0
	for i := range cats {
		if isChild[cats[i].ID] {
			continue
		}
		n, err := place(&cats[i], "", pos, 1)
		if err != nil {
			return nil, nil, err
		}
		root.Children = append(root.Children, n)
		pos++
	}
	if len(cats) > 0 && len(root.Children) == 0 {
		return nil, nil, fmt.Errorf("parser: no top-level category: %w", apperr.ErrInvalid)
	}
	// A cycle that no top-level category reaches is never walked above.
	var orphans []string
	for _, c := range cats {
		if !placed[c.ID] {
			orphans = append(orphans, strconv.Quote(c.ID))
		}
	}
	if len(orphans) > 0 {
		return nil, nil, fmt.Errorf("parser: unreachable categories %s: %w",
			strings.Join(orphans, ", "), apperr.ErrInvalid)
	}
	return root, occ, nil
}
