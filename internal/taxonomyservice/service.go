// Package taxonomyservice joins the source store and the index into the operations served over HTTP and MCP.
package taxonomyservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/taxonomy-explorer/internal/apperr"
	"github.com/starford/taxonomy-explorer/internal/checksum"
	"github.com/starford/taxonomy-explorer/internal/index"
	"github.com/starford/taxonomy-explorer/internal/models"
	"github.com/starford/taxonomy-explorer/internal/parser"
	"github.com/starford/taxonomy-explorer/internal/storage"
)

// Service coordinates storage and index operations.
type Service struct {
	store    storage.Provider
	db       *index.DB
	file     string
	onChange index.EventCallback
}

// NewService creates a new taxonomy service over the source file at file (relative to the store root).
func NewService(store storage.Provider, db *index.DB, file string) *Service {
	return &Service{store: store, db: db, file: file}
}

// OnChange registers cb to run after ReplaceSource reindexed the source.
func (s *Service) OnChange(cb index.EventCallback) { s.onChange = cb }

// SourceFile returns the configured source path.
func (s *Service) SourceFile() string { return s.file }

// Tree returns the raw tree document and the checksum of the source it was built from.
func (s *Service) Tree(_ context.Context) (*models.RawNode, string, error) {
	root, err := s.db.Tree()
	if err != nil {
		return nil, "", err
	}
	src, err := s.db.Source()
	if err != nil {
		return nil, "", err
	}
	return root, src.Checksum, nil
}

// Source returns the metadata of the indexed source.
func (s *Service) Source(_ context.Context) (*models.SourceMetadata, error) {
	return s.db.Source()
}

// NodeInfo returns the detail record of the category shown under name,
// resolved at its shallowest placement.
func (s *Service) NodeInfo(_ context.Context, name string) (*models.NodeInfo, error) {
	cat, err := s.db.CategoryByName(name)
	if err != nil {
		return nil, err
	}
	occ, err := s.db.Occurrences(cat.ID)
	if err != nil {
		return nil, err
	}
	var first *index.NodeRow
	if len(occ) > 0 {
		first = &occ[0]
	}
	return s.nodeInfo(cat, first)
}

// NodeByBigID returns the detail record of one placement in the tree.
func (s *Service) NodeByBigID(_ context.Context, bigID string) (*models.NodeInfo, error) {
	node, err := s.db.Node(bigID)
	if err != nil {
		return nil, err
	}
	cat, err := s.db.Category(node.CategoryID)
	if err != nil {
		return nil, err
	}
	return s.nodeInfo(cat, node)
}

// CategoryByID returns a category by ontology id together with its placements.
func (s *Service) CategoryByID(_ context.Context, id string) (*index.CategoryRow, []index.NodeRow, error) {
	cat, err := s.db.Category(id)
	if err != nil {
		return nil, nil, err
	}
	occ, err := s.db.Occurrences(id)
	if err != nil {
		return nil, nil, err
	}
	return cat, occ, nil
}

func (s *Service) nodeInfo(cat *index.CategoryRow, node *index.NodeRow) (*models.NodeInfo, error) {
	info := &models.NodeInfo{
		CategoryID:  cat.ID,
		Name:        cat.Name,
		Description: cat.Description,
		CitationURI: cat.CitationURI,
		FAQ:         cat.FAQ,
		Omitted:     cat.Omitted(),
		Children:    []string{},
		Examples:    cat.Examples,
		UpdatedAt:   cat.UpdatedAt,
	}
	if info.Examples == nil {
		info.Examples = []models.SoundExample{}
	}
	if node == nil {
		return info, nil
	}
	info.BigID = node.BigID
	info.Depth = node.Depth
	kids, err := s.db.ChildNodes(node.BigID)
	if err != nil {
		return nil, err
	}
	for _, k := range kids {
		info.Children = append(info.Children, k.Name)
	}
	return info, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("taxonomyservice: empty query: %w", apperr.ErrInvalid)
	}
	return s.db.Search(query, limit)
}

// ReplaceSource validates content, writes it over the source file and reindexes.
// A non-empty ifMatch must name the checksum of the file currently on disk.
func (s *Service) ReplaceSource(_ context.Context, content []byte, ifMatch string) (*models.SourceMetadata, error) {
	if _, err := parser.Parse(content, parser.FormatFor(s.file)); err != nil {
		return nil, err
	}

	existing, err := s.store.Read(s.file)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		if ifMatch != "" && ifMatch != "*" {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if ifMatch != "" && !checksum.Matches(ifMatch, checksum.Sum(existing)) {
			return nil, fmt.Errorf("taxonomyservice: source changed: %w", apperr.ErrConflict)
		}
	}

	if err := s.store.Write(s.file, content); err != nil {
		return nil, err
	}
	kind, err := index.Refresh(s.db, s.store, s.file)
	if err != nil {
		return nil, err
	}
	if kind != "" && s.onChange != nil {
		s.onChange(kind, s.file)
	}
	return s.db.Source()
}
