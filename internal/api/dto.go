package api

import (
	"github.com/starford/taxonomy-explorer/internal/models"
)

// TreeNode is the tree document node (aliased from the domain layer).
type TreeNode = models.RawNode

// NodeInfo is the detail record of one placement (aliased from the domain layer).
type NodeInfo = models.NodeInfo

// SourceMetadata describes the indexed source file (aliased from the domain layer).
type SourceMetadata = models.SourceMetadata

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	ID      string `json:"id" example:"/m/0bt9lr" validate:"required"`
	Name    string `json:"name" example:"Dog" validate:"required"`
	Snippet string `json:"snippet" example:"...sounds of <b>dogs</b>..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}
