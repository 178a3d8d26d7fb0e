package index

import "github.com/starford/taxonomy-explorer/internal/models"

// TaxonomyIndex defines the read and write operations over the indexed taxonomy.
// Consumers depend on this interface rather than the concrete *DB type.
type TaxonomyIndex interface {
	ReplaceTaxonomy(src models.SourceMetadata, cats []models.Category, nodes []NodeRow) error
	DeleteSource(path string) error
	SourceChecksum(path string) (string, error)
	Source() (*models.SourceMetadata, error)
	Tree() (*models.RawNode, error)
	Category(id string) (*CategoryRow, error)
	CategoryByName(name string) (*CategoryRow, error)
	Node(bigID string) (*NodeRow, error)
	ChildNodes(bigID string) ([]NodeRow, error)
	Occurrences(categoryID string) ([]NodeRow, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

var _ TaxonomyIndex = (*DB)(nil)
