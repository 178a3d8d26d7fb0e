package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/starford/taxonomy-explorer/internal/apperr"
	"github.com/starford/taxonomy-explorer/internal/models"
	"github.com/starford/taxonomy-explorer/internal/parser"
)

// NodeRow represents a row in the tree_nodes table: one placement of a category.
type NodeRow struct {
	BigID       string
	CategoryID  string
	Name        string
	ParentBigID string
	Position    int
	Depth       int
}

// CategoryRow represents a row in the categories table.
type CategoryRow struct {
	models.Category
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	CategoryID string
	Name       string
	Snippet    string
}

// ReplaceTaxonomy swaps the indexed taxonomy for the given one within a single transaction.
// Only one source is indexed at a time.
func (db *DB) ReplaceTaxonomy(src models.SourceMetadata, cats []models.Category, nodes []NodeRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := clearTaxonomy(tx); err != nil {
		return err
	}

	catStmt, err := tx.Prepare(`
		INSERT INTO categories (id, name, description, citation_uri, faq, child_ids, restrictions, examples, omitted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("index: prepare category insert: %w", err)
	}
	defer catStmt.Close()
	for _, c := range cats {
		childIDs, _ := json.Marshal(nonNil(c.ChildIDs))
		restrictions, _ := json.Marshal(nonNil(c.Restrictions))
		examples, err := json.Marshal(nonNil(c.Examples))
		if err != nil {
			return fmt.Errorf("index: encode examples of %s: %w", c.ID, err)
		}
		if _, err := catStmt.Exec(c.ID, c.Name, c.Description, c.CitationURI, c.FAQ,
			string(childIDs), string(restrictions), string(examples), c.Omitted()); err != nil {
			return fmt.Errorf("index: insert category %s: %w", c.ID, err)
		}
	}

	nodeStmt, err := tx.Prepare(`
		INSERT INTO tree_nodes (big_id, category_id, name, parent_big_id, position, depth)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("index: prepare node insert: %w", err)
	}
	defer nodeStmt.Close()
	for _, n := range nodes {
		if _, err := nodeStmt.Exec(n.BigID, n.CategoryID, n.Name, n.ParentBigID, n.Position, n.Depth); err != nil {
			return fmt.Errorf("index: insert node %s: %w", n.BigID, err)
		}
	}

	if err := ftsInsert(tx, cats); err != nil {
		return err
	}

	if _, err := tx.Exec(`INSERT INTO sources (path, checksum, updated_at) VALUES (?, ?, ?)`,
		src.Path, src.Checksum, src.UpdatedAt); err != nil {
		return fmt.Errorf("index: record source: %w", err)
	}
	return tx.Commit()
}

// DeleteSource drops the taxonomy if path is the indexed source.
func (db *DB) DeleteSource(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var n int
	if err := tx.QueryRow(`SELECT count(*) FROM sources WHERE path = ?`, path).Scan(&n); err != nil {
		return fmt.Errorf("index: lookup source: %w", err)
	}
	if n == 0 {
		return nil
	}
	if err := clearTaxonomy(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func clearTaxonomy(tx *sql.Tx) error {
	if err := ftsClear(tx); err != nil {
		return err
	}
	for _, stmt := range []string{`DELETE FROM tree_nodes`, `DELETE FROM categories`, `DELETE FROM sources`} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("index: clear: %w", err)
		}
	}
	return nil
}

// SourceChecksum returns the stored checksum for a source, or empty string if not indexed.
func (db *DB) SourceChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM sources WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: source checksum: %w", err)
	}
	return cs, nil
}

// Source returns the metadata of the indexed source.
func (db *DB) Source() (*models.SourceMetadata, error) {
	var m models.SourceMetadata
	err := db.conn.QueryRow(`SELECT path, checksum, updated_at FROM sources LIMIT 1`).
		Scan(&m.Path, &m.Checksum, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: no source indexed: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: source: %w", err)
	}
	return &m, nil
}

// Tree rebuilds the raw tree document from tree_nodes.
func (db *DB) Tree() (*models.RawNode, error) {
	rows, err := db.conn.Query(`
		SELECT big_id, name, parent_big_id, position
		FROM tree_nodes
		ORDER BY depth, parent_big_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("index: tree: %w", err)
	}
	defer rows.Close()

	root := &models.RawNode{Name: parser.RootName}
	byBigID := map[string]*models.RawNode{"": root}
	count := 0
	for rows.Next() {
		var bigID, name, parentID string
		var pos int
		if err := rows.Scan(&bigID, &name, &parentID, &pos); err != nil {
			return nil, err
		}
		parent, ok := byBigID[parentID]
		if !ok {
			return nil, fmt.Errorf("index: tree: node %s has no parent %q", bigID, parentID)
		}
		n := &models.RawNode{Name: name, NodeID: strconv.Itoa(pos)}
		parent.Children = append(parent.Children, n)
		byBigID[bigID] = n
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if count == 0 {
		if _, err := db.Source(); err != nil {
			return nil, err
		}
	}
	return root, nil
}

const categoryColumns = `id, name, description, citation_uri, faq, child_ids, restrictions, examples`

func (db *DB) scanCategory(row *sql.Row) (*CategoryRow, error) {
	var c CategoryRow
	var childIDs, restrictions, examples string
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CitationURI, &c.FAQ,
		&childIDs, &restrictions, &examples); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(childIDs), &c.ChildIDs); err != nil {
		return nil, fmt.Errorf("category %q: child_ids: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(restrictions), &c.Restrictions); err != nil {
		return nil, fmt.Errorf("category %q: restrictions: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(examples), &c.Examples); err != nil {
		return nil, fmt.Errorf("category %q: examples: %w", c.ID, err)
	}
	if src, err := db.Source(); err == nil {
		c.UpdatedAt = src.UpdatedAt
	}
	return &c, nil
}

// Category returns the category with the given ontology id.
func (db *DB) Category(id string) (*CategoryRow, error) {
	c, err := db.scanCategory(db.conn.QueryRow(`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: category %q: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: category: %w", err)
	}
	return c, nil
}

// CategoryByName returns the category displayed under name. When several
// categories share a name the one with the lowest id wins.
func (db *DB) CategoryByName(name string) (*CategoryRow, error) {
	c, err := db.scanCategory(db.conn.QueryRow(
		`SELECT `+categoryColumns+` FROM categories WHERE name = ? ORDER BY id LIMIT 1`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: category named %q: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: category by name: %w", err)
	}
	return c, nil
}

const nodeColumns = `big_id, category_id, name, parent_big_id, position, depth`

func scanNodes(rows *sql.Rows) ([]NodeRow, error) {
	defer rows.Close()
	var out []NodeRow
	for rows.Next() {
		var n NodeRow
		if err := rows.Scan(&n.BigID, &n.CategoryID, &n.Name, &n.ParentBigID, &n.Position, &n.Depth); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Node returns the tree occurrence with the given bigId.
func (db *DB) Node(bigID string) (*NodeRow, error) {
	var n NodeRow
	err := db.conn.QueryRow(`SELECT `+nodeColumns+` FROM tree_nodes WHERE big_id = ?`, bigID).
		Scan(&n.BigID, &n.CategoryID, &n.Name, &n.ParentBigID, &n.Position, &n.Depth)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: node %q: %w", bigID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: node: %w", err)
	}
	return &n, nil
}

// ChildNodes returns the children of the occurrence bigID in sibling order.
// The empty bigId names the root.
func (db *DB) ChildNodes(bigID string) ([]NodeRow, error) {
	rows, err := db.conn.Query(`SELECT `+nodeColumns+` FROM tree_nodes WHERE parent_big_id = ? ORDER BY position`, bigID)
	if err != nil {
		return nil, fmt.Errorf("index: child nodes: %w", err)
	}
	return scanNodes(rows)
}

// Occurrences returns every placement of a category, shallowest first.
func (db *DB) Occurrences(categoryID string) ([]NodeRow, error) {
	rows, err := db.conn.Query(`SELECT `+nodeColumns+` FROM tree_nodes WHERE category_id = ? ORDER BY depth, big_id`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("index: occurrences: %w", err)
	}
	return scanNodes(rows)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func sourceMeta(path, sum string, updated time.Time) models.SourceMetadata {
	if updated.IsZero() {
		updated = time.Now()
	}
	return models.SourceMetadata{Path: path, Checksum: sum, UpdatedAt: updated.UTC()}
}
