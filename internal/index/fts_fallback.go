//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/taxonomy-explorer/internal/models"
)

// Without FTS5, search falls back to LIKE over the categories table.
func initFTS(_ *sql.DB) error { return nil }

func ftsInsert(_ *sql.Tx, _ []models.Category) error { return nil }

func ftsClear(_ *sql.Tx) error { return nil }

// Search performs a LIKE-based search over names, descriptions and FAQs.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT id, name, substr(description, 1, 200)
		FROM categories
		WHERE name LIKE ? OR description LIKE ? OR faq LIKE ?
		ORDER BY CASE WHEN name LIKE ? THEN 0 ELSE 1 END, name
		LIMIT ?
	`, like, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.CategoryID, &r.Name, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
