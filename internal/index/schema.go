// Package index provides SQLite-backed indexing of the taxonomy with optional FTS5 search.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS sources (
	path       TEXT PRIMARY KEY,
	checksum   TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS categories (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	citation_uri TEXT NOT NULL DEFAULT '',
	faq          TEXT NOT NULL DEFAULT '',
	child_ids    TEXT NOT NULL DEFAULT '[]',
	restrictions TEXT NOT NULL DEFAULT '[]',
	examples     TEXT NOT NULL DEFAULT '[]',
	omitted      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tree_nodes (
	big_id        TEXT PRIMARY KEY,
	category_id   TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	parent_big_id TEXT NOT NULL DEFAULT '',
	position      INTEGER NOT NULL,
	depth         INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_categories_name ON categories(name);
CREATE INDEX IF NOT EXISTS idx_tree_nodes_parent ON tree_nodes(parent_big_id, position);
CREATE INDEX IF NOT EXISTS idx_tree_nodes_category ON tree_nodes(category_id);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := addColumn(conn, "categories", "examples", "TEXT NOT NULL DEFAULT '[]'"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: migrate categories: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// addColumn adds column to an index created before the column existed.
func addColumn(conn *sql.DB, table, column, decl string) error {
	rows, err := conn.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()
	_, err = conn.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, decl))
	return err
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
