//go:build sqlite_fts5

package index

import "testing"

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM categories_fts`).Scan(&count); err != nil {
		t.Fatalf("categories_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db, _ := seeded(t)
	results, err := db.Search("cry", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].CategoryID != "/m/bark" {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_ReplaceDropsOldContent(t *testing.T) {
	db, store := seeded(t)
	_ = store.Write("ontology.json", []byte(`[{"id": "/m/w", "name": "Wind", "description": "moving air"}]`))
	if _, err := Refresh(db, store, "ontology.json"); err != nil {
		t.Fatal(err)
	}
	if results, _ := db.Search("dogs", 10); len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	if results, _ := db.Search("air", 10); len(results) != 1 || results[0].Name != "Wind" {
		t.Errorf("FTS not updated: %+v", results)
	}
}
