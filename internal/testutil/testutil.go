// Package testutil provides shared test helpers for setting up source directories and databases.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/taxonomy-explorer/internal/index"
	"github.com/starford/taxonomy-explorer/internal/storage"
)

// SourceFile is the file name SampleOntology is written under.
const SourceFile = "ontology.json"

// SampleOntology is a small ontology with a shared child ("Bark" under Dog and Music)
// and an omitted category.
const SampleOntology = `[
  {"id": "/m/animal", "name": "Animal", "description": "All sound-producing animals.", "child_ids": ["/m/dog", "/m/cat"]},
  {"id": "/m/dog", "name": "Dog", "description": "Sounds of dogs.", "citation_uri": "https://en.wikipedia.org/wiki/Dog", "child_ids": ["/m/bark"]},
  {"id": "/m/bark", "name": "Bark", "description": "The sharp explosive cry of a dog."},
  {"id": "/m/cat", "name": "Cat", "faq": "Purring included.", "restrictions": ["omitted"]},
  {"id": "/m/music", "name": "Music", "description": "Music of any genre.", "child_ids": ["/m/guitar", "/m/bark"]},
  {"id": "/m/guitar", "name": "Guitar", "description": "Plucked string instrument."}
]`

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "taxonomy-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary source directory with a storage.FS.
func TestStore(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// SeedSample writes SampleOntology to store and indexes it into db.
func SeedSample(t *testing.T, db *index.DB, store storage.Provider) {
	t.Helper()
	if err := store.Write(SourceFile, []byte(SampleOntology)); err != nil {
		t.Fatal(err)
	}
	if _, err := index.Refresh(db, store, SourceFile); err != nil {
		t.Fatal(err)
	}
}
