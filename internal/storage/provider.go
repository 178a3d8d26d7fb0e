// Package storage defines the file-system abstraction for ontology source files.
package storage

import "github.com/starford/taxonomy-explorer/internal/models"

// Provider is the interface for source file operations.
type Provider interface {
	// Read returns the raw bytes of the file at path (relative to the source root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the source root).
	Write(path string, content []byte) error
	// Stat returns path, checksum and modification time of the file at path.
	Stat(path string) (models.SourceMetadata, error)
	// Root returns the absolute source directory.
	Root() string
}
