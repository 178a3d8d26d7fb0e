package index

import (
	"errors"
	"log/slog"
	"time"

	"github.com/starford/taxonomy-explorer/internal/apperr"
	"github.com/starford/taxonomy-explorer/internal/checksum"
	"github.com/starford/taxonomy-explorer/internal/parser"
	"github.com/starford/taxonomy-explorer/internal/storage"
)

// Change kinds reported by Refresh and the watcher callback.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// Sync brings the index up to date with the source file on disk.
// A source that fails to parse leaves the previous taxonomy in place.
func Sync(db *DB, store storage.Provider, file string, logger *slog.Logger) error {
	kind, err := Refresh(db, store, file)
	if err != nil {
		logger.Warn("sync: refresh failed", slog.String("path", file), slog.String("error", err.Error()))
		return err
	}
	if kind != "" {
		logger.Info("sync: indexed", slog.String("path", file), slog.String("op", kind))
	} else {
		logger.Debug("sync: up to date", slog.String("path", file))
	}
	return nil
}

// Refresh reindexes file when its checksum differs from the indexed one and
// reports what changed. An empty kind means nothing did.
func Refresh(db *DB, store storage.Provider, file string) (string, error) {
	prev, err := db.SourceChecksum(file)
	if err != nil {
		return "", err
	}

	meta, err := store.Stat(file)
	if errors.Is(err, apperr.ErrNotFound) {
		if prev == "" {
			return "", nil
		}
		if err := db.DeleteSource(file); err != nil {
			return "", err
		}
		return KindDeleted, nil
	}
	if err != nil {
		return "", err
	}
	if meta.Checksum == prev {
		return "", nil
	}

	data, err := store.Read(file)
	if err != nil {
		return "", err
	}
	if err := indexSource(db, file, data, meta.UpdatedAt); err != nil {
		return "", err
	}
	if prev == "" {
		return KindCreated, nil
	}
	return KindUpdated, nil
}

// indexSource parses data and replaces the indexed taxonomy with it.
func indexSource(db *DB, path string, data []byte, updated time.Time) error {
	res, err := parser.Parse(data, parser.FormatFor(path))
	if err != nil {
		return err
	}
	nodes := make([]NodeRow, len(res.Occurrences))
	for i, o := range res.Occurrences {
		nodes[i] = NodeRow{
			BigID:       o.BigID,
			CategoryID:  o.CategoryID,
			Name:        o.Name,
			ParentBigID: o.ParentBigID,
			Position:    o.Position,
			Depth:       o.Depth,
		}
	}
	src := sourceMeta(path, checksum.Sum(data), updated)
	return db.ReplaceTaxonomy(src, res.Categories, nodes)
}
