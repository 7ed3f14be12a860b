// Package storage persists named collections (reminders, ...) either as JSON
// files in a data directory or as rows in a SQLite database.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"
)

var ErrNotFound = errors.New("collection not found")

// Store saves and loads whole collections. Writes to one Store are
// serialized.
type Store interface {
	Save(collection string, v any) error
	Load(collection string, v any) error
	Close() error
}

const (
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// Open returns the backend named by kind rooted at dir.
func Open(kind, dir string) (Store, error) {
	switch kind {
	case "", KindFile:
		return NewFiles(dir)
	case KindSQLite:
		return OpenSQLite(filepath.Join(dir, "voxbar.db"))
	default:
		return nil, fmt.Errorf("unknown storage kind %q", kind)
	}
}
