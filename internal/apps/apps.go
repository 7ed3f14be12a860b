// Package apps indexes installed desktop applications by display name.
package apps

import (
	"io/fs"
	log "log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/ini.v1"
)

type App struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// DefaultDirs are the XDG application directories.
func DefaultDirs() []string {
	dirs := []string{"/usr/share/applications", "/usr/local/share/applications"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".local", "share", "applications"))
	}
	return dirs
}

type Index struct {
	mu   sync.RWMutex
	apps map[string]string
}

func NewIndex() *Index {
	return &Index{apps: make(map[string]string)}
}

// Scan rebuilds the index from .desktop files under dirs. When two entries
// share a name the first one found is kept. Unreadable directories are
// skipped.
func (ix *Index) Scan(dirs []string) int {
	found := make(map[string]string)
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == dir {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() || filepath.Ext(path) != ".desktop" {
				return nil
			}
			name, ok := desktopName(path)
			if !ok {
				return nil
			}
			if _, dup := found[name]; !dup {
				found[name] = path
			}
			return nil
		})
		if err != nil {
			log.Warn("Failed to read application folder", "dir", dir, "err", err)
		}
	}

	ix.mu.Lock()
	ix.apps = found
	ix.mu.Unlock()

	log.Info("Scanned applications", "count", len(found))
	return len(found)
}

func (ix *Index) Add(name, path string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, dup := ix.apps[name]; !dup {
		ix.apps[name] = path
	}
}

// Find returns every app whose name contains q, ignoring case, ordered by
// name.
func (ix *Index) Find(q string) []App {
	q = strings.ToLower(strings.TrimSpace(q))

	ix.mu.RLock()
	var out []App
	for name, path := range ix.apps {
		if strings.Contains(strings.ToLower(name), q) {
			out = append(out, App{Name: name, Path: path})
		}
	}
	ix.mu.RUnlock()

	slices.SortFunc(out, func(a, b App) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// desktopName reads Name from the [Desktop Entry] group. Hidden and
// NoDisplay entries are ignored.
func desktopName(path string) (string, bool) {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:     true,
		SkipUnrecognizableLines: true,
		KeyValueDelimiters:      "=",
	}, path)
	if err != nil {
		log.Debug("Skipping unreadable desktop entry", "path", path, "err", err)
		return "", false
	}
	entry, err := f.GetSection("Desktop Entry")
	if err != nil {
		return "", false
	}
	if entry.Key("NoDisplay").MustBool(false) || entry.Key("Hidden").MustBool(false) {
		return "", false
	}
	name := strings.TrimSpace(entry.Key("Name").String())
	return name, name != ""
}
