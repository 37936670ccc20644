package images

import (
	"io/fs"
	"os"
	"path/filepath"
)

// DirResolver resolves attachment names against a directory tree, the
// way a notes vault does: an exact relative path wins, otherwise the
// first file matching the base name anywhere under Root.
type DirResolver struct {
	Root string
}

func (d DirResolver) Resolve(name string) ([]byte, error) {
	direct := filepath.Join(d.Root, filepath.FromSlash(name))
	if b, err := os.ReadFile(direct); err == nil {
		return b, nil
	}
	var found string
	err := filepath.WalkDir(d.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		if entry.Name() == filepath.Base(name) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == "" {
		return nil, os.ErrNotExist
	}
	return os.ReadFile(found)
}
