// Package safefile writes files through a sibling temp file and a rename,
// so readers observe either the old content or the new one.
package safefile

import (
	"errors"
	"os"
	"path/filepath"
)

// WriteFile atomically replaces path with data. The parent directory is
// created with 0700 if it does not exist.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	if path == "" {
		return errors.New("safefile: path is empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Removing after a successful rename is a harmless no-op.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
