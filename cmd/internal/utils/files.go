package utils

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// IsEmpty returns whether the given directory contains no entries
func IsEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}

	return len(entries) == 0, nil
}

// RemoveContents deletes everything below dir but keeps dir itself
func RemoveContents(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}

	return nil
}

// Copy duplicates a file on the given file system. Dump archives are small
// enough to go through memory in one piece.
func Copy(fs afero.Fs, src, dst string) error {
	content, err := afero.ReadFile(fs, src)
	if err != nil {
		return err
	}

	return afero.WriteFile(fs, dst, content, 0600)
}
