// Package fsutil holds the small set of filesystem helpers shared by the
// report writers and the logger.
package fsutil

import (
	"os"
)

// CreateDirIfNotExists creates a directory (and parents) if it does not exist
func CreateDirIfNotExists(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0o755)
	}
	return nil
}

// FileExists checks whether a path exists and is a regular file
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
