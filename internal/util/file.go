package util

import (
	"fmt"
	"os"
	"path/filepath"
)

const partialSuffix = ".tmp"

// WriteBook writes data next to path first and renames it into place, so an
// interrupted run never leaves a truncated book behind.
func WriteBook(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create output folder: %w", err)
		}
	}

	tmp := path + partialSuffix
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}

	return nil
}
