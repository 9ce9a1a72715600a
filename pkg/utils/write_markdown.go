package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteMarkdown writes content to dir/fileName, creating dir when needed.
func WriteMarkdown(dir, fileName, content string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return path, nil
}
