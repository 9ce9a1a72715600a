package utils

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed prompts/*.md
var promptFiles embed.FS

// LoadPrompt loads a prompt from the embedded markdown files
func LoadPrompt(name string) (string, error) {
	content, err := promptFiles.ReadFile(fmt.Sprintf("prompts/%s.md", name))
	if err != nil {
		return "", fmt.Errorf("failed to load prompt %s: %w", name, err)
	}
	return strings.TrimSpace(string(content)), nil
}

// MustLoadPrompt is LoadPrompt for prompts that ship with the binary.
func MustLoadPrompt(name string) string {
	p, err := LoadPrompt(name)
	if err != nil {
		panic(err)
	}
	return p
}
