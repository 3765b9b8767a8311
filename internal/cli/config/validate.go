package config

import (
	"fmt"
	"os"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be at least 1, got %d", c.MaxDepth)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	switch c.OutputFormat {
	case "", "auto", "text", "markdown", "json":
	default:
		return fmt.Errorf("unknown output format %q (valid: auto, text, markdown, json)", c.OutputFormat)
	}

	// Directory existence is checked separately so commands that never read
	// the corpus (expand, version) work outside a project.
	return nil
}

// ValidateDirectories checks if required directories exist.
func (c *Config) ValidateDirectories() error {
	info, err := os.Stat(c.CorpusDir)
	if os.IsNotExist(err) {
		return fmt.Errorf("corpus directory does not exist: %s\nHint: Create the directory or use --corpus-dir to specify a different path", c.CorpusDir)
	}
	if err != nil {
		return fmt.Errorf("cannot access corpus directory %s: %w", c.CorpusDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("corpus path is not a directory: %s", c.CorpusDir)
	}
	return nil
}
