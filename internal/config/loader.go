// Package config holds configuration defaults and config-file discovery
// shared across Rootline tooling. It is decoupled from CLI flag handling
// so anything that reads rootline.yaml can locate it the same way.
package config

import (
	"os"
	"path/filepath"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "rootline.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "rootline.yml"

// FindConfigFile returns the path to the config file in the given directory,
// preferring rootline.yaml over rootline.yml.
// Returns empty string if neither exists.
func FindConfigFile(dir string) string {
	yamlPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}

	ymlPath := filepath.Join(dir, ConfigFileNameAlt)
	if _, err := os.Stat(ymlPath); err == nil {
		return ymlPath
	}

	return ""
}

// ExistsIn reports whether a config file exists in the given directory.
func ExistsIn(dir string) bool {
	return FindConfigFile(dir) != ""
}

// FindProjectRoot walks up from startDir looking for a directory containing
// rootline.yaml or rootline.yml, giving up after maxLevels parents.
// Returns empty string if not found.
func FindProjectRoot(startDir string, maxLevels int) string {
	dir := startDir
	for i := 0; i < maxLevels; i++ {
		if ExistsIn(dir) {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
	return ""
}
