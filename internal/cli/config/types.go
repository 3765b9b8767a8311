// Package config provides configuration management for the Rootline CLI.
//
// Configuration is layered from four sources, highest precedence first:
// command-line flags, ROOTLINE_-prefixed environment variables, a
// rootline.yaml config file, and built-in defaults. The defaults and the
// config-file discovery rules live in internal/config and are re-exported
// here for convenience.
package config

import (
	sharedcfg "github.com/rootline-labs/rootline/internal/config"
)

// Config holds all CLI configuration options.
type Config struct {
	CorpusDir       string `koanf:"corpus_dir"`
	StatePath       string `koanf:"state_path"`
	DefaultDatabase string `koanf:"default_database"`
	CaseSensitive   bool   `koanf:"case_sensitive"`
	MaxDepth        int    `koanf:"max_depth"`
	Workers         int    `koanf:"workers"`
	Verbose         bool   `koanf:"verbose"`
	OutputFormat    string `koanf:"output"`

	// ProjectRoot is the directory relative config paths resolve against.
	// It is inferred during loading and never read from the config file.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultCorpusDir = sharedcfg.DefaultCorpusDir
	DefaultStateFile = sharedcfg.DefaultStateFile
	DefaultOutput    = sharedcfg.DefaultOutput
)
