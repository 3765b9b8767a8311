package config

// Default configuration values.
const (
	DefaultCorpusDir = "."
	DefaultStateFile = ".rootline/catalog.db"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// EnvPrefix is the prefix for configuration environment variables.
// ROOTLINE_CORPUS_DIR overrides the corpus_dir key, ROOTLINE_STATE_PATH
// overrides state_path, and so on.
const EnvPrefix = "ROOTLINE_"
