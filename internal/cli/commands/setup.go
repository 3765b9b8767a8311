// Package commands implements the rootline subcommands.
package commands

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rootline-labs/rootline/internal/cli/config"
	"github.com/rootline-labs/rootline/internal/cli/output"
	intconfig "github.com/rootline-labs/rootline/internal/config"
	"github.com/rootline-labs/rootline/internal/engine"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	cleanup := func() {
		_ = eng.Close()
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: r,
	}, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't need catalog access.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// Helper functions shared across commands

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	// Fallback: read from environment with defaults
	corpusDir := getEnvOrDefault("ROOTLINE_CORPUS_DIR", intconfig.DefaultCorpusDir)
	statePath := getEnvOrDefault("ROOTLINE_STATE_PATH", intconfig.DefaultStateFile)
	defaultDatabase := os.Getenv("ROOTLINE_DEFAULT_DATABASE")
	caseSensitive := os.Getenv("ROOTLINE_CASE_SENSITIVE") == "true"
	maxDepth, _ := strconv.Atoi(os.Getenv("ROOTLINE_MAX_DEPTH"))
	workers, _ := strconv.Atoi(os.Getenv("ROOTLINE_WORKERS"))
	verbose := os.Getenv("ROOTLINE_VERBOSE") == "true"
	outputFormat := os.Getenv("ROOTLINE_OUTPUT")

	return &config.Config{
		CorpusDir:       corpusDir,
		StatePath:       statePath,
		DefaultDatabase: defaultDatabase,
		CaseSensitive:   caseSensitive,
		MaxDepth:        maxDepth,
		Workers:         workers,
		Verbose:         verbose,
		OutputFormat:    outputFormat,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	// Ensure catalog directory exists
	stateDir := filepath.Dir(cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0750); err != nil {
			return nil, err
		}
	}

	engineCfg := engine.Config{
		CorpusDir:       cfg.CorpusDir,
		StatePath:       cfg.StatePath,
		DefaultDatabase: cfg.DefaultDatabase,
		CaseSensitive:   cfg.CaseSensitive,
		Workers:         cfg.Workers,
		Logger:          logger,
	}

	return engine.New(engineCfg)
}
