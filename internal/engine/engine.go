// Package engine orchestrates corpus scans. It walks the script corpus,
// classifies and extracts table references from changed files, reconciles
// the catalog, and rebuilds the lookup index the tracer works from.
package engine

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/rootline-labs/rootline/internal/extract"
	"github.com/rootline-labs/rootline/internal/index"
	"github.com/rootline-labs/rootline/internal/state"
	"github.com/rootline-labs/rootline/internal/tableref"
)

// Engine owns the catalog store and runs scans against one corpus directory.
type Engine struct {
	logger    *slog.Logger
	store     *state.SQLiteStore
	corpusDir string
	refOpts   tableref.Options
	workers   int
}

// Config holds engine configuration.
type Config struct {
	// CorpusDir is the directory scanned for scripts
	CorpusDir string
	// StatePath is the path to the SQLite catalog database
	StatePath string
	// DefaultDatabase qualifies bare table names during normalization (optional)
	DefaultDatabase string
	// CaseSensitive preserves the case of table references
	CaseSensitive bool
	// Workers bounds concurrent file extraction (defaults to NumCPU)
	Workers int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine, opening the catalog and migrating its schema.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Debug("initializing engine", "corpus_dir", cfg.CorpusDir, "state_path", cfg.StatePath)

	store := state.NewSQLiteStore()
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open catalog store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate catalog schema: %w", err)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &Engine{
		logger:    logger,
		store:     store,
		corpusDir: cfg.CorpusDir,
		refOpts: tableref.Options{
			DefaultDatabase: cfg.DefaultDatabase,
			CaseSensitive:   cfg.CaseSensitive,
		},
		workers: workers,
	}, nil
}

// Close releases the catalog store.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Store returns the catalog store.
func (e *Engine) Store() *state.SQLiteStore {
	return e.store
}

// LoadIndex rebuilds the in-memory lookup index from the catalog. Keys were
// normalized when cataloged, so they are parsed back verbatim here.
func (e *Engine) LoadIndex() (*index.Index, error) {
	scripts, err := e.store.ListScripts()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	builder := index.NewBuilder(e.refOpts)
	for _, script := range scripts {
		kind, err := extract.ParseKind(script.Kind)
		if err != nil {
			return nil, fmt.Errorf("script %s: %w", script.Path, err)
		}
		rec := &index.ScriptRecord{Path: script.Path, Kind: kind}
		if rec.Targets, err = parseKeys(script.Targets); err != nil {
			return nil, fmt.Errorf("script %s: %w", script.Path, err)
		}
		if rec.Sources, err = parseKeys(script.Sources); err != nil {
			return nil, fmt.Errorf("script %s: %w", script.Path, err)
		}
		builder.AddRecord(rec)
	}

	idx := builder.Index()
	e.logger.Debug("index loaded", "scripts", idx.ScriptCount(), "tables", idx.TargetCount())
	return idx, nil
}

func parseKeys(keys []string) ([]tableref.TableRef, error) {
	refs := make([]tableref.TableRef, 0, len(keys))
	for _, key := range keys {
		ref, err := tableref.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("invalid catalog key %q: %w", key, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
