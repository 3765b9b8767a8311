package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rootline-labs/rootline/internal/extract"
	"github.com/rootline-labs/rootline/internal/index"
	"github.com/rootline-labs/rootline/internal/state"
	"github.com/rootline-labs/rootline/internal/tableref"
)

// ScanOptions configures a corpus scan.
type ScanOptions struct {
	// Force ignores stored content hashes and re-extracts every file.
	Force bool
}

// ScanResult contains statistics about one scan run.
type ScanResult struct {
	RunID          string
	FilesSeen      int
	ScriptsIndexed int
	ScriptsSkipped int
	ScriptsDeleted int
	Errors         []ScanError
	Duration       time.Duration
}

// ScanError represents a non-fatal per-file problem found during a scan.
type ScanError struct {
	Path    string
	Type    string // "read_error", "unrecognized", "no_target", "invalid_ref", "extract_error"
	Message string
}

// HasErrors returns true if any per-file problems were recorded.
func (r *ScanResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Summary returns a human-readable summary.
func (r *ScanResult) Summary() string {
	return fmt.Sprintf(
		"Files: %d seen | Scripts: %d indexed, %d skipped, %d deleted | Problems: %d | Duration: %s",
		r.FilesSeen, r.ScriptsIndexed, r.ScriptsSkipped, r.ScriptsDeleted, len(r.Errors),
		r.Duration.Round(time.Millisecond),
	)
}

// Scan walks the corpus, extracts table references from changed scripts, and
// reconciles the catalog: unchanged files are skipped by content hash unless
// opts.Force is set, and cataloged files that disappeared or stopped
// producing a target are removed. Every run is logged in the catalog with
// its per-file diagnostics.
func (e *Engine) Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	start := time.Now()

	run, err := e.store.CreateScanRun(e.corpusDir)
	if err != nil {
		return nil, err
	}
	result := &ScanResult{RunID: run.ID}

	e.logger.Info("starting scan", "corpus_dir", e.corpusDir, "force", opts.Force)

	err = e.scan(ctx, opts, result)
	result.Duration = time.Since(start)

	if err == nil {
		err = e.store.AddDiagnostics(run.ID, diagnosticsOf(result.Errors))
	}

	run.FilesSeen = result.FilesSeen
	run.ScriptsIndexed = result.ScriptsIndexed
	run.ScriptsSkipped = result.ScriptsSkipped
	run.ErrorCount = len(result.Errors)
	if err != nil {
		run.Status = state.ScanStatusFailed
		run.Error = err.Error()
	} else {
		run.Status = state.ScanStatusCompleted
	}
	if cerr := e.store.CompleteScanRun(run); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return result, err
	}

	e.logger.Info("scan completed",
		"files_seen", result.FilesSeen,
		"scripts_indexed", result.ScriptsIndexed,
		"scripts_skipped", result.ScriptsSkipped,
		"scripts_deleted", result.ScriptsDeleted,
		"problems", len(result.Errors),
		"duration_ms", result.Duration.Milliseconds())

	return result, nil
}

func (e *Engine) scan(ctx context.Context, opts ScanOptions, result *ScanResult) error {
	if _, err := os.Stat(e.corpusDir); err != nil {
		return fmt.Errorf("corpus directory: %w", err)
	}

	candidates, err := e.collectCandidates()
	if err != nil {
		return fmt.Errorf("failed to walk corpus: %w", err)
	}
	result.FilesSeen = len(candidates)

	storedHashes, err := e.store.ContentHashes()
	if err != nil {
		return err
	}

	results := e.extractAll(ctx, candidates, storedHashes, opts.Force)
	if err := ctx.Err(); err != nil {
		return err
	}

	builder := index.NewBuilder(e.refOpts)
	seen := make(map[string]bool, len(candidates))
	changed := make(map[string]fileResult, len(candidates))

	for _, fr := range results {
		switch {
		case fr.diag != nil:
			e.logger.Debug("scan problem", "path", fr.diag.Path, "type", fr.diag.Type, "message", fr.diag.Message)
			result.Errors = append(result.Errors, *fr.diag)
		case fr.skipped:
			e.logger.Debug("skipping unchanged script", "path", fr.path)
			seen[fr.path] = true
			result.ScriptsSkipped++
		default:
			indexed, invalid := builder.Add(fr.path, fr.kind, fr.res)
			if len(invalid) > 0 {
				result.Errors = append(result.Errors, ScanError{
					Path:    fr.path,
					Type:    "invalid_ref",
					Message: "invalid table references: " + strings.Join(invalid, ", "),
				})
			}
			if !indexed {
				result.Errors = append(result.Errors, ScanError{
					Path:    fr.path,
					Type:    "no_target",
					Message: "no target table found",
				})
				continue
			}
			changed[fr.path] = fr
		}
	}

	// Persist changed scripts with their normalized references.
	for _, rec := range builder.Index().Records() {
		fr, ok := changed[rec.Path]
		if !ok {
			continue
		}
		script := &state.Script{
			Path:        rec.Path,
			Kind:        rec.Kind.String(),
			ContentHash: fr.hash,
			Targets:     refKeys(rec.Targets),
			Sources:     refKeys(rec.Sources),
		}
		if err := e.store.UpsertScript(script); err != nil {
			return fmt.Errorf("failed to catalog %s: %w", rec.Path, err)
		}
		e.logger.Debug("cataloged script", "path", rec.Path, "kind", script.Kind, "targets", len(script.Targets))
		seen[rec.Path] = true
		result.ScriptsIndexed++
	}

	// Remove catalog entries whose files disappeared or no longer index.
	for path := range storedHashes {
		if seen[path] {
			continue
		}
		if err := e.store.DeleteScript(path); err != nil {
			return fmt.Errorf("failed to remove %s from catalog: %w", path, err)
		}
		e.logger.Debug("removed stale catalog entry", "path", path)
		result.ScriptsDeleted++
	}

	return nil
}

// candidate is one walkable corpus file, keyed by its corpus-relative
// slash-separated path.
type candidate struct {
	abs string
	rel string
}

func (e *Engine) collectCandidates() ([]candidate, error) {
	var candidates []candidate
	err := filepath.Walk(e.corpusDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			if path != e.corpusDir && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") {
			return nil
		}
		if !isCandidate(info.Name()) {
			return nil
		}
		rel, err := filepath.Rel(e.corpusDir, path)
		if err != nil {
			return err
		}
		candidates = append(candidates, candidate{abs: path, rel: filepath.ToSlash(rel)})
		return nil
	})
	return candidates, err
}

// isCandidate reports whether a file name looks like a script: a recognized
// extension, or no extension at all (those are classified by content).
func isCandidate(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".sql", ".py", ".scala", "":
		return true
	default:
		return false
	}
}

// fileResult is the outcome of reading and extracting one candidate file.
type fileResult struct {
	path    string
	kind    extract.Kind
	hash    string
	res     extract.Result
	skipped bool
	diag    *ScanError
}

// extractAll reads and extracts candidates with bounded parallelism. Results
// are positioned by candidate order so reconciliation stays deterministic.
func (e *Engine) extractAll(ctx context.Context, candidates []candidate, stored map[string]string, force bool) []fileResult {
	results := make([]fileResult, len(candidates))

	workers := e.workers
	if workers > len(candidates) {
		workers = len(candidates)
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, c := range candidates {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = e.extractOne(c.abs, c.rel, stored, force)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (e *Engine) extractOne(absPath, relPath string, stored map[string]string, force bool) fileResult {
	fr := fileResult{path: relPath}

	content, err := os.ReadFile(absPath)
	if err != nil {
		fr.diag = &ScanError{Path: relPath, Type: "read_error", Message: err.Error()}
		return fr
	}
	text := string(content)
	fr.hash = computeHash(text)

	if !force {
		if hash, ok := stored[relPath]; ok && hash == fr.hash {
			fr.skipped = true
			return fr
		}
	}

	kind, ok := extract.DetectKind(relPath, text)
	if !ok {
		fr.diag = &ScanError{Path: relPath, Type: "unrecognized", Message: "cannot determine script kind"}
		return fr
	}
	fr.kind = kind

	res, err := extract.ForKind(kind).Extract(text)
	fr.res = res
	if err != nil {
		diagType := "extract_error"
		if errors.Is(err, extract.ErrNoTargetFound) {
			diagType = "no_target"
		}
		fr.diag = &ScanError{Path: relPath, Type: diagType, Message: err.Error()}
		return fr
	}
	return fr
}

func refKeys(refs []tableref.TableRef) []string {
	keys := make([]string, len(refs))
	for i, ref := range refs {
		keys[i] = ref.Key()
	}
	return keys
}

func diagnosticsOf(errs []ScanError) []state.Diagnostic {
	diags := make([]state.Diagnostic, len(errs))
	for i, se := range errs {
		diags[i] = state.Diagnostic{Path: se.Path, Type: se.Type, Message: se.Message}
	}
	return diags
}

// computeHash generates a SHA256 hash of content.
func computeHash(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:8]) // Use first 8 bytes for brevity
}
