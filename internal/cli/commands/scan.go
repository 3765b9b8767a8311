package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rootline-labs/rootline/internal/cli/output"
	"github.com/rootline-labs/rootline/internal/engine"
	"github.com/rootline-labs/rootline/internal/lineage"
	"github.com/spf13/cobra"
)

// ScanOptions holds options for the scan command.
type ScanOptions struct {
	Force   bool
	Mapping string
	Watch   bool
}

// NewScanCommand creates the scan command.
func NewScanCommand() *cobra.Command {
	opts := &ScanOptions{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the corpus and catalog script-to-table mappings",
		Long: `Scan walks the corpus directory, extracts the tables each SQL view or
procedural script reads and produces, and records them in the catalog.

Unchanged files are skipped by content hash. Files that disappeared since
the last scan, or no longer produce a recognizable target, are removed
from the catalog.`,
		Example: `  # Scan the corpus configured in rootline.yaml
  rootline scan

  # Re-extract every file, ignoring content hashes
  rootline scan --force

  # Also write a script-to-target mapping CSV
  rootline scan --mapping mapping.csv

  # Keep watching the corpus and rescan on changes
  rootline scan --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "Re-extract all files, ignoring content hashes")
	cmd.Flags().StringVar(&opts.Mapping, "mapping", "", "Write a script-to-target mapping CSV to this path")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Watch the corpus and rescan on changes")

	return cmd
}

func runScan(cmd *cobra.Command, opts *ScanOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cmdCtx.Cfg.ValidateDirectories(); err != nil {
		return err
	}

	result, err := cmdCtx.Engine.Scan(cmd.Context(), engine.ScanOptions{Force: opts.Force})
	if err != nil {
		return err
	}

	mappingPath, err := writeMappingFile(cmdCtx, opts.Mapping)
	if err != nil {
		return err
	}

	if err := renderScan(cmdCtx, result, mappingPath); err != nil {
		return err
	}

	if opts.Watch {
		return watchScan(cmd, cmdCtx, opts)
	}

	return nil
}

// watchScan blocks, rescanning the corpus whenever files change, until the
// command is interrupted.
func watchScan(cmd *cobra.Command, cmdCtx *CommandContext, opts *ScanOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := cmdCtx.Renderer
	if r.EffectiveMode() != output.ModeJSON {
		r.Muted(fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", cmdCtx.Cfg.CorpusDir))
	}

	return cmdCtx.Engine.Watch(ctx, engine.ScanOptions{}, func(result *engine.ScanResult) {
		mappingPath, err := writeMappingFile(cmdCtx, opts.Mapping)
		if err != nil {
			r.Error(err.Error())
			return
		}
		if r.EffectiveMode() != output.ModeJSON {
			r.Muted(time.Now().Format("15:04:05") + " rescan")
		}
		if err := renderScan(cmdCtx, result, mappingPath); err != nil {
			r.Error(err.Error())
		}
	})
}

// writeMappingFile writes the script-to-target mapping CSV when a path was
// requested. It returns the absolute path written, or "" when disabled.
func writeMappingFile(cmdCtx *CommandContext, path string) (string, error) {
	if path == "" {
		return "", nil
	}

	idx, err := cmdCtx.Engine.LoadIndex()
	if err != nil {
		return "", err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	f, err := os.Create(abs)
	if err != nil {
		return "", fmt.Errorf("failed to create mapping file: %w", err)
	}
	defer f.Close()

	if err := lineage.WriteMapping(f, idx.MappingRows()); err != nil {
		return "", fmt.Errorf("failed to write mapping file: %w", err)
	}

	cmdCtx.Logger.Debug("wrote mapping file", "path", abs)
	return abs, nil
}

func renderScan(cmdCtx *CommandContext, result *engine.ScanResult, mappingPath string) error {
	r := cmdCtx.Renderer

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return scanJSON(r, cmdCtx, result, mappingPath)
	case output.ModeMarkdown:
		scanMarkdown(r, cmdCtx, result, mappingPath)
	default:
		scanText(r, cmdCtx, result, mappingPath)
	}
	return nil
}

func scanText(r *output.Renderer, cmdCtx *CommandContext, result *engine.ScanResult, mappingPath string) {
	r.Success("Scan complete")
	r.Muted(result.Summary())
	r.Muted(fmt.Sprintf("Catalog: %s", cmdCtx.Cfg.StatePath))
	if mappingPath != "" {
		r.Muted(fmt.Sprintf("Mapping: %s", mappingPath))
	}

	for _, problem := range result.Errors {
		r.Warning(fmt.Sprintf("%s: %s (%s)", problem.Path, problem.Message, problem.Type))
	}
}

func scanMarkdown(r *output.Renderer, cmdCtx *CommandContext, result *engine.ScanResult, mappingPath string) {
	r.Println(output.FormatHeader(1, "Scan Results"))
	r.Println()
	r.Println(output.FormatKeyValue("Files seen", result.FilesSeen))
	r.Println(output.FormatKeyValue("Scripts indexed", result.ScriptsIndexed))
	r.Println(output.FormatKeyValue("Scripts skipped", result.ScriptsSkipped))
	r.Println(output.FormatKeyValue("Scripts deleted", result.ScriptsDeleted))
	r.Println(output.FormatKeyValue("Duration", result.Duration.Round(time.Millisecond)))
	r.Println(output.FormatKeyValue("Catalog", cmdCtx.Cfg.StatePath))
	if mappingPath != "" {
		r.Println(output.FormatKeyValue("Mapping", mappingPath))
	}

	if result.HasErrors() {
		r.Println()
		r.Println(output.FormatHeader(2, "Problems"))
		r.Println()
		for _, problem := range result.Errors {
			r.Printf("- `%s`: %s (%s)\n", problem.Path, problem.Message, problem.Type)
		}
	}
}

func scanJSON(r *output.Renderer, cmdCtx *CommandContext, result *engine.ScanResult, mappingPath string) error {
	out := output.ScanOutput{
		Summary: output.ScanSummary{
			FilesSeen:      result.FilesSeen,
			ScriptsIndexed: result.ScriptsIndexed,
			ScriptsSkipped: result.ScriptsSkipped,
			ScriptsDeleted: result.ScriptsDeleted,
			Problems:       len(result.Errors),
			Duration:       result.Duration.Round(time.Millisecond).String(),
			Catalog:        cmdCtx.Cfg.StatePath,
		},
		Mapping: mappingPath,
	}
	for _, problem := range result.Errors {
		out.Problems = append(out.Problems, output.ScanProblem{
			Path:    problem.Path,
			Type:    problem.Type,
			Message: problem.Message,
		})
	}
	return r.JSON(out)
}
