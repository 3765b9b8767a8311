package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rootline-labs/rootline/internal/cli/output"
	"github.com/rootline-labs/rootline/internal/lineage"
	"github.com/rootline-labs/rootline/internal/tableref"
	"github.com/rootline-labs/rootline/internal/trace"
	"github.com/spf13/cobra"
)

// TraceOptions holds options for the trace command.
type TraceOptions struct {
	Out         string
	Interactive bool
}

// NewTraceCommand creates the trace command.
func NewTraceCommand() *cobra.Command {
	opts := &TraceOptions{}

	cmd := &cobra.Command{
		Use:   "trace <table> [<table>...]",
		Short: "Trace a table back to its raw sources, layer by layer",
		Long: `Trace walks from each target table through the scripts that produce it,
collecting the tables those scripts read, then the tables that produce
those, until only raw sources remain.

Layer 1 holds the direct inputs of the target's producers; each following
layer holds the inputs one step further upstream. A table unknown to the
catalog yields a row with no layers.`,
		Example: `  # Trace one table and write lineage.csv
  rootline trace mart.daily_orders

  # Trace several tables into a custom file
  rootline trace mart.daily_orders mart.returns --out reports/lineage.csv

  # Bound the walk and qualify bare names
  rootline trace orders --max-depth 3 --default-database analytics

  # Explore the catalog interactively
  rootline trace --interactive`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Out, "out", "lineage.csv", "Path of the lineage CSV to write")
	cmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false, "Explore lineage in an interactive session")

	return cmd
}

func runTrace(cmd *cobra.Command, args []string, opts *TraceOptions) error {
	if len(args) == 0 && !opts.Interactive {
		return fmt.Errorf("requires at least one table name (or --interactive)")
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	idx, err := cmdCtx.Engine.LoadIndex()
	if err != nil {
		return err
	}

	tracer := &trace.Tracer{
		Index: idx,
		Options: tableref.Options{
			DefaultDatabase: cmdCtx.Cfg.DefaultDatabase,
			CaseSensitive:   cmdCtx.Cfg.CaseSensitive,
		},
		MaxDepth: cmdCtx.Cfg.MaxDepth,
	}

	var records []*trace.Record
	for _, arg := range args {
		rec, err := tracer.Trace(arg)
		if err != nil {
			if errors.Is(err, tableref.ErrInvalidReference) {
				cmdCtx.Renderer.Warning(fmt.Sprintf("skipping %q: %v", arg, err))
				continue
			}
			return err
		}
		records = append(records, rec)
	}

	if opts.Interactive {
		for _, rec := range records {
			traceRecordText(cmdCtx.Renderer, rec)
		}
		return runTraceREPL(cmd, cmdCtx, idx, tracer)
	}

	if len(records) == 0 {
		return fmt.Errorf("no valid table references given")
	}

	outPath, err := writeLineageFile(records, opts.Out)
	if err != nil {
		return err
	}

	return renderTrace(cmdCtx, records, outPath)
}

// writeLineageFile writes the layered lineage CSV. An empty path disables
// the file and only renders to the terminal.
func writeLineageFile(records []*trace.Record, path string) (string, error) {
	if path == "" {
		return "", nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	f, err := os.Create(abs)
	if err != nil {
		return "", fmt.Errorf("failed to create lineage file: %w", err)
	}
	defer f.Close()

	if err := lineage.WriteTable(f, lineageTable(records)); err != nil {
		return "", fmt.Errorf("failed to write lineage file: %w", err)
	}
	return abs, nil
}

func lineageTable(records []*trace.Record) *lineage.Table {
	tbl := &lineage.Table{}
	for _, rec := range records {
		tbl.Rows = append(tbl.Rows, rec.Row())
	}
	return tbl
}

func renderTrace(cmdCtx *CommandContext, records []*trace.Record, outPath string) error {
	r := cmdCtx.Renderer

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return traceJSON(r, records, outPath)
	case output.ModeMarkdown:
		traceMarkdown(r, records, outPath)
	default:
		traceText(r, records, outPath)
	}
	return nil
}

// lineageCells flattens the records into table cells: one row per target,
// one column per layer, multiple tables in a cell joined by commas.
func lineageCells(records []*trace.Record) (header []string, rows [][]string) {
	tbl := lineageTable(records)
	depth := tbl.MaxLayers()

	header = make([]string, 0, depth+1)
	header = append(header, "Target Table")
	for i := 1; i <= depth; i++ {
		header = append(header, fmt.Sprintf("Layer %d", i))
	}

	for _, row := range tbl.Rows {
		cells := make([]string, depth+1)
		cells[0] = row.Target
		for i, layer := range row.Layers {
			cells[i+1] = strings.Join(layer, ", ")
		}
		rows = append(rows, cells)
	}
	return header, rows
}

func traceText(r *output.Renderer, records []*trace.Record, outPath string) {
	header, rows := lineageCells(records)
	r.Table(header, rows)

	for _, rec := range records {
		if len(rec.Layers) == 0 {
			r.Muted(fmt.Sprintf("%s: no producing script in the catalog", rec.Target.Key()))
		}
		if rec.Truncated {
			r.Muted(fmt.Sprintf("%s: trace truncated at %d layers", rec.Target.Key(), len(rec.Layers)))
		}
		for _, w := range rec.Warnings {
			r.Warning(fmt.Sprintf("%s: %s", rec.Target.Key(), w))
		}
	}

	if outPath != "" {
		r.Success(fmt.Sprintf("Lineage written to %s", outPath))
	}
}

func traceMarkdown(r *output.Renderer, records []*trace.Record, outPath string) {
	r.Println(output.FormatHeader(1, "Lineage"))
	r.Println()

	header, rows := lineageCells(records)
	r.Table(header, rows)
	r.Println()

	var notes []string
	for _, rec := range records {
		if len(rec.Layers) == 0 {
			notes = append(notes, fmt.Sprintf("`%s`: no producing script in the catalog", rec.Target.Key()))
		}
		if rec.Truncated {
			notes = append(notes, fmt.Sprintf("`%s`: trace truncated at %d layers", rec.Target.Key(), len(rec.Layers)))
		}
		for _, w := range rec.Warnings {
			notes = append(notes, fmt.Sprintf("`%s`: %s", rec.Target.Key(), w))
		}
	}
	if len(notes) > 0 {
		r.Println(output.FormatHeader(2, "Notes"))
		r.Println()
		for _, note := range notes {
			r.Println("- " + note)
		}
		r.Println()
	}

	if outPath != "" {
		r.Println(output.FormatKeyValue("Written to", outPath))
	}
}

func traceJSON(r *output.Renderer, records []*trace.Record, outPath string) error {
	out := output.TraceOutput{Output: outPath}
	for _, rec := range records {
		row := rec.Row()
		jr := output.TraceRecord{
			Target:    row.Target,
			Layers:    row.Layers,
			Truncated: rec.Truncated,
			Cyclic:    rec.Cyclic,
		}
		if jr.Layers == nil {
			jr.Layers = [][]string{}
		}
		for _, w := range rec.Warnings {
			jr.Warnings = append(jr.Warnings, w.String())
		}
		out.Records = append(out.Records, jr)
	}
	return r.JSON(out)
}

// traceRecordText prints one record in the layered long form used by the
// interactive session.
func traceRecordText(r *output.Renderer, rec *trace.Record) {
	r.Header(2, rec.Target.Key())
	if len(rec.Layers) == 0 {
		r.Muted("  no producing script in the catalog")
	}
	for i, layer := range rec.Layers {
		names := make([]string, len(layer))
		for j, ref := range layer {
			names[j] = ref.Key()
		}
		r.Printf("  Layer %d: %s\n", i+1, strings.Join(names, ", "))
	}
	if rec.Truncated {
		r.Muted(fmt.Sprintf("  truncated at %d layers", len(rec.Layers)))
	}
	for _, w := range rec.Warnings {
		r.Warning(w.String())
	}
}
