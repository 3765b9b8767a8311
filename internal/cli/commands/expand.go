package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rootline-labs/rootline/internal/cli/output"
	"github.com/rootline-labs/rootline/internal/expand"
	"github.com/rootline-labs/rootline/internal/lineage"
	"github.com/spf13/cobra"
)

// ExpandOptions holds options for the expand command.
type ExpandOptions struct {
	In  string
	Out string
}

// NewExpandCommand creates the expand command.
func NewExpandCommand() *cobra.Command {
	opts := &ExpandOptions{}

	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Promote every intermediate table in a lineage CSV to its own row",
		Long: `Expand reads a lineage CSV produced by trace and adds one row for every
table that appears in any layer but has no row of its own. A promoted
table's lineage is the suffix of the row it was discovered in, so no
catalog access is needed.

The first row of an expanded file answers "where does my target come
from?"; the promoted rows answer the same question for everything in
between.`,
		Example: `  # Expand the default trace output
  rootline expand

  # Explicit input and output paths
  rootline expand --in reports/lineage.csv --out reports/lineage_expanded.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExpand(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.In, "in", "lineage.csv", "Lineage CSV to read")
	cmd.Flags().StringVar(&opts.Out, "out", "lineage_expanded.csv", "Expanded CSV to write")

	return cmd
}

func runExpand(cmd *cobra.Command, opts *ExpandOptions) error {
	// Expand works purely on the CSV, no catalog needed.
	cmdCtx := NewCommandContextWithoutEngine(cmd)

	inPath, err := filepath.Abs(opts.In)
	if err != nil {
		inPath = opts.In
	}

	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("failed to open lineage file: %w", err)
	}
	defer in.Close()

	tbl, err := lineage.ReadTable(in)
	if err != nil {
		return fmt.Errorf("failed to read lineage file %s: %w", inPath, err)
	}

	expanded := expand.Expand(tbl)

	outPath, err := filepath.Abs(opts.Out)
	if err != nil {
		outPath = opts.Out
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create expanded file: %w", err)
	}
	defer out.Close()

	if err := lineage.WriteTable(out, expanded); err != nil {
		return fmt.Errorf("failed to write expanded file: %w", err)
	}

	cmdCtx.Logger.Debug("expanded lineage",
		"in", inPath, "out", outPath,
		"rows_in", len(tbl.Rows), "rows_out", len(expanded.Rows))

	return renderExpand(cmdCtx, inPath, outPath, len(tbl.Rows), len(expanded.Rows))
}

func renderExpand(cmdCtx *CommandContext, inPath, outPath string, rowsIn, rowsOut int) error {
	r := cmdCtx.Renderer
	promoted := rowsOut - rowsIn

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(output.ExpandOutput{
			Input:    inPath,
			Output:   outPath,
			RowsIn:   rowsIn,
			RowsOut:  rowsOut,
			Promoted: promoted,
		})

	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Expand Results"))
		r.Println()
		r.Println(output.FormatKeyValue("Input", inPath))
		r.Println(output.FormatKeyValue("Output", outPath))
		r.Println(output.FormatKeyValue("Rows in", rowsIn))
		r.Println(output.FormatKeyValue("Rows out", rowsOut))
		r.Println(output.FormatKeyValue("Promoted tables", promoted))

	default:
		r.Success(fmt.Sprintf("Promoted %d tables (%d rows in, %d rows out)", promoted, rowsIn, rowsOut))
		r.Muted(fmt.Sprintf("Expanded lineage written to %s", outPath))
	}
	return nil
}
