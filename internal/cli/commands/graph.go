package commands

import (
	"fmt"
	"strings"

	"github.com/rootline-labs/rootline/internal/cli/output"
	"github.com/rootline-labs/rootline/internal/dag"
	"github.com/rootline-labs/rootline/internal/index"
	"github.com/spf13/cobra"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Show the table graph built from the catalog",
		Long: `Display the whole-corpus table graph: every table the catalog knows,
with an edge from each source table to each table produced from it.

Tables are grouped by level. Level 0 holds the raw sources that no
script produces; each following level holds tables producible once the
previous levels exist. A corpus with circular script definitions has no
levels; the cycle is reported instead.`,
		Example: `  # Show the table graph
  rootline graph

  # Output as JSON
  rootline graph --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGraph(cmd)
		},
	}

	return cmd
}

func runGraph(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	idx, err := cmdCtx.Engine.LoadIndex()
	if err != nil {
		return err
	}

	g := buildTableGraph(idx)

	cyclic, cyclePath := g.HasCycle()
	var levels [][]string
	if !cyclic {
		levels, err = g.Levels()
		if err != nil {
			return fmt.Errorf("failed to level the table graph: %w", err)
		}
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return graphJSON(r, idx, g, levels, cyclic, cyclePath)
	case output.ModeMarkdown:
		return graphMarkdown(r, idx, g, levels, cyclic, cyclePath)
	default:
		return graphText(r, idx, g, levels, cyclic, cyclePath)
	}
}

// buildTableGraph assembles the whole-corpus graph with an edge from every
// source table to every table produced from it.
func buildTableGraph(idx *index.Index) *dag.Graph {
	g := dag.NewGraph()
	for _, rec := range idx.Records() {
		for _, target := range rec.Targets {
			g.AddNode(target.Key())
			for _, source := range rec.Sources {
				g.AddEdge(source.Key(), target.Key())
			}
		}
	}
	return g
}

// graphText outputs the table graph in styled text format.
func graphText(r *output.Renderer, idx *index.Index, g *dag.Graph, levels [][]string, cyclic bool, cyclePath []string) error {
	r.Header(1, "Table Graph")
	r.Println()

	for i, level := range levels {
		name := fmt.Sprintf("Level %d:", i)
		if i == 0 {
			name = "Level 0 (raw sources):"
		}
		r.Header(2, name)
		for _, table := range level {
			r.Printf("  %s\n", table)
			if parents := g.GetParents(table); len(parents) > 0 {
				r.Printf("    from: %s\n", strings.Join(parents, ", "))
			}
			if children := g.GetChildren(table); len(children) > 0 {
				r.Printf("    feeds: %s\n", strings.Join(children, ", "))
			}
		}
		r.Println()
	}

	if cyclic {
		r.Warning(fmt.Sprintf("cycle detected: %s", strings.Join(cyclePath, " -> ")))
	}

	r.Muted(fmt.Sprintf("Total: %d tables, %d edges, %d scripts", g.NodeCount(), g.EdgeCount(), idx.ScriptCount()))
	r.Muted(fmt.Sprintf("Raw sources: %s", strings.Join(g.GetRoots(), ", ")))
	r.Muted(fmt.Sprintf("Terminal outputs: %s", strings.Join(g.GetLeaves(), ", ")))

	return nil
}

// graphMarkdown outputs the table graph in markdown format.
func graphMarkdown(r *output.Renderer, idx *index.Index, g *dag.Graph, levels [][]string, cyclic bool, cyclePath []string) error {
	r.Println(output.FormatHeader(1, "Table Graph"))
	r.Println()

	for i, level := range levels {
		name := fmt.Sprintf("Level %d", i)
		if i == 0 {
			name = "Level 0 (Raw Sources)"
		}
		r.Println(output.FormatHeader(2, name))

		for _, table := range level {
			r.Printf("- %s\n", table)
			if parents := g.GetParents(table); len(parents) > 0 {
				r.Printf("  - from: %s\n", strings.Join(parents, ", "))
			}
			if children := g.GetChildren(table); len(children) > 0 {
				r.Printf("  - feeds: %s\n", strings.Join(children, ", "))
			}
		}
		r.Println()
	}

	if cyclic {
		r.Println(output.FormatHeader(2, "Cycle"))
		r.Printf("- %s\n", strings.Join(cyclePath, " -> "))
		r.Println()
	}

	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Tables", g.NodeCount()))
	r.Println(output.FormatKeyValue("Edges", g.EdgeCount()))
	r.Println(output.FormatKeyValue("Scripts", idx.ScriptCount()))
	r.Println(output.FormatKeyValue("Raw sources", strings.Join(g.GetRoots(), ", ")))
	r.Println(output.FormatKeyValue("Terminal outputs", strings.Join(g.GetLeaves(), ", ")))

	return nil
}

// graphJSON outputs the table graph in JSON format.
func graphJSON(r *output.Renderer, idx *index.Index, g *dag.Graph, levels [][]string, cyclic bool, cyclePath []string) error {
	out := output.GraphOutput{
		Tables:    g.NodeCount(),
		Edges:     g.EdgeCount(),
		Scripts:   idx.ScriptCount(),
		Roots:     g.GetRoots(),
		Leaves:    g.GetLeaves(),
		Cyclic:    cyclic,
		CyclePath: cyclePath,
	}

	for i, level := range levels {
		out.Levels = append(out.Levels, output.GraphLevel{
			Level:  i,
			Tables: level,
		})
	}

	return r.JSON(out)
}
