// Package trace walks the dependency index bottom-up: starting from a
// requested target table it finds the scripts that produce it, the tables
// those scripts read, and repeats until no producer remains or the depth
// ceiling is hit.
package trace

import (
	"fmt"
	"strings"

	"github.com/rootline-labs/rootline/internal/dag"
	"github.com/rootline-labs/rootline/internal/index"
	"github.com/rootline-labs/rootline/internal/lineage"
	"github.com/rootline-labs/rootline/internal/tableref"
)

// DefaultMaxDepth is the layer ceiling applied when a Tracer has none set.
const DefaultMaxDepth = 25

// WarningKind tags a non-fatal traversal finding.
type WarningKind int

const (
	// WarnAmbiguousMatch marks a partial reference that resolved to more
	// than one qualified table; the union of all candidates was traced.
	WarnAmbiguousMatch WarningKind = iota
	// WarnCycleDetected marks a directed cycle among the traversed tables.
	WarnCycleDetected
)

// Warning is attached to a Record instead of aborting the trace.
type Warning struct {
	Kind   WarningKind
	Ref    string
	Tables []string
}

// String implements fmt.Stringer.
func (w Warning) String() string {
	switch w.Kind {
	case WarnAmbiguousMatch:
		return fmt.Sprintf("ambiguous reference %q matches: %s", w.Ref, strings.Join(w.Tables, ", "))
	case WarnCycleDetected:
		return fmt.Sprintf("cycle detected: %s", strings.Join(w.Tables, " -> "))
	default:
		return ""
	}
}

// Record is the result of tracing one target. A table appears in at most
// the first layer at which it was discovered; re-encountering it later,
// whether through a diamond or a cycle, adds nothing to layer contents.
// Cyclic additionally reports whether a true directed cycle was seen.
type Record struct {
	Target    tableref.TableRef
	Layers    [][]tableref.TableRef
	Truncated bool
	Cyclic    bool
	Warnings  []Warning
}

// Row converts the record to the flat form the CSV codec works on.
func (r *Record) Row() lineage.Row {
	row := lineage.Row{Target: r.Target.Key()}
	for _, layer := range r.Layers {
		names := make([]string, len(layer))
		for i, ref := range layer {
			names[i] = ref.Key()
		}
		row.Layers = append(row.Layers, names)
	}
	return row
}

// Tracer runs bottom-up traces against a finalized index. The zero value is
// unusable; Index must be set. MaxDepth <= 0 falls back to DefaultMaxDepth.
type Tracer struct {
	Index    *index.Index
	Options  tableref.Options
	MaxDepth int
}

// Trace resolves raw and walks its producers upward layer by layer.
// Layers[0] holds the tables read by the direct producers of the target;
// each following layer holds the not-yet-seen tables read by the producers
// of the layer before it. An unknown or source-only table yields a record
// with zero layers. Only an invalid reference returns an error.
func (t *Tracer) Trace(raw string) (*Record, error) {
	ref, err := tableref.Normalize(raw, t.Options)
	if err != nil {
		return nil, err
	}

	maxDepth := t.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	rec := &Record{Target: ref}
	visited := map[string]struct{}{ref.Key(): {}}
	graph := dag.NewGraph()

	frontier := []tableref.TableRef{ref}
	for len(frontier) > 0 {
		next := t.step(frontier, visited, graph, rec)
		if len(next) == 0 {
			break
		}
		if len(rec.Layers) >= maxDepth {
			rec.Truncated = true
			break
		}
		rec.Layers = append(rec.Layers, next)
		frontier = next
	}

	if cyclic, path := graph.HasCycle(); cyclic {
		rec.Cyclic = true
		rec.Warnings = append(rec.Warnings, Warning{Kind: WarnCycleDetected, Tables: path})
	}
	return rec, nil
}

// step collects the next layer: the union of all frontier producers'
// sources in discovery order, minus every table already seen. Traversed
// producer edges are recorded in graph for cycle detection.
func (t *Tracer) step(frontier []tableref.TableRef, visited map[string]struct{}, graph *dag.Graph, rec *Record) []tableref.TableRef {
	var next []tableref.TableRef
	for _, tbl := range frontier {
		records, candidates := t.Index.Lookup(tbl)
		if len(candidates) > 1 {
			rec.Warnings = append(rec.Warnings, Warning{
				Kind:   WarnAmbiguousMatch,
				Ref:    tbl.Key(),
				Tables: candidates,
			})
		}
		for _, script := range records {
			for _, src := range script.Sources {
				graph.AddEdge(src.Key(), tbl.Key())
				if _, ok := visited[src.Key()]; ok {
					continue
				}
				visited[src.Key()] = struct{}{}
				next = append(next, src)
			}
		}
	}
	return next
}
