// Package expand post-processes a lineage table: every table that appears
// only inside some row's layers is promoted to a top-level row of its own,
// carrying the remainder of the chain it was found in.
package expand

import (
	"strings"

	"github.com/rootline-labs/rootline/internal/lineage"
)

// Expand returns a new table holding the input rows verbatim plus one
// promoted row per table that was seen in a layer but had no row yet. Rows
// are appended in encounter order (rows, then layers, then cell entries).
// A promoted row at layer N carries a deep copy of the source row's layers
// after N, cut at the first empty layer; tables found in promoted rows are
// not re-expanded. Targets are matched case-insensitively, entries are
// copied as written. The input table is not modified.
func Expand(tbl *lineage.Table) *lineage.Table {
	seen := make(map[string]struct{}, len(tbl.Rows))
	for _, row := range tbl.Rows {
		seen[strings.ToLower(row.Target)] = struct{}{}
	}

	out := &lineage.Table{Rows: append([]lineage.Row(nil), tbl.Rows...)}
	for _, row := range tbl.Rows {
		for i, layer := range row.Layers {
			for _, name := range layer {
				key := strings.ToLower(name)
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				out.Rows = append(out.Rows, lineage.Row{
					Target: name,
					Layers: copyTail(row.Layers, i+1),
				})
			}
		}
	}
	return out
}

// copyTail deep-copies layers[from:] up to, not including, the first empty
// layer.
func copyTail(layers [][]string, from int) [][]string {
	var out [][]string
	for _, layer := range layers[from:] {
		if len(layer) == 0 {
			break
		}
		cp := make([]string, len(layer))
		copy(cp, layer)
		out = append(out, cp)
	}
	return out
}
