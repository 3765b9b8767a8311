package lineage

// Row is one traced target with its upstream layers.
type Row struct {
	Target string
	Layers [][]string
}

// Table is an ordered collection of lineage rows.
type Table struct {
	Rows []Row
}

// MaxLayers returns the deepest layer count over all rows. It determines
// how many layer columns the table is written with.
func (t *Table) MaxLayers() int {
	max := 0
	for _, row := range t.Rows {
		if len(row.Layers) > max {
			max = len(row.Layers)
		}
	}
	return max
}

// MappingRow is one (script, target) pair of the audit artifact.
type MappingRow struct {
	Script string
	Target string
}
