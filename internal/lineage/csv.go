package lineage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

const (
	targetHeader  = "Target Table"
	layerPrefix   = "Layer "
	cellSeparator = ", "
)

// WriteTable writes the lineage CSV. Every row gets the same number of
// layer columns, sized by the deepest row; shallower rows pad with empty
// cells.
func WriteTable(w io.Writer, tbl *Table) error {
	maxLayers := tbl.MaxLayers()

	header := make([]string, 0, maxLayers+1)
	header = append(header, targetHeader)
	for i := 1; i <= maxLayers; i++ {
		header = append(header, layerPrefix+strconv.Itoa(i))
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write lineage header: %w", err)
	}
	for _, row := range tbl.Rows {
		record := make([]string, maxLayers+1)
		record[0] = row.Target
		for i, layer := range row.Layers {
			record[i+1] = strings.Join(layer, cellSeparator)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write lineage row %q: %w", row.Target, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTable parses a lineage CSV back into a Table. Layer columns may
// appear in any order; they are matched by their numeric suffix. Trailing
// empty layers are dropped so a written table reads back identical.
func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read lineage csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("lineage csv is empty")
	}

	header := records[0]
	if len(header) == 0 || header[0] != targetHeader {
		return nil, fmt.Errorf("unexpected first column, want %q", targetHeader)
	}
	layerCols := make(map[int]int, len(header)-1)
	maxLayer := 0
	for col := 1; col < len(header); col++ {
		numText := strings.TrimPrefix(header[col], layerPrefix)
		num, err := strconv.Atoi(strings.TrimSpace(numText))
		if numText == header[col] || err != nil || num < 1 {
			return nil, fmt.Errorf("unexpected lineage column %q", header[col])
		}
		layerCols[num] = col
		if num > maxLayer {
			maxLayer = num
		}
	}

	tbl := &Table{}
	for _, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		row := Row{Target: record[0]}
		layers := make([][]string, maxLayer)
		for num, col := range layerCols {
			if col < len(record) {
				layers[num-1] = parseCell(record[col])
			}
		}
		end := len(layers)
		for end > 0 && len(layers[end-1]) == 0 {
			end--
		}
		if end > 0 {
			row.Layers = layers[:end]
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl, nil
}

func parseCell(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	parts := strings.Split(cell, cellSeparator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// WriteMapping writes the script-to-target audit CSV, sorted by script then
// target.
func WriteMapping(w io.Writer, rows []MappingRow) error {
	sorted := make([]MappingRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Script != sorted[j].Script {
			return sorted[i].Script < sorted[j].Script
		}
		return sorted[i].Target < sorted[j].Target
	})

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"script name", "target table"}); err != nil {
		return fmt.Errorf("write mapping header: %w", err)
	}
	for _, row := range sorted {
		if err := cw.Write([]string{row.Script, row.Target}); err != nil {
			return fmt.Errorf("write mapping row %q: %w", row.Script, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
