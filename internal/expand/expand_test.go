package expand

import (
	"reflect"
	"testing"

	"github.com/rootline-labs/rootline/internal/lineage"
)

func TestExpand_PromotesIntermediateTables(t *testing.T) {
	in := &lineage.Table{Rows: []lineage.Row{
		{Target: "db.final", Layers: [][]string{{"db.v1"}, {"raw.a", "raw.b"}}},
	}}

	out := Expand(in)

	want := []lineage.Row{
		{Target: "db.final", Layers: [][]string{{"db.v1"}, {"raw.a", "raw.b"}}},
		{Target: "db.v1", Layers: [][]string{{"raw.a", "raw.b"}}},
		{Target: "raw.a"},
		{Target: "raw.b"},
	}
	if !reflect.DeepEqual(out.Rows, want) {
		t.Errorf("unexpected rows:\n got %+v\nwant %+v", out.Rows, want)
	}
}

func TestExpand_ExistingTargetsNotDuplicated(t *testing.T) {
	in := &lineage.Table{Rows: []lineage.Row{
		{Target: "db.final", Layers: [][]string{{"db.v1"}}},
		{Target: "db.v1", Layers: [][]string{{"raw.a"}}},
	}}

	out := Expand(in)

	var v1Rows int
	for _, row := range out.Rows {
		if row.Target == "db.v1" {
			v1Rows++
		}
	}
	if v1Rows != 1 {
		t.Errorf("expected db.v1 to keep its single row, got %d", v1Rows)
	}
	if len(out.Rows) != 3 {
		t.Errorf("expected 3 rows (two originals plus raw.a), got %d", len(out.Rows))
	}
}

func TestExpand_CaseInsensitiveSeenSet(t *testing.T) {
	in := &lineage.Table{Rows: []lineage.Row{
		{Target: "DB.V1", Layers: [][]string{{"db.v1", "raw.a"}}},
	}}

	out := Expand(in)

	// db.v1 matches the existing DB.V1 row and is not promoted
	want := []string{"DB.V1", "raw.a"}
	var got []string
	for _, row := range out.Rows {
		got = append(got, row.Target)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected targets: %v", got)
	}
}

func TestExpand_CopyStopsAtEmptyLayer(t *testing.T) {
	in := &lineage.Table{Rows: []lineage.Row{
		{Target: "db.final", Layers: [][]string{{"db.mid"}, {}, {"db.beyond"}}},
	}}

	out := Expand(in)

	for _, row := range out.Rows {
		if row.Target == "db.mid" {
			if len(row.Layers) != 0 {
				t.Errorf("expected copy to stop at empty layer, got %v", row.Layers)
			}
		}
	}
	// db.beyond is still encountered by the scan itself
	var found bool
	for _, row := range out.Rows {
		if row.Target == "db.beyond" {
			found = true
		}
	}
	if !found {
		t.Error("expected db.beyond to be promoted")
	}
}

func TestExpand_PromotedRowsOwnTheirLayers(t *testing.T) {
	in := &lineage.Table{Rows: []lineage.Row{
		{Target: "db.final", Layers: [][]string{{"db.v1"}, {"raw.a"}}},
	}}

	out := Expand(in)
	in.Rows[0].Layers[1][0] = "raw.mutated"

	for _, row := range out.Rows {
		if row.Target == "db.v1" {
			if row.Layers[0][0] != "raw.a" {
				t.Errorf("promoted row shares memory with input: %v", row.Layers)
			}
		}
	}
}

func TestExpand_PromotedRowsNotReExpanded(t *testing.T) {
	// db.mid's promoted row carries raw.a, but raw.a is already known by
	// the time the promoted row exists; the scan never revisits it
	in := &lineage.Table{Rows: []lineage.Row{
		{Target: "db.final", Layers: [][]string{{"db.mid"}, {"raw.a"}}},
	}}

	out := Expand(in)

	if len(out.Rows) != 3 {
		t.Errorf("expected exactly 3 rows, got %d: %+v", len(out.Rows), out.Rows)
	}
}

func TestExpand_EmptyTable(t *testing.T) {
	out := Expand(&lineage.Table{})
	if len(out.Rows) != 0 {
		t.Errorf("expected empty table, got %+v", out.Rows)
	}
}

func TestExpand_EncounterOrder(t *testing.T) {
	in := &lineage.Table{Rows: []lineage.Row{
		{Target: "db.one", Layers: [][]string{{"db.x", "db.y"}}},
		{Target: "db.two", Layers: [][]string{{"db.z"}}},
	}}

	out := Expand(in)

	want := []string{"db.one", "db.two", "db.x", "db.y", "db.z"}
	var got []string
	for _, row := range out.Rows {
		got = append(got, row.Target)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected order: %v", got)
	}
}
