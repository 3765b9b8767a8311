// Package lineage defines the flat row form that trace results are
// exchanged in, plus the CSV codecs for the lineage and script-mapping
// artifacts.
//
// A Row pairs a target table with its upstream layers: Layers[0] holds the
// tables read by the target's direct producers, Layers[1] the tables one
// step further up, and so on. A Table is an ordered collection of rows and
// is what the tracer emits, the expander transforms and the CSV codec
// round-trips.
//
// # CSV layout
//
// The lineage file has a "Target Table" column followed by "Layer 1" through
// "Layer N", where N is the deepest row in the table. A cell holds the
// layer's table names joined by ", "; an empty cell means the row has no
// tables at that depth. Extracted table names match [A-Za-z0-9_.]+, so the
// join is lossless and ReadTable(WriteTable(t)) reproduces t exactly.
//
// # Basic Usage
//
//	tbl := &lineage.Table{Rows: []lineage.Row{
//	    {Target: "db.final", Layers: [][]string{{"db.v1"}, {"raw.a", "raw.b"}}},
//	}}
//
//	var buf bytes.Buffer
//	if err := lineage.WriteTable(&buf, tbl); err != nil {
//	    log.Fatal(err)
//	}
package lineage
