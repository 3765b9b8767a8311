package commands

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rootline-labs/rootline/internal/cli/config"
	"github.com/rootline-labs/rootline/internal/cli/output"
	"github.com/rootline-labs/rootline/internal/cli/testutil"
	"github.com/rootline-labs/rootline/internal/lineage"
	"github.com/rootline-labs/rootline/internal/trace"
)

// traceRecords traces the given references against the three-script fixture
// index.
func traceRecords(t *testing.T, refs ...string) []*trace.Record {
	t.Helper()

	tracer := &trace.Tracer{Index: newTestIndex(t)}
	var records []*trace.Record
	for _, ref := range refs {
		rec, err := tracer.Trace(ref)
		require.NoError(t, err)
		records = append(records, rec)
	}
	return records
}

func TestLineageCells(t *testing.T) {
	records := traceRecords(t, "mart.orders")

	header, rows := lineageCells(records)

	assert.Equal(t, []string{"Target Table", "Layer 1", "Layer 2"}, header)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{
		"mart.orders",
		"staging.orders, staging.customers",
		"raw.orders, raw.customers",
	}, rows[0])
}

func TestLineageCells_PadsShallowRows(t *testing.T) {
	records := traceRecords(t, "mart.orders", "staging.customers")

	header, rows := lineageCells(records)

	assert.Len(t, header, 3)
	require.Len(t, rows, 2)
	// staging.customers only reaches one layer; the second cell stays empty.
	assert.Equal(t, []string{"staging.customers", "raw.customers", ""}, rows[1])
}

func TestWriteLineageFile(t *testing.T) {
	records := traceRecords(t, "mart.orders")
	path := filepath.Join(t.TempDir(), "lineage.csv")

	written, err := writeLineageFile(records, path)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	tbl, err := lineage.ReadTable(f)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "mart.orders", tbl.Rows[0].Target)
	require.Len(t, tbl.Rows[0].Layers, 2)
	assert.Equal(t, []string{"staging.orders", "staging.customers"}, tbl.Rows[0].Layers[0])
	assert.Equal(t, []string{"raw.orders", "raw.customers"}, tbl.Rows[0].Layers[1])
}

func TestWriteLineageFile_Disabled(t *testing.T) {
	records := traceRecords(t, "mart.orders")

	written, err := writeLineageFile(records, "")
	require.NoError(t, err)
	assert.Empty(t, written)
}

func TestRenderTrace_Text(t *testing.T) {
	tr := testutil.NewTestRendererText()
	cmdCtx := renderContext(tr, &config.Config{})
	records := traceRecords(t, "mart.orders", "unknown.table")

	err := renderTrace(cmdCtx, records, "/tmp/lineage.csv")
	require.NoError(t, err)

	out := tr.Output()
	testutil.AssertContains(t, out, "mart.orders")
	testutil.AssertContains(t, out, "staging.orders, staging.customers")
	testutil.AssertContains(t, out, "unknown.table: no producing script in the catalog")
	testutil.AssertContains(t, out, "Lineage written to /tmp/lineage.csv")
	testutil.AssertNoANSI(t, out)
}

func TestRenderTrace_Markdown(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()
	cmdCtx := renderContext(tr, &config.Config{})
	// A bare "orders" matches both mart.orders and staging.orders.
	records := traceRecords(t, "orders")

	err := renderTrace(cmdCtx, records, "lineage.csv")
	require.NoError(t, err)

	out := tr.Output()
	testutil.AssertContains(t, out, "# Lineage")
	testutil.AssertContains(t, out, "|")
	testutil.AssertContains(t, out, "## Notes")
	testutil.AssertContains(t, out, `ambiguous reference "orders" matches: mart.orders, staging.orders`)
	testutil.AssertContains(t, out, "- **Written to:** lineage.csv")
	testutil.AssertValidMarkdown(t, out)
}

func TestRenderTrace_JSON(t *testing.T) {
	tr := testutil.NewTestRendererJSON()
	cmdCtx := renderContext(tr, &config.Config{})
	records := traceRecords(t, "mart.orders", "unknown.table")

	err := renderTrace(cmdCtx, records, "lineage.csv")
	require.NoError(t, err)

	var got output.TraceOutput
	require.NoError(t, json.Unmarshal([]byte(tr.Output()), &got))

	require.Len(t, got.Records, 2)
	assert.Equal(t, "mart.orders", got.Records[0].Target)
	require.Len(t, got.Records[0].Layers, 2)
	assert.Equal(t, []string{"staging.orders", "staging.customers"}, got.Records[0].Layers[0])

	// Unknown tables keep an empty layers array rather than null.
	assert.Equal(t, "unknown.table", got.Records[1].Target)
	assert.NotNil(t, got.Records[1].Layers)
	assert.Empty(t, got.Records[1].Layers)
	testutil.AssertContains(t, tr.Output(), `"layers": []`)
}

func TestTraceRecordText(t *testing.T) {
	tr := testutil.NewTestRendererText()
	records := traceRecords(t, "mart.orders")

	traceRecordText(tr.Renderer, records[0])

	out := tr.Output()
	testutil.AssertContains(t, out, "mart.orders")
	testutil.AssertContains(t, out, "Layer 1: staging.orders, staging.customers")
	testutil.AssertContains(t, out, "Layer 2: raw.orders, raw.customers")
}

func TestRunTrace_RequiresArgs(t *testing.T) {
	cmd := NewTraceCommand()
	cmd.SetArgs([]string{})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least one table name")
}
