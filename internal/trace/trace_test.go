package trace

import (
	"errors"
	"reflect"
	"testing"

	"github.com/rootline-labs/rootline/internal/extract"
	"github.com/rootline-labs/rootline/internal/index"
	"github.com/rootline-labs/rootline/internal/tableref"
)

type scriptSpec struct {
	path    string
	targets []string
	sources []string
}

func buildIndex(t *testing.T, scripts ...scriptSpec) *index.Index {
	t.Helper()
	b := index.NewBuilder(tableref.Options{})
	for _, s := range scripts {
		_, invalid := b.Add(s.path, extract.KindProcedural, extract.Result{
			Targets: s.targets,
			Sources: s.sources,
		})
		if len(invalid) != 0 {
			t.Fatalf("invalid refs in fixture %s: %v", s.path, invalid)
		}
	}
	return b.Index()
}

func layerKeys(rec *Record) [][]string {
	var layers [][]string
	for _, layer := range rec.Layers {
		names := make([]string, len(layer))
		for i, ref := range layer {
			names[i] = ref.Key()
		}
		layers = append(layers, names)
	}
	return layers
}

func TestTracer_Trace_TwoHopChain(t *testing.T) {
	idx := buildIndex(t,
		scriptSpec{path: "views/v1.sql", targets: []string{"db.v1"}, sources: []string{"raw.a", "raw.b"}},
		scriptSpec{path: "jobs/s2.py", targets: []string{"db.final"}, sources: []string{"db.v1"}},
	)
	tr := &Tracer{Index: idx}

	rec, err := tr.Trace("db.final")
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	want := [][]string{{"db.v1"}, {"raw.a", "raw.b"}}
	if !reflect.DeepEqual(layerKeys(rec), want) {
		t.Errorf("unexpected layers:\n got %v\nwant %v", layerKeys(rec), want)
	}
	if rec.Truncated || rec.Cyclic {
		t.Errorf("unexpected flags: truncated=%v cyclic=%v", rec.Truncated, rec.Cyclic)
	}
	if len(rec.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", rec.Warnings)
	}
}

func TestTracer_Trace_UnknownTableHasZeroLayers(t *testing.T) {
	idx := buildIndex(t,
		scriptSpec{path: "views/v1.sql", targets: []string{"db.v1"}, sources: []string{"raw.a"}},
	)
	tr := &Tracer{Index: idx}

	rec, err := tr.Trace("db.ghost")
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	if len(rec.Layers) != 0 {
		t.Errorf("expected zero layers, got %v", layerKeys(rec))
	}
}

func TestTracer_Trace_InvalidReference(t *testing.T) {
	tr := &Tracer{Index: buildIndex(t)}
	if _, err := tr.Trace("db."); !errors.Is(err, tableref.ErrInvalidReference) {
		t.Errorf("expected ErrInvalidReference, got %v", err)
	}
}

func TestTracer_Trace_DiamondConvergence(t *testing.T) {
	// left and right both read raw.x; it must appear once, and a diamond
	// must not raise the cyclic flag
	idx := buildIndex(t,
		scriptSpec{path: "l.sql", targets: []string{"db.left"}, sources: []string{"raw.x"}},
		scriptSpec{path: "r.sql", targets: []string{"db.right"}, sources: []string{"raw.x"}},
		scriptSpec{path: "f.py", targets: []string{"db.final"}, sources: []string{"db.left", "db.right"}},
	)
	tr := &Tracer{Index: idx}

	rec, err := tr.Trace("db.final")
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	want := [][]string{{"db.left", "db.right"}, {"raw.x"}}
	if !reflect.DeepEqual(layerKeys(rec), want) {
		t.Errorf("unexpected layers:\n got %v\nwant %v", layerKeys(rec), want)
	}
	if rec.Cyclic {
		t.Error("diamond convergence must not set the cyclic flag")
	}
}

func TestTracer_Trace_CycleFlaggedLayersUnchanged(t *testing.T) {
	// db.a and db.b read each other; traversal drops the re-encounter
	// silently but the record carries the cycle
	idx := buildIndex(t,
		scriptSpec{path: "a.py", targets: []string{"db.a"}, sources: []string{"db.b"}},
		scriptSpec{path: "b.py", targets: []string{"db.b"}, sources: []string{"db.a"}},
	)
	tr := &Tracer{Index: idx}

	rec, err := tr.Trace("db.a")
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	if !reflect.DeepEqual(layerKeys(rec), [][]string{{"db.b"}}) {
		t.Errorf("unexpected layers: %v", layerKeys(rec))
	}
	if !rec.Cyclic {
		t.Fatal("expected cyclic flag")
	}
	var found bool
	for _, w := range rec.Warnings {
		if w.Kind == WarnCycleDetected && len(w.Tables) > 0 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected cycle warning, got %v", rec.Warnings)
	}
}

func TestTracer_Trace_SelfFeedingTable(t *testing.T) {
	idx := buildIndex(t,
		scriptSpec{path: "inc.py", targets: []string{"db.rolling"}, sources: []string{"db.rolling", "raw.feed"}},
	)
	tr := &Tracer{Index: idx}

	rec, err := tr.Trace("db.rolling")
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	if !reflect.DeepEqual(layerKeys(rec), [][]string{{"raw.feed"}}) {
		t.Errorf("expected self-read dropped from layers, got %v", layerKeys(rec))
	}
	if !rec.Cyclic {
		t.Error("expected self-feeding table to set the cyclic flag")
	}
}

func TestTracer_Trace_MaxDepthTruncates(t *testing.T) {
	idx := buildIndex(t,
		scriptSpec{path: "c.sql", targets: []string{"db.c"}, sources: []string{"db.b"}},
		scriptSpec{path: "b.sql", targets: []string{"db.b"}, sources: []string{"db.a"}},
		scriptSpec{path: "a.sql", targets: []string{"db.a"}, sources: []string{"raw.base"}},
	)
	tr := &Tracer{Index: idx, MaxDepth: 2}

	rec, err := tr.Trace("db.c")
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	want := [][]string{{"db.b"}, {"db.a"}}
	if !reflect.DeepEqual(layerKeys(rec), want) {
		t.Errorf("unexpected layers:\n got %v\nwant %v", layerKeys(rec), want)
	}
	if !rec.Truncated {
		t.Error("expected truncated flag at depth ceiling")
	}
}

func TestTracer_Trace_DepthCeilingExactFitNotTruncated(t *testing.T) {
	idx := buildIndex(t,
		scriptSpec{path: "b.sql", targets: []string{"db.b"}, sources: []string{"db.a"}},
		scriptSpec{path: "a.sql", targets: []string{"db.a"}, sources: []string{"raw.base"}},
	)
	tr := &Tracer{Index: idx, MaxDepth: 3}

	rec, err := tr.Trace("db.b")
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	if rec.Truncated {
		t.Error("trace that ends before the ceiling must not be truncated")
	}
	if len(rec.Layers) != 2 {
		t.Errorf("expected 2 layers, got %d", len(rec.Layers))
	}
}

func TestTracer_Trace_AmbiguousPartialReference(t *testing.T) {
	idx := buildIndex(t,
		scriptSpec{path: "a.sql", targets: []string{"alpha.orders"}, sources: []string{"raw.a"}},
		scriptSpec{path: "z.sql", targets: []string{"zeta.orders"}, sources: []string{"raw.z"}},
	)
	tr := &Tracer{Index: idx}

	rec, err := tr.Trace("orders")
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	// union of both candidates' sources, in candidate order
	if !reflect.DeepEqual(layerKeys(rec), [][]string{{"raw.a", "raw.z"}}) {
		t.Errorf("unexpected layers: %v", layerKeys(rec))
	}
	if len(rec.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", rec.Warnings)
	}
	w := rec.Warnings[0]
	if w.Kind != WarnAmbiguousMatch || w.Ref != "orders" {
		t.Errorf("unexpected warning: %+v", w)
	}
	if !reflect.DeepEqual(w.Tables, []string{"alpha.orders", "zeta.orders"}) {
		t.Errorf("expected sorted candidates, got %v", w.Tables)
	}
}

func TestTracer_Trace_NormalizesRequest(t *testing.T) {
	idx := buildIndex(t,
		scriptSpec{path: "v.sql", targets: []string{"sales.orders"}, sources: []string{"raw.a"}},
	)
	tr := &Tracer{Index: idx, Options: tableref.Options{DefaultDatabase: "sales"}}

	rec, err := tr.Trace("ORDERS")
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	if rec.Target.Key() != "sales.orders" {
		t.Errorf("expected normalized target sales.orders, got %s", rec.Target.Key())
	}
	if !reflect.DeepEqual(layerKeys(rec), [][]string{{"raw.a"}}) {
		t.Errorf("unexpected layers: %v", layerKeys(rec))
	}
}

func TestTracer_Trace_MultipleProducersUnionSources(t *testing.T) {
	idx := buildIndex(t,
		scriptSpec{path: "one.py", targets: []string{"db.t"}, sources: []string{"raw.a", "raw.shared"}},
		scriptSpec{path: "two.py", targets: []string{"db.t"}, sources: []string{"raw.shared", "raw.b"}},
	)
	tr := &Tracer{Index: idx}

	rec, err := tr.Trace("db.t")
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	want := [][]string{{"raw.a", "raw.shared", "raw.b"}}
	if !reflect.DeepEqual(layerKeys(rec), want) {
		t.Errorf("unexpected layers:\n got %v\nwant %v", layerKeys(rec), want)
	}
}

func TestRecord_Row(t *testing.T) {
	idx := buildIndex(t,
		scriptSpec{path: "v1.sql", targets: []string{"db.v1"}, sources: []string{"raw.a", "raw.b"}},
		scriptSpec{path: "s2.py", targets: []string{"db.final"}, sources: []string{"db.v1"}},
	)
	tr := &Tracer{Index: idx}

	rec, err := tr.Trace("db.final")
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	row := rec.Row()
	if row.Target != "db.final" {
		t.Errorf("unexpected row target: %s", row.Target)
	}
	want := [][]string{{"db.v1"}, {"raw.a", "raw.b"}}
	if !reflect.DeepEqual(row.Layers, want) {
		t.Errorf("unexpected row layers: %v", row.Layers)
	}
}

func TestWarning_String(t *testing.T) {
	amb := Warning{Kind: WarnAmbiguousMatch, Ref: "orders", Tables: []string{"a.orders", "b.orders"}}
	if got := amb.String(); got != `ambiguous reference "orders" matches: a.orders, b.orders` {
		t.Errorf("unexpected ambiguity rendering: %s", got)
	}
	cyc := Warning{Kind: WarnCycleDetected, Tables: []string{"db.a", "db.b", "db.a"}}
	if got := cyc.String(); got != "cycle detected: db.a -> db.b -> db.a" {
		t.Errorf("unexpected cycle rendering: %s", got)
	}
}
