// Package index builds the script-to-target dependency index the tracer
// walks. Raw extraction results are normalized here; afterwards the index is
// read-only and every lookup works on canonical keys.
package index

import (
	"sort"

	"github.com/rootline-labs/rootline/internal/extract"
	"github.com/rootline-labs/rootline/internal/lineage"
	"github.com/rootline-labs/rootline/internal/tableref"
)

// ScriptRecord is one scanned script with its normalized references. Records
// are built once and treated as immutable; a multi-target script is indexed
// under every target key through the same record pointer.
type ScriptRecord struct {
	Path    string
	Kind    extract.Kind
	Targets []tableref.TableRef
	Sources []tableref.TableRef
}

// Index maps target keys to the records that produce them. It is not safe
// for concurrent mutation; the scan serializes writes and tracing only reads.
type Index struct {
	byTarget map[string][]*ScriptRecord
	// table part -> sorted qualified target keys, for partial lookups
	tablesByName map[string][]string
	records      []*ScriptRecord
	skipped      []string
}

// Builder accumulates scanned scripts into an Index, normalizing references
// with the configured options.
type Builder struct {
	opts tableref.Options
	idx  *Index
}

// NewBuilder returns a Builder whose records are normalized with opts.
func NewBuilder(opts tableref.Options) *Builder {
	return &Builder{
		opts: opts,
		idx: &Index{
			byTarget:     make(map[string][]*ScriptRecord),
			tablesByName: make(map[string][]string),
		},
	}
}

// Add normalizes an extraction result and indexes the resulting record.
// Targets and sources are de-duplicated preserving first-seen order. Raw
// references that fail normalization are returned in invalid and otherwise
// ignored. indexed is false when no valid target remains; the script is then
// recorded as skipped.
func (b *Builder) Add(path string, kind extract.Kind, res extract.Result) (indexed bool, invalid []string) {
	rec := &ScriptRecord{Path: path, Kind: kind}

	seen := make(map[string]struct{})
	for _, raw := range res.Targets {
		ref, err := tableref.Normalize(raw, b.opts)
		if err != nil {
			invalid = append(invalid, raw)
			continue
		}
		if _, ok := seen[ref.Key()]; ok {
			continue
		}
		seen[ref.Key()] = struct{}{}
		rec.Targets = append(rec.Targets, ref)
	}

	seen = make(map[string]struct{})
	for _, raw := range res.Sources {
		ref, err := tableref.Normalize(raw, b.opts)
		if err != nil {
			invalid = append(invalid, raw)
			continue
		}
		if _, ok := seen[ref.Key()]; ok {
			continue
		}
		seen[ref.Key()] = struct{}{}
		rec.Sources = append(rec.Sources, ref)
	}

	return b.AddRecord(rec), invalid
}

// AddRecord indexes an already-normalized record, as when reloading the
// catalog. Zero-target records are counted as skipped, not indexed.
func (b *Builder) AddRecord(rec *ScriptRecord) bool {
	if len(rec.Targets) == 0 {
		b.idx.skipped = append(b.idx.skipped, rec.Path)
		return false
	}
	b.idx.records = append(b.idx.records, rec)
	for _, target := range rec.Targets {
		b.idx.insert(target, rec)
	}
	return true
}

// Index returns the built index. The builder must not be used afterwards.
func (b *Builder) Index() *Index {
	return b.idx
}

func (x *Index) insert(target tableref.TableRef, rec *ScriptRecord) {
	key := target.Key()
	existing := x.byTarget[key]
	for _, r := range existing {
		if r.Path == rec.Path {
			return
		}
	}
	x.byTarget[key] = append(existing, rec)

	if !target.Qualified() {
		return
	}
	keys := x.tablesByName[target.Table]
	pos := sort.SearchStrings(keys, key)
	if pos < len(keys) && keys[pos] == key {
		return
	}
	keys = append(keys, "")
	copy(keys[pos+1:], keys[pos:])
	keys[pos] = key
	x.tablesByName[target.Table] = keys
}

// Lookup finds the records producing ref. Qualified references match their
// key exactly. Partial references try an exact key match first, then collect
// every qualified target key sharing the table part: candidates reports
// those keys (sorted), and the returned records are the union over all of
// them in candidate order. More than one candidate means the reference was
// ambiguous; resolution is the caller's to surface, never silent.
func (x *Index) Lookup(ref tableref.TableRef) (records []*ScriptRecord, candidates []string) {
	if recs, ok := x.byTarget[ref.Key()]; ok {
		return recs, nil
	}
	if ref.Qualified() {
		return nil, nil
	}

	candidates = x.tablesByName[ref.Table]
	if len(candidates) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{})
	for _, key := range candidates {
		for _, rec := range x.byTarget[key] {
			if _, ok := seen[rec.Path]; ok {
				continue
			}
			seen[rec.Path] = struct{}{}
			records = append(records, rec)
		}
	}
	return records, candidates
}

// Records returns every indexed record in insertion order.
func (x *Index) Records() []*ScriptRecord {
	return x.records
}

// Tables returns the sorted distinct target keys.
func (x *Index) Tables() []string {
	keys := make([]string, 0, len(x.byTarget))
	for key := range x.byTarget {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Skipped returns the paths of scripts that produced no indexable target.
func (x *Index) Skipped() []string {
	return x.skipped
}

// ScriptCount returns the number of indexed records.
func (x *Index) ScriptCount() int {
	return len(x.records)
}

// TargetCount returns the number of distinct target keys.
func (x *Index) TargetCount() int {
	return len(x.byTarget)
}

// MappingRows returns one row per (script, target) pair, sorted by script
// then target, for the audit artifact.
func (x *Index) MappingRows() []lineage.MappingRow {
	var rows []lineage.MappingRow
	for _, rec := range x.records {
		for _, target := range rec.Targets {
			rows = append(rows, lineage.MappingRow{Script: rec.Path, Target: target.Key()})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Script != rows[j].Script {
			return rows[i].Script < rows[j].Script
		}
		return rows[i].Target < rows[j].Target
	})
	return rows
}
