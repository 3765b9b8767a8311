// Package extract pulls raw table references out of script text. Each script
// kind has its own extractor behind a shared contract; results carry the
// references exactly as written, normalization is the index builder's job.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrNoTargetFound is returned when a script contains no recognizable
// statement or marker that writes a table.
var ErrNoTargetFound = errors.New("no target table found")

// Kind classifies a script by the extraction strategy it needs.
type Kind int

const (
	// KindSQLView is a SQL file whose target is a CREATE VIEW statement.
	KindSQLView Kind = iota
	// KindProcedural is a data-processing script (PySpark, Scala) whose
	// targets are write-marker calls or header comment declarations.
	KindProcedural
)

// String returns the stable name persisted in the catalog.
func (k Kind) String() string {
	switch k {
	case KindSQLView:
		return "sql_view"
	case KindProcedural:
		return "procedural"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of String, used when loading catalog rows.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "sql_view":
		return KindSQLView, nil
	case "procedural":
		return KindProcedural, nil
	default:
		return 0, fmt.Errorf("unknown script kind %q", s)
	}
}

// Result holds the raw references found in one script, in order of
// appearance. Duplicates are possible; de-duplication happens after
// normalization.
type Result struct {
	Targets []string
	Sources []string
}

// Extractor scans script text for table references. Implementations are
// pure: they never execute scripts and degrade to an empty Result on
// unrecognized input.
type Extractor interface {
	Extract(text string) (Result, error)
}

// ForKind returns the extractor for a script kind.
func ForKind(k Kind) Extractor {
	if k == KindProcedural {
		return ProceduralExtractor{}
	}
	return SQLViewExtractor{}
}

// DetectKind classifies a script by file extension, falling back to a
// content sniff for unrecognized extensions. ok is false when neither the
// extension nor the content gives a usable signal.
func DetectKind(path, content string) (Kind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sql":
		return KindSQLView, true
	case ".py", ".scala":
		return KindProcedural, true
	}
	return sniffKind(content)
}

// sniffKind scores kind-specific markers in the content. Ties with at least
// one hit resolve to the SQL view shape; zero hits on both sides means the
// file is unclassifiable.
func sniffKind(content string) (Kind, bool) {
	lower := strings.ToLower(content)

	proc := 0
	for _, marker := range []string{".insertinto(", ".saveastable(", "spark.table(", ".option(", "import pyspark", "sparksession"} {
		proc += strings.Count(lower, marker)
	}

	sql := 0
	for _, marker := range []string{"create view", "create or replace view", "select ", "group by", "union all"} {
		sql += strings.Count(lower, marker)
	}

	if proc == 0 && sql == 0 {
		return 0, false
	}
	if proc > sql {
		return KindProcedural, true
	}
	return KindSQLView, true
}
