// Package state persists the scan catalog in SQLite: every scanned script
// with its content hash and normalized table references, plus a log of scan
// runs and their per-file diagnostics. The catalog lets trace and graph
// rebuild the dependency index without rescanning the corpus, and lets a
// rescan skip files whose content is unchanged.
package state

import "time"

// Script is one scanned file as persisted in the catalog. Targets and
// Sources hold normalized table keys in extraction order.
type Script struct {
	ID          string
	Path        string
	Kind        string
	ContentHash string
	Targets     []string
	Sources     []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ScanStatus is the lifecycle state of a scan run.
type ScanStatus string

const (
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
)

// ScanRun records one pass over the corpus.
type ScanRun struct {
	ID             string
	CorpusDir      string
	Status         ScanStatus
	StartedAt      time.Time
	CompletedAt    *time.Time
	FilesSeen      int
	ScriptsIndexed int
	ScriptsSkipped int
	ErrorCount     int
	Error          string
}

// Diagnostic is one per-file problem recorded during a scan.
type Diagnostic struct {
	ID      string
	RunID   string
	Path    string
	Type    string
	Message string
}
