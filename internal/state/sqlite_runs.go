package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateScanRun records the start of a corpus scan and returns the new run
// in ScanStatusRunning.
func (s *SQLiteStore) CreateScanRun(corpusDir string) (*ScanRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &ScanRun{
		ID:        generateID(),
		CorpusDir: corpusDir,
		Status:    ScanStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO scan_runs (id, corpus_dir, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.CorpusDir, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan run: %w", err)
	}
	return run, nil
}

// CompleteScanRun stamps the run with its final status and counters.
func (s *SQLiteStore) CompleteScanRun(run *ScanRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	completed := time.Now().UTC()
	run.CompletedAt = &completed

	result, err := s.db.Exec(
		`UPDATE scan_runs
		 SET status = ?, completed_at = ?, files_seen = ?, scripts_indexed = ?, scripts_skipped = ?, error_count = ?, error = ?
		 WHERE id = ?`,
		string(run.Status), run.CompletedAt, run.FilesSeen, run.ScriptsIndexed, run.ScriptsSkipped, run.ErrorCount,
		sql.NullString{String: run.Error, Valid: run.Error != ""}, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete scan run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check scan run update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("scan run not found: %s", run.ID)
	}
	return nil
}

// GetLatestScanRun returns the most recently started run, or nil when the
// catalog has never been scanned.
func (s *SQLiteStore) GetLatestScanRun() (*ScanRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &ScanRun{}
	var status string
	var completedAt sql.NullTime
	var errMsg sql.NullString

	err := s.db.QueryRow(
		`SELECT id, corpus_dir, status, started_at, completed_at, files_seen, scripts_indexed, scripts_skipped, error_count, error
		 FROM scan_runs ORDER BY started_at DESC LIMIT 1`,
	).Scan(&run.ID, &run.CorpusDir, &status, &run.StartedAt, &completedAt,
		&run.FilesSeen, &run.ScriptsIndexed, &run.ScriptsSkipped, &run.ErrorCount, &errMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest scan run: %w", err)
	}

	run.Status = ScanStatus(status)
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return run, nil
}

// AddDiagnostics attaches per-file diagnostics to a run in one transaction.
func (s *SQLiteStore) AddDiagnostics(runID string, diags []Diagnostic) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if len(diags) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO scan_diagnostics (id, run_id, path, type, message) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare diagnostic insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range diags {
		if d.ID == "" {
			d.ID = generateID()
		}
		if _, err := stmt.Exec(d.ID, runID, d.Path, d.Type, d.Message); err != nil {
			return fmt.Errorf("failed to insert diagnostic: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit diagnostics: %w", err)
	}
	return nil
}

// ListDiagnostics returns the diagnostics recorded for a run, ordered by path.
func (s *SQLiteStore) ListDiagnostics(runID string) ([]Diagnostic, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, path, type, message FROM scan_diagnostics WHERE run_id = ? ORDER BY path, id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnostics: %w", err)
	}
	defer rows.Close()

	var diags []Diagnostic
	for rows.Next() {
		var d Diagnostic
		if err := rows.Scan(&d.ID, &d.RunID, &d.Path, &d.Type, &d.Message); err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic row: %w", err)
		}
		diags = append(diags, d)
	}
	return diags, rows.Err()
}
