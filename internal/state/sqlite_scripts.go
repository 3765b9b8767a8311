package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertScript inserts a script or updates the existing row with the same
// path, replacing its stored references. The original ID and creation time
// survive an update.
func (s *SQLiteStore) UpsertScript(script *Script) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	now := time.Now().UTC()

	existing, err := s.GetScriptByPath(script.Path)
	if err != nil {
		return fmt.Errorf("failed to check existing script: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if existing != nil {
		script.ID = existing.ID
		script.CreatedAt = existing.CreatedAt
		script.UpdatedAt = now

		if _, err := tx.Exec(
			`UPDATE scripts SET kind = ?, content_hash = ?, updated_at = ? WHERE id = ?`,
			script.Kind, script.ContentHash, script.UpdatedAt, script.ID,
		); err != nil {
			return fmt.Errorf("failed to update script: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM script_targets WHERE script_id = ?`, script.ID); err != nil {
			return fmt.Errorf("failed to clear script targets: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM script_sources WHERE script_id = ?`, script.ID); err != nil {
			return fmt.Errorf("failed to clear script sources: %w", err)
		}
	} else {
		if script.ID == "" {
			script.ID = generateID()
		}
		script.CreatedAt = now
		script.UpdatedAt = now

		if _, err := tx.Exec(
			`INSERT INTO scripts (id, path, kind, content_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			script.ID, script.Path, script.Kind, script.ContentHash, script.CreatedAt, script.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert script: %w", err)
		}
	}

	if err := insertRefs(tx, "script_targets", script.ID, script.Targets); err != nil {
		return err
	}
	if err := insertRefs(tx, "script_sources", script.ID, script.Sources); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit script: %w", err)
	}
	return nil
}

func insertRefs(tx *sql.Tx, table, scriptID string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(fmt.Sprintf(`INSERT INTO %s (script_id, position, table_key) VALUES (?, ?, ?)`, table))
	if err != nil {
		return fmt.Errorf("failed to prepare %s insert: %w", table, err)
	}
	defer stmt.Close()

	for i, key := range keys {
		if _, err := stmt.Exec(scriptID, i, key); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	return nil
}

// GetScriptByPath retrieves a script with its references, or nil when the
// path is not cataloged.
func (s *SQLiteStore) GetScriptByPath(path string) (*Script, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	script := &Script{}
	err := s.db.QueryRow(
		`SELECT id, path, kind, content_hash, created_at, updated_at FROM scripts WHERE path = ?`,
		path,
	).Scan(&script.ID, &script.Path, &script.Kind, &script.ContentHash, &script.CreatedAt, &script.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get script: %w", err)
	}

	if script.Targets, err = s.scriptRefs("script_targets", script.ID); err != nil {
		return nil, err
	}
	if script.Sources, err = s.scriptRefs("script_sources", script.ID); err != nil {
		return nil, err
	}
	return script, nil
}

func (s *SQLiteStore) scriptRefs(table, scriptID string) ([]string, error) {
	rows, err := s.db.Query(
		fmt.Sprintf(`SELECT table_key FROM %s WHERE script_id = ? ORDER BY position`, table),
		scriptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// ListScripts returns every cataloged script ordered by path, references
// attached in position order. References are loaded in two bulk queries to
// avoid per-script round trips.
func (s *SQLiteStore) ListScripts() ([]*Script, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(`SELECT id, path, kind, content_hash, created_at, updated_at FROM scripts ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}
	defer rows.Close()

	var scripts []*Script
	for rows.Next() {
		script := &Script{}
		if err := rows.Scan(&script.ID, &script.Path, &script.Kind, &script.ContentHash, &script.CreatedAt, &script.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan script row: %w", err)
		}
		scripts = append(scripts, script)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scripts: %w", err)
	}

	targets, err := s.allRefs("script_targets")
	if err != nil {
		return nil, err
	}
	sources, err := s.allRefs("script_sources")
	if err != nil {
		return nil, err
	}
	for _, script := range scripts {
		script.Targets = targets[script.ID]
		script.Sources = sources[script.ID]
	}
	return scripts, nil
}

func (s *SQLiteStore) allRefs(table string) (map[string][]string, error) {
	rows, err := s.db.Query(fmt.Sprintf(`SELECT script_id, table_key FROM %s ORDER BY script_id, position`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	refs := make(map[string][]string)
	for rows.Next() {
		var scriptID, key string
		if err := rows.Scan(&scriptID, &key); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		refs[scriptID] = append(refs[scriptID], key)
	}
	return refs, rows.Err()
}

// ContentHashes returns the stored content hash for every cataloged path,
// the input to the incremental rescan decision.
func (s *SQLiteStore) ContentHashes() (map[string]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(`SELECT path, content_hash FROM scripts`)
	if err != nil {
		return nil, fmt.Errorf("failed to query content hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan content hash row: %w", err)
		}
		hashes[path] = hash
	}
	return hashes, rows.Err()
}

// DeleteScript removes a script and, through the schema's cascade, its
// references. Deleting an unknown path is a no-op.
func (s *SQLiteStore) DeleteScript(path string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if _, err := s.db.Exec(`DELETE FROM scripts WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete script: %w", err)
	}
	return nil
}
