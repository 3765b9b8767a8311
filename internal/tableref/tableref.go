// Package tableref provides normalization of raw table references into
// qualified database.table identities. Every other package compares and
// stores tables through the normalized form produced here.
package tableref

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidReference is returned when a raw reference is empty or has an
// empty table part (e.g. "db." or ".").
var ErrInvalidReference = errors.New("invalid table reference")

// Options control how raw references are normalized.
type Options struct {
	// DefaultDatabase is applied to references that carry no database
	// prefix. Empty means unqualified references stay partial.
	DefaultDatabase string
	// CaseSensitive preserves the original casing of both parts.
	// The default folds everything to lower case.
	CaseSensitive bool
}

// TableRef is a normalized table identity. Database may be empty, in which
// case the reference is partial and matches any qualified reference sharing
// the same table part.
type TableRef struct {
	Database string
	Table    string
}

// Normalize canonicalizes a raw table reference. The string is split on the
// first dot: the prefix becomes the database, the remainder (which may itself
// contain dots) the table. Without a dot the whole string is the table and
// opts.DefaultDatabase is applied if configured.
func Normalize(raw string, opts Options) (TableRef, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return TableRef{}, fmt.Errorf("%w: empty string", ErrInvalidReference)
	}
	if !opts.CaseSensitive {
		s = strings.ToLower(s)
	}

	var ref TableRef
	if i := strings.Index(s, "."); i >= 0 {
		ref.Database = s[:i]
		ref.Table = s[i+1:]
	} else {
		ref.Table = s
		if opts.DefaultDatabase != "" {
			db := opts.DefaultDatabase
			if !opts.CaseSensitive {
				db = strings.ToLower(db)
			}
			ref.Database = db
		}
	}

	if ref.Table == "" {
		return TableRef{}, fmt.Errorf("%w: %q has no table part", ErrInvalidReference, raw)
	}
	return ref, nil
}

// Parse rebuilds a TableRef from an already-normalized key, as stored in the
// catalog or a lineage cell. No default database or case folding is applied.
func Parse(key string) (TableRef, error) {
	if key == "" {
		return TableRef{}, fmt.Errorf("%w: empty string", ErrInvalidReference)
	}
	var ref TableRef
	if i := strings.Index(key, "."); i >= 0 {
		ref.Database = key[:i]
		ref.Table = key[i+1:]
	} else {
		ref.Table = key
	}
	if ref.Table == "" {
		return TableRef{}, fmt.Errorf("%w: %q has no table part", ErrInvalidReference, key)
	}
	return ref, nil
}

// Qualified reports whether the reference carries a database prefix.
func (r TableRef) Qualified() bool {
	return r.Database != ""
}

// Key returns the canonical string form used for equality and map lookups.
func (r TableRef) Key() string {
	if r.Database == "" {
		return r.Table
	}
	return r.Database + "." + r.Table
}

// String implements fmt.Stringer.
func (r TableRef) String() string {
	return r.Key()
}
