// Package store persists finished batch records.
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Record is one input query record, optionally carrying its "result".
// Unknown fields are preserved as-is.
type Record map[string]any

// ID returns the record id rendered as text.
func (r Record) ID() string {
	switch v := r["id"].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Key returns the text under key, or "" when absent or not a string.
func (r Record) Key(key string) string {
	s, _ := r[key].(string)
	return s
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// QueryKey is the field that identifies a record for lang, e.g. "query_en".
func QueryKey(lang string) string {
	return "query_" + lang
}

// Store is append-only result persistence shared by concurrent workers.
type Store interface {
	// Load returns every persisted record in write order.
	Load(ctx context.Context) ([]Record, error)
	// Append persists one record. Safe for concurrent use.
	Append(ctx context.Context, rec Record) error
	// Rewrite replaces the whole content with records.
	Rewrite(ctx context.Context, records []Record) error
	Close() error
}

// Open picks the backend from the file extension: .db, .sqlite and .sqlite3
// open a SQLite database, anything else a JSON lines file.
func Open(path string) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return OpenSQLite(path)
	default:
		return NewJSONL(path), nil
	}
}
