package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
)

// SQLite keeps records in a single table, one JSON document per row.
type SQLite struct {
	db    *sql.DB
	owned bool
}

// OpenSQLite opens (or creates) the database file at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.New(errors.CodeStorage, "open sqlite", err).WithContext("path", path)
	}
	// A single connection serialises writers, like the JSONL lock.
	db.SetMaxOpenConns(1)
	s, err := NewSQLite(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewSQLite wraps an existing handle and ensures the schema.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	if db == nil {
		return nil, errors.New(errors.CodeInvalidInput, "db is nil", nil)
	}
	if err := ensureResultSchema(db); err != nil {
		return nil, errors.New(errors.CodeStorage, "create results schema", err)
	}
	return &SQLite{db: db}, nil
}

// Load returns records in insertion order.
func (s *SQLite) Load(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM results ORDER BY id ASC`)
	if err != nil {
		return nil, errors.New(errors.CodeStorage, "query results", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, errors.New(errors.CodeStorage, "scan result", err)
		}
		var rec Record
		if err := json.Unmarshal([]byte(body), &rec); err != nil || rec == nil {
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.CodeStorage, "read results", err)
	}
	return records, nil
}

// Append inserts one row.
func (s *SQLite) Append(ctx context.Context, rec Record) error {
	return insertRecord(ctx, s.db, rec)
}

// Rewrite replaces every row inside one transaction.
func (s *SQLite) Rewrite(ctx context.Context, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.New(errors.CodeStorage, "begin rewrite", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM results`); err != nil {
		_ = tx.Rollback()
		return errors.New(errors.CodeStorage, "clear results", err)
	}
	for _, rec := range records {
		if err := insertRecord(ctx, tx, rec); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.New(errors.CodeStorage, "commit rewrite", err)
	}
	return nil
}

// Close closes the database when this store opened it.
func (s *SQLite) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRecord(ctx context.Context, db execer, rec Record) error {
	body, err := encodeLine(rec)
	if err != nil {
		return err
	}
	var summary struct {
		Result struct {
			Response string `json:"response"`
		} `json:"result"`
	}
	_ = json.Unmarshal(body, &summary)
	_, err = db.ExecContext(ctx, `
		INSERT INTO results (record_id, response, body, created_at)
		VALUES (?, ?, ?, ?)
	`, rec.ID(), summary.Result.Response, string(body[:len(body)-1]), time.Now().UTC())
	if err != nil {
		return errors.New(errors.CodeStorage, "insert result", err).WithContext("record_id", rec.ID())
	}
	return nil
}

func ensureResultSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id TEXT NOT NULL,
			response TEXT,
			body TEXT NOT NULL,
			created_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_results_record ON results(record_id);
	`)
	return err
}
