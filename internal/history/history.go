// Package history keeps an in-memory record of completed inspections for
// the lifetime of the process. Nothing here survives a restart.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Atiyakh/dyright/internal/dispatch"
)

// Record is one completed inspection as stored.
type Record struct {
	InspectionID string    `json:"inspectionId"`
	TypeName     string    `json:"type"`
	Success      bool      `json:"success"`
	ErrorKind    string    `json:"errorKind,omitempty"`
	Error        string    `json:"error,omitempty"`
	ElapsedMS    float64   `json:"executionTimeMs"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store wraps an in-memory SQLite database holding completed inspections,
// pruned to a fixed retention count.
type Store struct {
	db   *sql.DB
	keep int
}

// Open creates the in-memory database and bootstraps its schema. keep
// bounds how many records are retained.
func Open(ctx context.Context, keep int) (*Store, error) {
	if keep < 1 {
		return nil, fmt.Errorf("history retention must be at least 1 (got %d)", keep)
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A memory database exists per connection; pin the pool to one.
	db.SetMaxOpenConns(1)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, `
CREATE TABLE IF NOT EXISTS inspections (
  rowid_ord     INTEGER PRIMARY KEY AUTOINCREMENT,
  inspection_id TEXT NOT NULL,
  type_name     TEXT NOT NULL,
  success       INTEGER NOT NULL,
  error_kind    TEXT,
  error         TEXT,
  elapsed_ms    REAL,
  created_at    TEXT NOT NULL
);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap inspections table: %w", err)
	}

	return &Store{db: db, keep: keep}, nil
}

// Record stores the outcome of one inspection request and prunes the
// oldest rows beyond the retention count.
func (s *Store) Record(ctx context.Context, typeName string, resp dispatch.Response) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	elapsedMS := float64(resp.Elapsed) / float64(time.Millisecond)

	_, err := s.db.ExecContext(ctx, `
INSERT INTO inspections(inspection_id, type_name, success, error_kind, error, elapsed_ms, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?);
`, resp.ID, typeName, boolToInt(resp.Success), string(resp.Kind), resp.Error, elapsedMS, now)
	if err != nil {
		return fmt.Errorf("record inspection: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
DELETE FROM inspections
WHERE rowid_ord <= (SELECT MAX(rowid_ord) FROM inspections) - ?;
`, s.keep)
	if err != nil {
		return fmt.Errorf("prune inspections: %w", err)
	}
	return nil
}

// Recent returns up to n records, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Record, error) {
	if n < 1 {
		n = 1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT inspection_id, type_name, success, error_kind, error, elapsed_ms, created_at
FROM inspections
ORDER BY rowid_ord DESC
LIMIT ?;
`, n)
	if err != nil {
		return nil, fmt.Errorf("query inspections: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r         Record
			success   int
			kind      sql.NullString
			errMsg    sql.NullString
			elapsedMS sql.NullFloat64
			createdAt string
		)
		if err := rows.Scan(&r.InspectionID, &r.TypeName, &success, &kind, &errMsg, &elapsedMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan inspection: %w", err)
		}
		r.Success = success != 0
		if kind.Valid {
			r.ErrorKind = kind.String
		}
		if errMsg.Valid {
			r.Error = errMsg.String
		}
		if elapsedMS.Valid {
			r.ElapsedMS = elapsedMS.Float64
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
