// Package store records scan results in a SQLite database so that
// instruction profiles can be compared across runs.
package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"bcfreq/internal/freq"
)

const schema = `
CREATE TABLE IF NOT EXISTS scans (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	file       TEXT NOT NULL,
	digest     TEXT NOT NULL,
	scanned_at INTEGER NOT NULL,
	total      INTEGER NOT NULL,
	distinct_n INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS counts (
	scan_id  INTEGER NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
	rank     INTEGER NOT NULL,
	encoding TEXT NOT NULL,
	text     TEXT NOT NULL,
	count    INTEGER NOT NULL,
	PRIMARY KEY (scan_id, rank)
);
CREATE INDEX IF NOT EXISTS scans_digest ON scans(digest);
`

// Scan is a recorded scan.
type Scan struct {
	ID        int64
	File      string
	Digest    string
	ScannedAt time.Time
	Total     int
	Distinct  int
}

// Count is one recorded report entry.
type Count struct {
	Encoding string
	Text     string
	Count    int
}

// Store is a scan history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps ":memory:" databases intact across queries.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a report for the file with the given content digest and
// returns the new scan's ID.
func (s *Store) Record(ctx context.Context, file, digest string, at time.Time, r *freq.Report) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO scans (file, digest, scanned_at, total, distinct_n) VALUES (?, ?, ?, ?, ?)`,
		file, digest, at.UnixNano(), r.Total, r.Distinct())
	if err != nil {
		return 0, fmt.Errorf("insert scan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("scan id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO counts (scan_id, rank, encoding, text, count) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare counts: %w", err)
	}
	defer stmt.Close()
	for i, e := range r.Entries {
		if _, err := stmt.ExecContext(ctx, id, i, hex.EncodeToString(e.Inst.Encoding()), e.Text, e.Count); err != nil {
			return 0, fmt.Errorf("insert count %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// Scans lists recorded scans, newest first. A non-empty digest restricts the
// list to scans of identical files.
func (s *Store) Scans(ctx context.Context, digest string, limit int) ([]Scan, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file, digest, scanned_at, total, distinct_n FROM scans
		 WHERE ? = '' OR digest = ?
		 ORDER BY scanned_at DESC, id DESC LIMIT ?`,
		digest, digest, limit)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer rows.Close()

	var out []Scan
	for rows.Next() {
		var sc Scan
		var at int64
		if err := rows.Scan(&sc.ID, &sc.File, &sc.Digest, &at, &sc.Total, &sc.Distinct); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		sc.ScannedAt = time.Unix(0, at)
		out = append(out, sc)
	}
	return out, rows.Err()
}

// Counts returns the report entries of a recorded scan in report order.
func (s *Store) Counts(ctx context.Context, scanID int64) ([]Count, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT encoding, text, count FROM counts WHERE scan_id = ? ORDER BY rank`, scanID)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	var out []Count
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Encoding, &c.Text, &c.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
