package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    action        TEXT NOT NULL,
    from_version  TEXT NOT NULL DEFAULT '',
    to_version    TEXT NOT NULL,
    started_at    TEXT NOT NULL,
    finished_at   TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL DEFAULT 'running',
    detail        TEXT NOT NULL DEFAULT ''
);
`

// Run is one journal row: a single pipeline run from start to its
// terminal state.
type Run struct {
	ID          int64
	Action      string
	FromVersion string
	ToVersion   string
	StartedAt   time.Time
	FinishedAt  time.Time
	Status      string
	Detail      string
}

// Journal records pipeline runs in sqlite. The version marker stays
// authoritative for what is installed; the journal exists for status
// reporting and for noticing interrupted runs at startup.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

func OpenJournal(dbPath string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	j := &Journal{db: db}

	// Runs still marked running belong to a process that died. Partial
	// extraction is deliberately left on disk, so recovery is only a
	// bookkeeping correction.
	if _, err := db.Exec(
		`UPDATE runs SET status = 'aborted', finished_at = ? WHERE status = 'running'`,
		time.Now().Format(time.RFC3339)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to recover journal: %w", err)
	}

	return j, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) Start(action, fromVersion, toVersion string) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	res, err := j.db.Exec(
		`INSERT INTO runs (action, from_version, to_version, started_at) VALUES (?, ?, ?, ?)`,
		action, fromVersion, toVersion, time.Now().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (j *Journal) Finish(id int64, status, detail string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`UPDATE runs SET status = ?, detail = ?, finished_at = ? WHERE id = ?`,
		status, detail, time.Now().Format(time.RFC3339), id)
	return err
}

// Recent returns the latest n runs, newest first.
func (j *Journal) Recent(n int) ([]Run, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, action, from_version, to_version, started_at, finished_at, status, detail
		 FROM runs ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Action, &r.FromVersion, &r.ToVersion,
			&started, &finished, &r.Status, &r.Detail); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		if finished != "" {
			r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
