package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteJournal stores entries in a SQLite table
type SQLiteJournal struct {
	db     *sql.DB
	config SQLiteConfig
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path        string
	EnableWAL   bool
	BusyTimeout int // Milliseconds to wait on locked database
}

// NewSQLiteJournal opens or creates the journal database
func NewSQLiteJournal(config SQLiteConfig) (*SQLiteJournal, error) {
	if dir := filepath.Dir(config.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	j := &SQLiteJournal{db: db, config: config}
	if err := j.initialize(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return j, nil
}

func (j *SQLiteJournal) initialize(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", j.config.BusyTimeout),
	}
	if j.config.EnableWAL {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, pragma := range pragmas {
		if _, err := j.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS mutations (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			action TEXT NOT NULL,
			source TEXT NOT NULL,
			subject TEXT,
			class TEXT,
			question TEXT,
			details TEXT, -- JSON stored as TEXT
			created_at TEXT NOT NULL -- RFC 3339
		);

		CREATE INDEX IF NOT EXISTS idx_mutations_subject ON mutations(subject);
	`
	_, err := j.db.ExecContext(ctx, schema)
	return err
}

// Append inserts e
func (j *SQLiteJournal) Append(ctx context.Context, e Entry) (Entry, error) {
	e, err := prepare(e)
	if err != nil {
		return e, err
	}

	var details []byte
	if e.Details != nil {
		if details, err = json.Marshal(e.Details); err != nil {
			return e, fmt.Errorf("failed to marshal details: %w", err)
		}
	}

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO mutations (id, action, source, subject, class, question, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Action, e.Source, e.Subject, e.Class, e.Question, string(details), e.At.Format(time.RFC3339Nano),
	)
	if err != nil {
		return e, fmt.Errorf("failed to insert entry: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first
func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, action, source, subject, class, question, details, created_at
		FROM mutations ORDER BY seq DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e                                 Entry
			subject, class, question, details sql.NullString
			at                                string
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.Source, &subject, &class, &question, &details, &at); err != nil {
			return nil, err
		}
		e.Subject, e.Class, e.Question = subject.String, class.String, question.String
		if details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &e.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal details: %w", err)
			}
		}
		if e.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
