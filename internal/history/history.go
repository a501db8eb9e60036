package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/dshills/copyedit/internal/pipeline"
)

// ErrNotFound is returned by Get when no entry has the requested ID.
var ErrNotFound = errors.New("history entry not found")

// Entry is one recorded edit.
type Entry struct {
	ID        int64     `json:"id" yaml:"id"`
	Source    string    `json:"source" yaml:"source"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	Title     string    `json:"title" yaml:"title"`
	Summary   string    `json:"summary" yaml:"summary"`
	Reasons   []string  `json:"reasons" yaml:"reasons"`
	Fired     []string  `json:"fired" yaml:"fired"`
	Added     int       `json:"added" yaml:"added"`
	Removed   int       `json:"removed" yaml:"removed"`
	Before    string    `json:"before" yaml:"before"`
	After     string    `json:"after" yaml:"after"`
}

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the platform-appropriate history database path.
func DefaultPath() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "copyedit", "history.db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "copyedit", "history.db"), nil
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "copyedit", "history.db"), nil
		}
		return filepath.Join(home, "AppData", "Local", "copyedit", "history.db"), nil
	default:
		return filepath.Join(home, ".local", "share", "copyedit", "history.db"), nil
	}
}

// Open opens or creates the history database at path. An empty path means
// DefaultPath.
func Open(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS edits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			created_at TEXT NOT NULL,
			title TEXT,
			summary TEXT,
			reasons TEXT,
			fired TEXT,
			added INTEGER,
			removed INTEGER,
			before_body TEXT,
			after_body TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_edits_source ON edits(source)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores the result of editing source and returns the new entry ID.
func (s *Store) Record(ctx context.Context, source string, res *pipeline.Result) (int64, error) {
	reasons, err := json.Marshal(nonNil(res.Reasons))
	if err != nil {
		return 0, fmt.Errorf("encoding reasons: %w", err)
	}
	fired, err := json.Marshal(nonNil(res.Fired))
	if err != nil {
		return 0, fmt.Errorf("encoding fired rules: %w", err)
	}
	r, err := s.db.ExecContext(ctx,
		`INSERT INTO edits (source, created_at, title, summary, reasons, fired, added, removed, before_body, after_body)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		source, time.Now().UTC().Format(time.RFC3339Nano),
		res.Document.Title, res.Document.Summary,
		string(reasons), string(fired),
		res.Stat.Added, res.Stat.Removed,
		res.Original.Body, res.Document.Body,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting history entry: %w", err)
	}
	return r.LastInsertId()
}

const selectColumns = `SELECT id, source, created_at, title, summary, reasons, fired, added, removed, before_body, after_body FROM edits`

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := selectColumns + ` ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the entry with the given ID.
func (s *Store) Get(ctx context.Context, id int64) (Entry, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var (
		e              Entry
		created        string
		title, summary sql.NullString
		reasons, fired sql.NullString
		before, after  sql.NullString
		added, removed sql.NullInt64
	)
	if err := sc.Scan(&e.ID, &e.Source, &created, &title, &summary, &reasons, &fired,
		&added, &removed, &before, &after); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scanning history entry: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp: %w", err)
	}
	e.CreatedAt = t
	e.Title, e.Summary = title.String, summary.String
	e.Before, e.After = before.String, after.String
	e.Added, e.Removed = int(added.Int64), int(removed.Int64)
	if reasons.Valid {
		if err := json.Unmarshal([]byte(reasons.String), &e.Reasons); err != nil {
			return Entry{}, fmt.Errorf("decoding reasons: %w", err)
		}
	}
	if fired.Valid {
		if err := json.Unmarshal([]byte(fired.String), &e.Fired); err != nil {
			return Entry{}, fmt.Errorf("decoding fired rules: %w", err)
		}
	}
	return e, nil
}

// Export writes every entry, oldest first, to w as "yaml" or "json".
func (s *Store) Export(ctx context.Context, w io.Writer, format string) error {
	entries, err := s.List(ctx, 0)
	if err != nil {
		return err
	}
	for l, r := 0, len(entries)-1; l < r; l, r = l+1, r-1 {
		entries[l], entries[r] = entries[r], entries[l]
	}
	if entries == nil {
		entries = []Entry{}
	}

	switch format {
	case "yaml", "":
		data, err := yaml.Marshal(entries)
		if err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		_, err = w.Write(data)
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown export format: %s", format)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
