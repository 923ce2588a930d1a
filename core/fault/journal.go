package fault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gobwas/glob"
	_ "modernc.org/sqlite"

	"github.com/adalundhe/strand/core/storage"
)

var (
	ErrJournalClosed  = errors.New("fault journal closed")
	ErrInvalidPattern = errors.New("invalid task name pattern")
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS faults (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id TEXT NOT NULL,
	task_name TEXT NOT NULL,
	kind TEXT NOT NULL,
	value TEXT,
	stack TEXT,
	thread_id INTEGER NOT NULL DEFAULT 0,
	at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_faults_at ON faults(at);
`

// journalTimeLayout is fixed width so stored timestamps sort as text.
const journalTimeLayout = "2006-01-02T15:04:05.000000000Z"

// Record is a fault as read back from the journal. The panic value is kept
// only in its printed form.
type Record struct {
	ID       int64
	TaskID   string
	TaskName string
	Kind     Kind
	Value    string
	Stack    string
	ThreadID int
	At       time.Time
}

// Filter narrows Journal.List.
type Filter struct {
	// Name is a glob matched against the task name. Empty matches all.
	Name  string
	Kind  Kind
	Since time.Time
	// Limit caps the number of records returned, newest first. Zero means no cap.
	Limit int
}

// Journal persists faults to SQLite so they survive the process. It is a
// Reporter; write errors are logged because a task thread has nowhere to
// return them.
type Journal struct {
	db     *sql.DB
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// OpenJournal opens or creates the journal database at path.
func OpenJournal(path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := storage.EnsureDir(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fault journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(journalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	return &Journal{db: db, path: path, logger: logger}, nil
}

// Path returns the database file path.
func (j *Journal) Path() string {
	return j.path
}

func (j *Journal) Report(f Fault) {
	if err := j.Append(context.Background(), f); err != nil {
		j.logger.Error("failed to journal task fault",
			"task_id", f.TaskID,
			"error", err,
		)
	}
}

// Append writes one fault.
func (j *Journal) Append(ctx context.Context, f Fault) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrJournalClosed
	}

	var value string
	if f.Value != nil {
		value = fmt.Sprint(f.Value)
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO faults (task_id, task_name, kind, value, stack, thread_id, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.TaskID, f.TaskName, string(f.Kind), value, f.Stack, f.ThreadID,
		f.At.UTC().Format(journalTimeLayout),
	)
	return err
}

// List returns journaled faults matching filter, newest first.
func (j *Journal) List(ctx context.Context, filter Filter) ([]Record, error) {
	match, err := compileNameFilter(filter.Name)
	if err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrJournalClosed
	}

	query := `SELECT id, task_id, task_name, kind, value, stack, thread_id, at FROM faults WHERE 1=1`
	var args []any
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if !filter.Since.IsZero() {
		query += ` AND at >= ?`
		args = append(args, filter.Since.UTC().Format(journalTimeLayout))
	}
	query += ` ORDER BY id DESC`

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fault journal: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if !match(rec.TaskName) {
			continue
		}
		records = append(records, rec)
		if filter.Limit > 0 && len(records) >= filter.Limit {
			break
		}
	}
	return records, rows.Err()
}

// Count returns the number of journaled faults.
func (j *Journal) Count(ctx context.Context) (int64, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return 0, ErrJournalClosed
	}
	var n int64
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM faults`).Scan(&n)
	return n, err
}

// Close closes the database. Further writes fail with ErrJournalClosed.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec   Record
		kind  string
		value sql.NullString
		stack sql.NullString
		at    string
	)
	if err := rows.Scan(&rec.ID, &rec.TaskID, &rec.TaskName, &kind, &value, &stack, &rec.ThreadID, &at); err != nil {
		return Record{}, fmt.Errorf("failed to scan fault record: %w", err)
	}
	rec.Kind = Kind(kind)
	rec.Value = value.String
	rec.Stack = stack.String
	if t, err := time.Parse(journalTimeLayout, at); err == nil {
		rec.At = t
	}
	return rec, nil
}

func compileNameFilter(pattern string) (func(string) bool, error) {
	if pattern == "" {
		return func(string) bool { return true }, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
	}
	return g.Match, nil
}
