package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/jathurchan/namereg/ledger/migrations"
	"github.com/jathurchan/namereg/logger"
	"github.com/jathurchan/namereg/types"
)

// SQLiteJournal persists entries in a SQLite database. Each row carries the
// encoded entry plus the columns needed to inspect the journal with SQL.
type SQLiteJournal struct {
	mu        sync.Mutex
	db        *sql.DB
	lastIndex types.Index
	closed    bool
	logger    logger.Logger
}

// OpenSQLiteJournal opens the database at path and applies embedded migrations.
func OpenSQLiteJournal(ctx context.Context, path string, log logger.Logger) (*SQLiteJournal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", ErrJournalIO)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite db: %v", ErrJournalIO, err)
	}
	// One writer; the ledger serializes appends anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping sqlite db: %v", ErrJournalIO, err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: run migrations: %v", ErrJournalIO, err)
	}

	var last sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(idx) FROM journal_entries`).Scan(&last); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: read last index: %v", ErrJournalIO, err)
	}

	j := &SQLiteJournal{
		db:        db,
		lastIndex: types.Index(last.Int64),
		logger:    log.WithComponent("journal"),
	}
	j.logger.Infow("SQLite journal opened", "path", path, "lastIndex", j.lastIndex)
	return j, nil
}

func (j *SQLiteJournal) Append(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	if err := checkContiguous(j.lastIndex, entry.Index); err != nil {
		return err
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO journal_entries (idx, tx_id, recorded_at, caller, payload) VALUES (?, ?, ?, ?, ?)`,
		int64(entry.Index),
		entry.ID,
		entry.Timestamp.UTC().UnixNano(),
		string(entry.Caller),
		MarshalEntry(entry),
	)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("%w: entry %d already present: %v", ErrNonContiguousEntry, entry.Index, err)
		}
		return fmt.Errorf("%w: insert entry %d: %v", ErrJournalIO, entry.Index, err)
	}
	j.lastIndex = entry.Index
	return nil
}

func (j *SQLiteJournal) ForEach(ctx context.Context, fn func(Entry) error) error {
	rows, err := j.db.QueryContext(ctx, `SELECT payload FROM journal_entries ORDER BY idx`)
	if err != nil {
		return fmt.Errorf("%w: query entries: %v", ErrJournalIO, err)
	}
	defer rows.Close()

	var expected types.Index = 1
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return fmt.Errorf("%w: scan entry: %v", ErrJournalIO, err)
		}
		entry, err := UnmarshalEntry(payload)
		if err != nil {
			return err
		}
		if entry.Index != expected {
			return fmt.Errorf("%w: expected index %d, got %d", ErrCorruptedJournal, expected, entry.Index)
		}
		expected++
		if err := fn(entry); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: iterate entries: %v", ErrJournalIO, err)
	}
	return nil
}

// CountByCaller returns how many journaled transactions caller submitted.
func (j *SQLiteJournal) CountByCaller(ctx context.Context, caller types.Address) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM journal_entries WHERE caller = ?`, string(caller)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count entries: %v", ErrJournalIO, err)
	}
	return n, nil
}

func (j *SQLiteJournal) LastIndex() types.Index {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastIndex
}

func (j *SQLiteJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
