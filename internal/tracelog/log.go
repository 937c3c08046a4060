package tracelog

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stored in PRAGMA user_version. A log written by a newer
// ripple is refused rather than misread.
const schemaVersion = 1

// ErrSchemaVersion is returned when a log's schema version is not one this
// build can read.
var ErrSchemaVersion = errors.New("unsupported trace log schema version")

// Log is a trace log backed by SQLite.
type Log struct {
	db *sql.DB
}

// writePragmas configure a log that records runs.
var writePragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// Open creates or opens the trace log at path for recording. Opening the
// same path repeatedly is safe.
func Open(path string) (*Log, error) {
	db, err := connect(path)
	if err != nil {
		return nil, err
	}
	if err := setup(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Log{db: db}, nil
}

// OpenReadOnly opens an existing trace log for reading; writes through it
// fail. It never creates a file and fails when path was not initialised by
// Open.
func OpenReadOnly(path string) (*Log, error) {
	// Not mode=ro: a read-only connection cannot rebuild the WAL index
	// once the last writer has closed.
	db, err := connect("file:" + path + "?mode=rw")
	if err != nil {
		return nil, err
	}
	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA query_only = ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	version, err := userVersion(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if version != schemaVersion {
		db.Close()
		return nil, fmt.Errorf("%s: %w: %d", path, ErrSchemaVersion, version)
	}
	return &Log{db: db}, nil
}

// connect opens dsn with a single connection: SQLite has one writer, and
// pragmas are per connection.
func connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// setup applies the write pragmas and creates the schema of a new log.
func setup(db *sql.DB) error {
	for _, pragma := range writePragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	version, err := userVersion(db)
	if err != nil {
		return err
	}
	switch {
	case version == schemaVersion:
		return nil
	case version > schemaVersion:
		return fmt.Errorf("%w: %d (newest known is %d)", ErrSchemaVersion, version, schemaVersion)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return tx.Commit()
}

func userVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

// Close closes the database connection.
func (l *Log) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// pragma returns the current value of a pragma as text.
func (l *Log) pragma(name string) (string, error) {
	var value string
	if err := l.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("query %s: %w", name, err)
	}
	return value, nil
}
