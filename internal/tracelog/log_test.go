package tracelog

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer l.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_ReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	beginTestRun(t, l, "run-1", 1)
	l.Close()

	for i := 0; i < 2; i++ {
		l, err = Open(path)
		if err != nil {
			t.Fatalf("reopen %d failed: %v", i, err)
		}
		runs, err := l.Runs(context.Background())
		if err != nil {
			t.Fatalf("Runs() failed: %v", err)
		}
		if len(runs) != 1 || runs[0].ID != "run-1" {
			t.Errorf("reopen %d: runs = %+v, want run-1 only", i, runs)
		}
		l.Close()
	}
}

func TestOpen_Pragmas(t *testing.T) {
	l := createTestLog(t)

	checks := map[string]string{
		"journal_mode": "wal",
		"foreign_keys": "1",
		"busy_timeout": "5000",
		"user_version": "1",
	}
	for name, want := range checks {
		got, err := l.pragma(name)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "trace.db"))
	if err == nil {
		t.Fatal("Open() into a missing directory should fail")
	}
}

func TestOpen_NewerSchemaRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")
	setUserVersion(t, path, schemaVersion+1)

	_, err := Open(path)
	if !errors.Is(err, ErrSchemaVersion) {
		t.Fatalf("Open() error = %v, want ErrSchemaVersion", err)
	}
}

func TestOpenReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")
	w, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	beginTestRun(t, w, "run-1", 1)
	w.Close()

	r, err := OpenReadOnly(path)
	if err != nil {
		t.Fatalf("OpenReadOnly() failed: %v", err)
	}
	defer r.Close()

	if _, err := r.Run(context.Background(), "run-1"); err != nil {
		t.Errorf("Run() on read-only log failed: %v", err)
	}
	if err := r.BeginRun(context.Background(), Run{ID: "run-2", Scenario: "s", StartedAt: 2}); err == nil {
		t.Error("BeginRun() on read-only log should fail")
	}
}

func TestOpenReadOnly_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")

	if _, err := OpenReadOnly(path); err == nil {
		t.Fatal("OpenReadOnly() of a missing file should fail")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("OpenReadOnly() must not create the file")
	}
}

func TestOpenReadOnly_Uninitialised(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.db")
	setUserVersion(t, path, 0)

	_, err := OpenReadOnly(path)
	if !errors.Is(err, ErrSchemaVersion) {
		t.Fatalf("OpenReadOnly() error = %v, want ErrSchemaVersion", err)
	}
}

func TestClose_Nil(t *testing.T) {
	var l Log
	if err := l.Close(); err != nil {
		t.Errorf("Close() on zero Log = %v", err)
	}
}

// setUserVersion creates a bare SQLite file at path with the given
// user_version.
func setUserVersion(t *testing.T, path string, version int) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec("CREATE TABLE other (x INTEGER)"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("PRAGMA user_version = " + strconv.Itoa(version)); err != nil {
		t.Fatal(err)
	}
}
