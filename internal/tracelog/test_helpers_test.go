package tracelog

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestLog opens a fresh log in a temporary directory.
func createTestLog(t *testing.T) *Log {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.db")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

// beginTestRun records a run and fails the test on error.
func beginTestRun(t *testing.T, l *Log, id string, startedAt int64) {
	t.Helper()
	if err := l.BeginRun(context.Background(), Run{ID: id, Scenario: "scenario.yaml", StartedAt: startedAt}); err != nil {
		t.Fatalf("BeginRun(%s) failed: %v", id, err)
	}
}

func testEntries() []Entry {
	return []Entry{
		{Seq: 1, Store: "items", Kind: KindCollection, TS: 1, Payload: `{"added":[{"id":"a"}]}`},
		{Seq: 2, Store: "total", Kind: KindValue, TS: 1, Payload: `{"new":1,"old":0}`},
		{Seq: 3, Store: "items", Kind: KindCollection, TS: 2, Payload: `{"removed":[{"id":"a"}]}`},
	}
}
