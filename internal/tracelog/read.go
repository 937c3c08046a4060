package tracelog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned when a run ID is not in the log.
var ErrRunNotFound = errors.New("run not found")

// Runs returns every run, oldest first, with its entry count.
// Returns an empty slice (not nil) for an empty log.
func (l *Log) Runs(ctx context.Context) ([]Run, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT r.id, r.scenario, r.source, r.started_at, r.status, r.digest,
		       (SELECT COUNT(*) FROM entries e WHERE e.run_id = r.id)
		FROM runs r
		ORDER BY r.started_at ASC, r.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Scenario, &r.Source, &r.StartedAt, &r.Status, &r.Digest, &r.Entries); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Run returns a single run. It fails with ErrRunNotFound for an unknown ID.
func (l *Log) Run(ctx context.Context, id string) (Run, error) {
	var r Run
	err := l.db.QueryRowContext(ctx, `
		SELECT r.id, r.scenario, r.source, r.started_at, r.status, r.digest,
		       (SELECT COUNT(*) FROM entries e WHERE e.run_id = r.id)
		FROM runs r
		WHERE r.id = ?
	`, id).Scan(&r.ID, &r.Scenario, &r.Source, &r.StartedAt, &r.Status, &r.Digest, &r.Entries)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return r, nil
}

// Latest returns the most recently started run.
func (l *Log) Latest(ctx context.Context) (Run, error) {
	var id string
	err := l.db.QueryRowContext(ctx, `
		SELECT id FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
		LIMIT 1
	`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("latest run: %w", ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("latest run: %w", err)
	}
	return l.Run(ctx, id)
}

// Entries returns the entries of a run in recording order.
// Returns an empty slice (not nil) if the run has none.
func (l *Log) Entries(ctx context.Context, runID string) ([]Entry, error) {
	return l.queryEntries(ctx, `
		SELECT seq, store, kind, ts, payload
		FROM entries
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
}

// StoreEntries returns the entries one store emitted during a run.
func (l *Log) StoreEntries(ctx context.Context, runID, store string) ([]Entry, error) {
	return l.queryEntries(ctx, `
		SELECT seq, store, kind, ts, payload
		FROM entries
		WHERE run_id = ? AND store = ?
		ORDER BY seq ASC
	`, runID, store)
}

func (l *Log) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Seq, &e.Store, &e.Kind, &e.TS, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}
