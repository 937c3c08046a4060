package tracelog

import (
	"context"
	"fmt"

	"github.com/roach88/ripple/internal/canon"
)

// BeginRun records the start of a run with status running.
func (l *Log) BeginRun(ctx context.Context, run Run) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, source, started_at, status)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Scenario, run.Source, run.StartedAt, StatusRunning)
	if err != nil {
		return fmt.Errorf("begin run %s: %w", run.ID, err)
	}
	return nil
}

// Append writes entries for runID in a single transaction. Entries keep
// their Seq; a seq already recorded for the run is an error.
func (l *Log) Append(ctx context.Context, runID string, entries []Entry) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append entries: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (run_id, seq, store, kind, ts, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("append entries: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, runID, e.Seq, e.Store, e.Kind, e.TS, e.Payload); err != nil {
			return fmt.Errorf("append entry %d: %w", e.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append entries: commit: %w", err)
	}
	return nil
}

// FinishRun sets the final status of a run and stores the digest of its
// entries.
func (l *Log) FinishRun(ctx context.Context, runID, status string) error {
	entries, err := l.Entries(ctx, runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	digest, err := Digest(entries)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}

	res, err := l.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, digest = ? WHERE id = ?
	`, status, digest, runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %s: rows affected: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// Digest returns the trace digest of entries: identical traces, recorded
// in any log, share a digest.
func Digest(entries []Entry) (string, error) {
	rows := make([]any, len(entries))
	for i, e := range entries {
		rows[i] = map[string]any{
			"seq":     e.Seq,
			"store":   e.Store,
			"kind":    e.Kind,
			"ts":      e.TS,
			"payload": e.Payload,
		}
	}
	return canon.Digest(canon.DomainTrace, rows)
}
