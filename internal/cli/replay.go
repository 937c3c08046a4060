package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/ripple/internal/tracelog"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string
}

// ReplayResult holds the outcome of replaying one recorded run.
type ReplayResult struct {
	Scenario       string `json:"scenario"`
	RunID          string `json:"run_id"`
	RecordedDigest string `json:"recorded_digest"`
	ReplayedDigest string `json:"replayed_digest"`
	Recorded       int    `json:"recorded"`
	Replayed       int    `json:"replayed"`
	Deterministic  bool   `json:"deterministic"`
	SourceChanged  bool   `json:"source_changed"` // the scenario document differs from the recorded one
	FirstMismatch  int64  `json:"first_mismatch,omitempty"` // seq of the first differing entry
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario>",
		Short: "Re-run a scenario and verify it reproduces a recorded run",
		Long: `Run a scenario again and compare its trace with one recorded by
"ripple run --db". The runs match when their trace digests are equal; on a
mismatch the first differing entry is reported.

Exit codes:
  0 - The trace was reproduced exactly
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  ripple replay catalog.yaml --db ./ripple.db
  ripple replay catalog.yaml --db ./ripple.db --run 0190b6a2-...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "latest", "run to compare against")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	doc, err := loadOne(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	log, err := tracelog.OpenReadOnly(opts.Database)
	if err != nil {
		return dbError(opts.RootOptions, cmd, "failed to open database", err)
	}
	defer log.Close()

	run, err := findRun(ctx, log, opts.RunID)
	if err != nil {
		if errors.Is(err, tracelog.ErrRunNotFound) {
			return WrapExitError(ExitFailure, fmt.Sprintf("run not found: %s", opts.RunID), err)
		}
		return dbError(opts.RootOptions, cmd, "failed to read run", err)
	}
	if run.Scenario != doc.Name {
		return NewExitError(ExitCommandError, fmt.Sprintf("run %s recorded scenario %q, not %q", run.ID, run.Scenario, doc.Name))
	}
	recorded, err := log.Entries(ctx, run.ID)
	if err != nil {
		return dbError(opts.RootOptions, cmd, "failed to read entries", err)
	}

	result, err := execute(ctx, doc, newLogger(opts.RootOptions, cmd.ErrOrStderr()), nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}
	replayed, err := result.Entries()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode trace", err)
	}
	digest, err := tracelog.Digest(replayed)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to digest trace", err)
	}

	source, err := doc.Digest()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to digest scenario", err)
	}

	out := ReplayResult{
		Scenario:       doc.Name,
		RunID:          run.ID,
		RecordedDigest: run.Digest,
		ReplayedDigest: digest,
		Recorded:       len(recorded),
		Replayed:       len(replayed),
		Deterministic:  digest == run.Digest,
		SourceChanged:  run.Source != "" && run.Source != source,
	}
	if !out.Deterministic {
		out.FirstMismatch = firstMismatch(recorded, replayed)
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, out)
	}
	return outputReplayText(cmd.OutOrStdout(), out)
}

// firstMismatch returns the seq of the first entry that differs between a
// and b, or the seq right after the shorter one.
func firstMismatch(a, b []tracelog.Entry) int64 {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i].Seq
		}
	}
	return int64(n + 1)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	var failure *CLIError
	if !result.Deterministic {
		failure = &CLIError{Code: ResultDeterminism, Message: "determinism verification failed"}
	}

	formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	if err := formatter.Result(result, result.RunID, failure); err != nil {
		return err
	}

	if !result.Deterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(w io.Writer, result ReplayResult) error {
	fmt.Fprintf(w, "Replay of %s against run %s\n", result.Scenario, result.RunID)
	fmt.Fprintf(w, "  Recorded: %d entries, digest %s\n", result.Recorded, result.RecordedDigest)
	fmt.Fprintf(w, "  Replayed: %d entries, digest %s\n", result.Replayed, result.ReplayedDigest)
	if result.SourceChanged {
		fmt.Fprintln(w, "  Scenario changed since the run was recorded")
	}

	if result.Deterministic {
		fmt.Fprintln(w, "✓ Trace reproduced exactly")
		return nil
	}

	fmt.Fprintf(w, "  First mismatch at seq %d\n", result.FirstMismatch)
	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
