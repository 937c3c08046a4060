package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ripple/internal/metrics"
	"github.com/roach88/ripple/internal/scenario"
	"github.com/roach88/ripple/internal/tracelog"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Metrics  bool

	// IDGenerator allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator tracelog.RunIDGenerator

	// Now allows overriding the run start time (for testing).
	Now func() time.Time
}

// RunResult is the outcome of running one scenario.
type RunResult struct {
	Scenario string   `json:"scenario"`
	Pass     bool     `json:"pass"`
	Deltas   int      `json:"deltas"`
	Errors   []string `json:"errors,omitempty"`
	RunID    string   `json:"run_id,omitempty"`
	Digest   string   `json:"digest,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run one scenario",
		Long: `Run a scenario file: build its stores, apply its steps and check its
assertions.

With --db every delta is recorded in a SQLite trace log under a new run ID,
which "ripple trace" and "ripple replay" read back. With --metrics the
per-store delta counts are printed in the Prometheus text format.

Exit codes:
  0 - Scenario passed
  1 - A step or assertion failed
  2 - Command error (invalid file, database error, etc.)

Examples:
  ripple run catalog.yaml
  ripple run catalog.yaml --db ./ripple.db
  ripple run search.cue --metrics --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioCommand(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the trace in this SQLite database")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print delta metrics after the run")

	return cmd
}

func runScenarioCommand(opts *RunOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	doc, err := loadOne(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	var reg *metrics.Registry
	if opts.Metrics {
		reg = metrics.NewRegistry()
	}

	result, err := execute(ctx, doc, logger, reg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	out := RunResult{
		Scenario: doc.Name,
		Pass:     result.Pass,
		Deltas:   len(result.Trace),
		Errors:   result.Errors,
	}

	if opts.Database != "" {
		out.RunID, out.Digest, err = record(ctx, opts, doc, result)
		if err != nil {
			return dbError(opts.RootOptions, cmd, "failed to record trace", err)
		}
		logger.Info("trace recorded", "db", opts.Database, "run", out.RunID, "entries", len(result.Trace))
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		var failure *CLIError
		if !out.Pass {
			failure = &CLIError{Code: ResultScenarioFailed, Message: fmt.Sprintf("scenario %s failed", doc.Name), Details: out.Errors}
		}
		if err := newFormatter(opts.RootOptions, cmd).Result(out, out.RunID, failure); err != nil {
			return err
		}
	} else {
		printRunText(w, out)
	}

	if reg != nil {
		if err := reg.Write(w); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}

	if !out.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", doc.Name))
	}
	return nil
}

// loadOne loads a single scenario file.
func loadOne(path string) (*scenario.Document, error) {
	loaded, errs := LoadScenarios([]string{path}, "", LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return loaded.Scenarios[0].Document, nil
}

// execute runs doc, counting its deltas in reg when reg is non-nil.
func execute(ctx context.Context, doc *scenario.Document, logger *slog.Logger, reg *metrics.Registry) (*scenario.Result, error) {
	opts := []scenario.Option{scenario.WithLogger(logger)}
	if reg != nil {
		opts = append(opts, scenario.WithObserver(func(ev scenario.TraceEvent) {
			reg.ObserveDelta(ev.Store, ev.Kind, ev.TS)
		}))
	}

	logger.Debug("running scenario", "scenario", doc.Name, "stores", len(doc.Stores), "steps", len(doc.Steps))
	result, err := scenario.NewRunner(opts...).Run(ctx, doc)
	if err != nil {
		return nil, err
	}
	if reg != nil {
		reg.ObserveRun(runStatus(result))
	}
	return result, nil
}

// record writes result to the trace log and returns the run ID and digest.
func record(ctx context.Context, opts *RunOptions, doc *scenario.Document, result *scenario.Result) (string, string, error) {
	log, err := tracelog.Open(opts.Database)
	if err != nil {
		return "", "", err
	}
	defer log.Close()

	gen := opts.IDGenerator
	if gen == nil {
		gen = tracelog.UUIDv7Generator{}
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	entries, err := result.Entries()
	if err != nil {
		return "", "", err
	}
	source, err := doc.Digest()
	if err != nil {
		return "", "", err
	}

	run := tracelog.Run{ID: gen.Generate(), Scenario: doc.Name, Source: source, StartedAt: now().UnixMilli()}
	if err := log.BeginRun(ctx, run); err != nil {
		return "", "", err
	}
	if err := log.Append(ctx, run.ID, entries); err != nil {
		return "", "", errors.Join(err, log.FinishRun(ctx, run.ID, tracelog.StatusFailed))
	}
	if err := log.FinishRun(ctx, run.ID, runStatus(result)); err != nil {
		return "", "", err
	}

	stored, err := log.Run(ctx, run.ID)
	if err != nil {
		return "", "", err
	}
	return run.ID, stored.Digest, nil
}

func runStatus(result *scenario.Result) string {
	if result.Pass {
		return tracelog.StatusPassed
	}
	return tracelog.StatusFailed
}

func printRunText(w io.Writer, out RunResult) {
	if out.Pass {
		fmt.Fprintf(w, "✓ %s (%d deltas)\n", out.Scenario, out.Deltas)
	} else {
		fmt.Fprintf(w, "✗ %s (%d deltas)\n", out.Scenario, out.Deltas)
		for _, e := range out.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	if out.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", out.RunID)
		fmt.Fprintf(w, "Digest: %s\n", out.Digest)
	}
}

// signalContext derives a context from the command's that is cancelled on
// SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
