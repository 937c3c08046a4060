package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ripple/internal/tracelog"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // "latest" selects the most recent run
	Store    string // optional - filter to one store
}

// TraceEntry is one delta in the timeline.
type TraceEntry struct {
	Seq   int64  `json:"seq"`
	Store string `json:"store"`
	Kind  string `json:"kind"`
	TS    int64  `json:"ts"`
	Delta any    `json:"delta"`
}

// TraceResult holds the timeline of one run.
type TraceResult struct {
	Run      tracelog.Run   `json:"run"`
	Timeline []TraceEntry   `json:"timeline"`
	Stats    map[string]int `json:"stats"` // deltas per store
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded runs",
		Long: `Inspect the trace log written by "ripple run --db".

Without --run, lists every recorded run. With --run, shows the deltas the
run recorded in emission order, plus the number of deltas per store.

Examples:
  ripple trace --db ./ripple.db
  ripple trace --db ./ripple.db --run latest
  ripple trace --db ./ripple.db --run 0190b6a2-... --store top --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", `run to show ("latest" for the most recent)`)
	cmd.Flags().StringVar(&opts.Store, "store", "", "filter to one store")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	log, err := tracelog.OpenReadOnly(opts.Database)
	if err != nil {
		return dbError(opts.RootOptions, cmd, "failed to open database", err)
	}
	defer log.Close()

	if opts.RunID == "" {
		runs, err := log.Runs(ctx)
		if err != nil {
			return dbError(opts.RootOptions, cmd, "failed to list runs", err)
		}
		if opts.Format == "json" {
			return outputTraceJSON(cmd, runs)
		}
		return outputRunsText(cmd.OutOrStdout(), runs)
	}

	run, err := findRun(ctx, log, opts.RunID)
	if err != nil {
		if errors.Is(err, tracelog.ErrRunNotFound) {
			return WrapExitError(ExitFailure, fmt.Sprintf("run not found: %s", opts.RunID), err)
		}
		return dbError(opts.RootOptions, cmd, "failed to read run", err)
	}

	var entries []tracelog.Entry
	if opts.Store != "" {
		entries, err = log.StoreEntries(ctx, run.ID, opts.Store)
	} else {
		entries, err = log.Entries(ctx, run.ID)
	}
	if err != nil {
		return dbError(opts.RootOptions, cmd, "failed to read entries", err)
	}

	result, err := buildTrace(run, entries)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to decode entries", err)
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
}

// findRun resolves a run ID, or "latest".
func findRun(ctx context.Context, log *tracelog.Log, id string) (tracelog.Run, error) {
	if id == "latest" {
		return log.Latest(ctx)
	}
	return log.Run(ctx, id)
}

// buildTrace decodes the canonical payloads of entries.
func buildTrace(run tracelog.Run, entries []tracelog.Entry) (TraceResult, error) {
	result := TraceResult{
		Run:      run,
		Timeline: make([]TraceEntry, 0, len(entries)),
		Stats:    make(map[string]int),
	}
	for _, e := range entries {
		var delta any
		if err := json.Unmarshal([]byte(e.Payload), &delta); err != nil {
			return TraceResult{}, fmt.Errorf("entry %d: %w", e.Seq, err)
		}
		result.Timeline = append(result.Timeline, TraceEntry{
			Seq:   e.Seq,
			Store: e.Store,
			Kind:  e.Kind,
			TS:    e.TS,
			Delta: delta,
		})
		result.Stats[e.Store]++
	}
	return result, nil
}

// outputTraceJSON outputs data as a JSON response.
func outputTraceJSON(cmd *cobra.Command, data any) error {
	formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	return formatter.Result(data, "", nil)
}

func outputRunsText(w io.Writer, runs []tracelog.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %-7s  %-20s  %d entries\n", r.ID, r.Status, r.Scenario, r.Entries)
	}
	return nil
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Trace for Run: %s\n", result.Run.ID)
	fmt.Fprintf(w, "Scenario: %s\n", result.Run.Scenario)
	fmt.Fprintf(w, "Status: %s\n", result.Run.Status)
	if verbose {
		fmt.Fprintf(w, "Digest: %s\n", result.Run.Digest)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no deltas)")
	}
	for _, e := range result.Timeline {
		fmt.Fprintf(w, "  [%d] ts=%d %s %s\n", e.Seq, e.TS, e.Store, formatValue(e.Delta))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	stores := make([]string, 0, len(result.Stats))
	for s := range result.Stats {
		stores = append(stores, s)
	}
	sort.Strings(stores)
	for _, s := range stores {
		fmt.Fprintf(w, "  %s: %d\n", s, result.Stats[s])
	}
	return nil
}

// formatArgs formats a map for display.
// Uses sorted keys to ensure deterministic output.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(args[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue formats a single value for display, handling nested structures deterministically.
func formatValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return formatArgs(val)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}
