package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <scenario>",
		Short: "Re-run a scenario whenever its file changes",
		Long: `Run a scenario, then run it again each time the file is saved.

A save that does not load (invalid YAML, unknown store, cycle) is reported
and the watch continues. Stop with Ctrl-C.

Example:
  ripple watch catalog.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			logger := newLogger(rootOpts, cmd.ErrOrStderr())
			w := cmd.OutOrStdout()
			rerun := func() { runOnce(ctx, args[0], w, logger) }

			rerun()
			if err := Watch(ctx, args[0], logger, rerun); err != nil {
				return WrapExitError(ExitCommandError, "failed to watch scenario", err)
			}
			return nil
		},
	}

	return cmd
}

// Watch calls onChange each time path is written until ctx is cancelled.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}
	logger.Info("watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors often save via rename, which shows up as Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			logger.Debug("scenario changed", "path", path, "op", event.Op.String())
			onChange()

			// Re-add the file in case an atomic save replaced the inode.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}

// runOnce loads and runs path, printing the outcome to w.
func runOnce(ctx context.Context, path string, w io.Writer, logger *slog.Logger) {
	doc, err := loadOne(path)
	if err != nil {
		fmt.Fprintf(w, "✗ %s\n  %v\n", path, err)
		return
	}
	result, err := execute(ctx, doc, logger, nil)
	if err != nil {
		fmt.Fprintf(w, "✗ %s\n  execution failed: %v\n", doc.Name, err)
		return
	}
	printRunText(w, RunResult{
		Scenario: doc.Name,
		Pass:     result.Pass,
		Deltas:   len(result.Trace),
		Errors:   result.Errors,
	})
}
