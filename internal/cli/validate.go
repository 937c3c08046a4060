package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationError is one problem found in a scenario file.
type ValidationError struct {
	File    string `json:"file,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario files (YAML or CUE) without running them.

Checks that each document parses, that every store, step and assertion is
well formed, and that the store graph has no dependency cycle. Directories
are searched for .yaml, .yml and .cue files.

Examples:
  ripple validate ./scenarios
  ripple validate catalog.yaml search.cue --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, loadErrors := LoadScenarios(paths, "", LoadModeCollectAll)

	// Nothing to validate (path not found, no files, etc.)
	if loadResult == nil {
		code, message := ErrCodeGeneric, loadErrors[0].Error()
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			code, message = loadErr.Code, loadErr.Message
		}
		if err := formatter.Error(code, message, nil); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, message)
	}

	for _, s := range loadResult.Scenarios {
		formatter.VerboseLog("%s: %s (%d stores, %d steps, %d assertions)",
			s.Path, s.Document.Name, len(s.Document.Stores), len(s.Document.Steps), len(s.Document.Assertions))
	}

	result := ValidationResult{Valid: len(loadErrors) == 0, Files: loadResult.FileCount}
	for _, err := range loadErrors {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			result.Errors = append(result.Errors, ValidationError{File: loadErr.Path, Code: loadErr.Code, Message: loadErr.Message})
			continue
		}
		result.Errors = append(result.Errors, ValidationError{Code: ErrCodeGeneric, Message: err.Error()})
	}

	if opts.Format == "json" {
		var failure *CLIError
		if !result.Valid {
			failure = &CLIError{
				Code:    result.Errors[0].Code,
				Message: fmt.Sprintf("%d validation error(s)", len(result.Errors)),
				Details: result.Errors,
			}
		}
		if err := formatter.Result(result, "", failure); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, e := range result.Errors {
			fmt.Fprintf(w, "✗ %s\n  [%s] %s\n", e.File, e.Code, e.Message)
		}
		if result.Valid {
			fmt.Fprintf(w, "✓ %d scenario file(s) valid\n", result.Files)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(result.Errors)))
	}
	return nil
}
